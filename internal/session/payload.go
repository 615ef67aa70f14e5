package session

import (
	"encoding/json"

	"github.com/ca-srg/nova/internal/planner"
)

// Payload is the tool-specific part of a Context. The set of variants is
// closed; follow-up handlers switch over them.
type Payload interface {
	Kind() Kind
	sealed()
}

// MonthlyReviewPayload holds the target and actual data of a monthly review.
type MonthlyReviewPayload struct {
	TargetBudget float64
	Targets      json.RawMessage
	Actuals      json.RawMessage
	Answer       string
}

// WeeklyReviewPayload holds a range or week-number breakdown.
type WeeklyReviewPayload struct {
	View   string
	Data   json.RawMessage
	Answer string
}

// InfluencerSummary is computed locally from campaign rows.
type InfluencerSummary struct {
	Name             string   `json:"influencer_name"`
	TotalCampaigns   int      `json:"total_campaigns"`
	Markets          []string `json:"markets"`
	TotalSpendEUR    float64  `json:"total_spend_eur"`
	TotalConversions float64  `json:"total_conversions"`
	EffectiveCACEUR  float64  `json:"effective_cac_eur"`
	AverageCTR       float64  `json:"average_ctr"`
}

// InfluencerPayload holds an influencer deep-dive.
type InfluencerPayload struct {
	Summary   InfluencerSummary
	Campaigns json.RawMessage
	Answer    string
}

// TrendPayload holds the discovery leaderboard and its executive summary.
type TrendPayload struct {
	Leaderboard string
	Data        json.RawMessage
	Summary     string
}

// PlanPayload holds a strategic plan. Amounts are in the market's currency.
type PlanPayload struct {
	Currency   string
	Target     float64
	Spent      float64
	Remaining  float64
	Allocation planner.Allocation
	Booked     []string
	Summary    string
}

// QueryStep is one request of an ad-hoc question. Exactly one of Data and
// Error is set.
type QueryStep struct {
	Purpose string          `json:"purpose"`
	Request json.RawMessage `json:"query"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// AnalyticsQueryPayload holds the requests run for a free-form question and
// the answer composed from them.
type AnalyticsQueryPayload struct {
	Question string
	Steps    []QueryStep
	Analysis string
	Answer   string
}

func (MonthlyReviewPayload) Kind() Kind  { return KindMonthlyReview }
func (WeeklyReviewPayload) Kind() Kind   { return KindWeeklyReview }
func (InfluencerPayload) Kind() Kind     { return KindInfluencerAnalysis }
func (TrendPayload) Kind() Kind          { return KindInfluencerTrend }
func (PlanPayload) Kind() Kind           { return KindStrategicPlan }
func (AnalyticsQueryPayload) Kind() Kind { return KindAnalyticsQuery }

func (MonthlyReviewPayload) sealed()  {}
func (WeeklyReviewPayload) sealed()   {}
func (InfluencerPayload) sealed()     {}
func (TrendPayload) sealed()          {}
func (PlanPayload) sealed()           {}
func (AnalyticsQueryPayload) sealed() {}
