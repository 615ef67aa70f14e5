package analytics

import (
	"fmt"
	"slices"
	"strings"
)

// Source selects the dataset queried by a request.
type Source string

const (
	SourceDashboard           Source = "dashboard"
	SourceInfluencerAnalytics Source = "influencer_analytics"
)

// View selects the aggregation for influencer_analytics requests.
type View string

const (
	ViewSummary                 View = "summary"
	ViewDiscoveryTiers          View = "discovery_tiers"
	ViewMonthlyBreakdown        View = "monthly_breakdown"
	ViewCustomRangeBreakdown    View = "custom_range_breakdown"
	ViewWeeklyBreakdownByNumber View = "weekly_breakdown_by_number"
	ViewInfluencerPerformance   View = "influencer_performance"
)

var knownViews = map[View]bool{
	ViewSummary:                 true,
	ViewDiscoveryTiers:          true,
	ViewMonthlyBreakdown:        true,
	ViewCustomRangeBreakdown:    true,
	ViewWeeklyBreakdownByNumber: true,
	ViewInfluencerPerformance:   true,
}

// Sort orders summary results. By is one of SortFields.
type Sort struct {
	By    string `json:"by"`
	Order string `json:"order"`
}

// SortFields are the columns the summary view can be sorted by.
var SortFields = []string{
	"campaign_count",
	"total_conversions",
	"total_views",
	"total_clicks",
	"total_spend_eur",
	"effective_cac_eur",
	"avg_ctr",
	"avg_cvr",
}

// Request is the single payload shape accepted by the analytics endpoint.
type Request struct {
	Source  Source         `json:"source"`
	View    View           `json:"view,omitempty"`
	Filters map[string]any `json:"filters"`
	Sort    *Sort          `json:"sort,omitempty"`
	Limit   int            `json:"limit,omitempty"`
}

// Name identifies the request in logs, metrics and error messages.
func (r Request) Name() string {
	if r.View == "" {
		return string(r.Source)
	}
	return string(r.Source) + "/" + string(r.View)
}

// Validate checks the request against the API schema before it is sent.
func (r Request) Validate() error {
	switch r.Source {
	case SourceDashboard:
		if r.View != "" {
			return &RequestError{Field: "view", Reason: "dashboard requests take no view"}
		}
		if r.Sort != nil || r.Limit != 0 {
			return &RequestError{Field: "sort", Reason: "dashboard requests take no sort or limit"}
		}
	case SourceInfluencerAnalytics:
		if r.View == "" {
			return &RequestError{Field: "view", Reason: "influencer_analytics requests require a view"}
		}
		if !knownViews[r.View] {
			return &RequestError{Field: "view", Reason: fmt.Sprintf("unknown view %q", r.View)}
		}
	default:
		return &RequestError{Field: "source", Reason: fmt.Sprintf("unknown source %q", r.Source)}
	}

	if r.Sort != nil {
		if r.View != ViewSummary {
			return &RequestError{Field: "sort", Reason: "sort is only supported by the summary view"}
		}
		if !slices.Contains(SortFields, r.Sort.By) {
			return &RequestError{Field: "sort", Reason: fmt.Sprintf("cannot sort by %q", r.Sort.By)}
		}
		switch r.Sort.Order {
		case "asc", "desc":
		default:
			return &RequestError{Field: "sort", Reason: fmt.Sprintf("order must be asc or desc, got %q", r.Sort.Order)}
		}
	}
	if r.Limit < 0 {
		return &RequestError{Field: "limit", Reason: "limit cannot be negative"}
	}
	if r.Limit > 0 && r.View != ViewSummary {
		return &RequestError{Field: "limit", Reason: "limit is only supported by the summary view"}
	}
	for key, value := range r.Filters {
		if strings.TrimSpace(key) == "" {
			return &RequestError{Field: "filters", Reason: "empty filter key"}
		}
		if value == nil {
			return &RequestError{Field: "filters", Reason: fmt.Sprintf("filter %q has no value", key)}
		}
	}
	return nil
}
