// Package planner allocates a remaining campaign budget across influencer tiers.
package planner

import (
	"sort"
	"strings"
)

// Tier names in allocation order.
const (
	TierGold   = "gold"
	TierSilver = "silver"
	TierBronze = "bronze"
)

// Tiers lists the tiers in the order they are filled.
var Tiers = []string{TierGold, TierSilver, TierBronze}

// Candidate is an influencer that can be booked. AverageSpend is the expected
// cost of one campaign in the market's local currency.
type Candidate struct {
	Name         string
	Tier         string
	AverageSpend float64
}

// Recommendation is one booking proposed by Allocate.
type Recommendation struct {
	InfluencerName       string  `json:"influencer_name"`
	Tier                 string  `json:"tier"`
	Market               string  `json:"market"`
	AllocatedBudget      float64 `json:"allocated_budget"`
	PredictedConversions int     `json:"predicted_conversions"`
	EffectiveCAC         float64 `json:"effective_cac"`
}

// Allocation is the result of a cascading-tier allocation.
type Allocation struct {
	Recommendations []Recommendation            `json:"recommendations"`
	Total           float64                     `json:"total_allocated"`
	ByTier          map[string][]Recommendation `json:"tier_breakdown"`
}

// Options tune Allocate.
type Options struct {
	Market string
	// CAC is the assumed cost per acquisition used to predict conversions.
	CAC float64
	// FillRatio stops allocation once Total reaches budget*FillRatio.
	FillRatio float64
}

// DefaultOptions mirrors the production planning assumptions.
func DefaultOptions(market string) Options {
	return Options{Market: market, CAC: 50, FillRatio: 0.98}
}

// Allocate fills budget tier by tier (gold, silver, bronze), cheapest
// influencer first, adding a candidate whenever it still fits. It stops as
// soon as the allocated total reaches FillRatio of the budget.
func Allocate(tiers map[string][]Candidate, budget float64, opts Options) Allocation {
	if opts.FillRatio <= 0 || opts.FillRatio > 1 {
		opts.FillRatio = 1
	}
	out := Allocation{ByTier: make(map[string][]Recommendation, len(Tiers))}
	if budget <= 0 {
		return out
	}
	threshold := budget * opts.FillRatio

	for _, tier := range Tiers {
		if out.Total >= threshold {
			break
		}
		candidates := append([]Candidate(nil), tiers[tier]...)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].AverageSpend < candidates[j].AverageSpend
		})
		for _, c := range candidates {
			if c.AverageSpend <= 0 {
				continue
			}
			if out.Total+c.AverageSpend > budget {
				continue
			}
			rec := Recommendation{
				InfluencerName:       c.Name,
				Tier:                 tier,
				Market:               opts.Market,
				AllocatedBudget:      c.AverageSpend,
				PredictedConversions: predictConversions(c.AverageSpend, opts.CAC),
				EffectiveCAC:         opts.CAC,
			}
			out.Recommendations = append(out.Recommendations, rec)
			out.ByTier[tier] = append(out.ByTier[tier], rec)
			out.Total += c.AverageSpend
			if out.Total >= threshold {
				break
			}
		}
	}
	return out
}

func predictConversions(spend, cac float64) int {
	if cac <= 0 {
		return 0
	}
	return int(spend / cac)
}

// ExcludeBooked drops candidates whose name is already booked (case-insensitive).
func ExcludeBooked(candidates []Candidate, booked []string) []Candidate {
	if len(booked) == 0 {
		return candidates
	}
	skip := make(map[string]struct{}, len(booked))
	for _, name := range booked {
		skip[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	out := candidates[:0:0]
	for _, c := range candidates {
		if _, ok := skip[strings.ToLower(strings.TrimSpace(c.Name))]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// PredictedConversions sums the predicted conversions of all recommendations.
func (a Allocation) PredictedConversions() int {
	total := 0
	for _, r := range a.Recommendations {
		total += r.PredictedConversions
	}
	return total
}
