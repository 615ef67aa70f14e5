package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number decodes JSON numbers, numeric strings ("1,200.50") and null.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Float returns n as float64.
func (n Number) Float() float64 { return float64(n) }

// Decode unmarshals a raw API response into T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode analytics response: %w", err)
	}
	return out, nil
}

// Targets is the dashboard response used for budget targets.
type Targets struct {
	MonthlyDetail []struct {
		Month        string `json:"month"`
		TargetBudget Number `json:"target_budget_clean"`
	} `json:"monthly_detail"`
	KPIs struct {
		TotalTargetBudget Number `json:"total_target_budget"`
	} `json:"kpis"`
}

// BudgetFor returns the local-currency target for a month abbreviation (case-insensitive).
func (t Targets) BudgetFor(monthAbbr string) (float64, bool) {
	for _, m := range t.MonthlyDetail {
		if strings.EqualFold(strings.TrimSpace(m.Month), monthAbbr) {
			return m.TargetBudget.Float(), true
		}
	}
	return 0, false
}

// BookedInfluencer is an influencer already booked in a period.
type BookedInfluencer struct {
	Name        string `json:"name"`
	BudgetLocal Number `json:"budget_local"`
}

// MonthlyBreakdown is the monthly_breakdown view.
type MonthlyBreakdown struct {
	MonthlyData []json.RawMessage `json:"monthly_data"`
	Metrics     struct {
		BudgetSpentEUR Number `json:"budget_spent_eur"`
	} `json:"metrics"`
	Influencers []BookedInfluencer `json:"influencers"`
}

// SpentEUR returns the spend for the period in EUR.
func (m MonthlyBreakdown) SpentEUR() float64 {
	if spent := m.Metrics.BudgetSpentEUR.Float(); spent > 0 {
		return spent
	}
	if len(m.MonthlyData) == 0 {
		return 0
	}
	var row struct {
		BudgetSpentEUR Number `json:"budget_spent_eur"`
	}
	if err := json.Unmarshal(m.MonthlyData[0], &row); err != nil {
		return 0
	}
	return row.BudgetSpentEUR.Float()
}

// RangeBreakdown is the custom_range_breakdown and weekly_breakdown_by_number views.
type RangeBreakdown struct {
	Summary json.RawMessage   `json:"summary"`
	Details []json.RawMessage `json:"details"`
}

// Empty reports whether the breakdown has no summary or no detail rows.
func (r RangeBreakdown) Empty() bool {
	s := bytes.TrimSpace(r.Summary)
	return len(s) == 0 || bytes.Equal(s, []byte("null")) || bytes.Equal(s, []byte("{}")) || len(r.Details) == 0
}

// Campaign is one row of the influencer_performance view.
type Campaign struct {
	InfluencerName string  `json:"influencer_name"`
	Market         string  `json:"market"`
	Currency       string  `json:"currency"`
	TotalBudget    Number  `json:"total_budget_clean"`
	Conversions    Number  `json:"actual_conversions_clean"`
	CTR            *Number `json:"ctr"`
}

// InfluencerPerformance is the influencer_performance view.
type InfluencerPerformance struct {
	Campaigns []Campaign `json:"campaigns"`
}

// TierInfluencer is one influencer in the discovery_tiers view.
type TierInfluencer struct {
	Name             string `json:"influencer_name"`
	Tier             string `json:"tier,omitempty"`
	TotalConversions Number `json:"total_conversions"`
	EffectiveCACEUR  Number `json:"effective_cac_eur"`
	TotalSpendEUR    Number `json:"total_spend_eur"`
	AverageSpend     Number `json:"average_spend_per_campaign"`
}

// UnmarshalJSON accepts both snake_case and the camelCase names used by the discovery endpoint.
func (t *TierInfluencer) UnmarshalJSON(data []byte) error {
	type plain TierInfluencer
	var aux struct {
		plain
		CamelName  string  `json:"influencerName"`
		CamelSpend *Number `json:"averageSpendPerCampaign"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = TierInfluencer(aux.plain)
	if t.Name == "" {
		t.Name = aux.CamelName
	}
	if t.AverageSpend == 0 && aux.CamelSpend != nil {
		t.AverageSpend = *aux.CamelSpend
	}
	return nil
}

// DiscoveryTiers is the discovery_tiers view. A tier filter yields Items;
// otherwise the three tier lists are populated.
type DiscoveryTiers struct {
	Source string           `json:"source"`
	Items  []TierInfluencer `json:"items"`
	Gold   []TierInfluencer `json:"gold"`
	Silver []TierInfluencer `json:"silver"`
	Bronze []TierInfluencer `json:"bronze"`
}

// All flattens the response in gold, silver, bronze order.
func (d DiscoveryTiers) All() []TierInfluencer {
	if d.Source == "discovery_tier_specific" || len(d.Items) > 0 {
		return d.Items
	}
	out := make([]TierInfluencer, 0, len(d.Gold)+len(d.Silver)+len(d.Bronze))
	for _, tier := range []struct {
		name string
		list []TierInfluencer
	}{{"gold", d.Gold}, {"silver", d.Silver}, {"bronze", d.Bronze}} {
		for _, inf := range tier.list {
			if inf.Tier == "" {
				inf.Tier = tier.name
			}
			out = append(out, inf)
		}
	}
	return out
}
