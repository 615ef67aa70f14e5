// Package reports renders downloadable plan reports and archives them.
package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/planner"
)

// Booked is an influencer already booked in the planned period.
type Booked struct {
	Name   string
	Amount float64
}

// Plan is the input of RenderPlan. Amounts are in the market's currency.
type Plan struct {
	Market     string
	Month      string
	Year       int
	Currency   params.Currency
	Target     float64
	Spent      float64
	Remaining  float64
	Allocation planner.Allocation
	Booked     []Booked
}

// FileName returns the attachment name for p.
func (p Plan) FileName() string {
	clean := func(s string) string { return strings.ReplaceAll(strings.TrimSpace(s), " ", "_") }
	return fmt.Sprintf("Strategic_Plan_%s_%s_%d.csv", clean(p.Market), clean(p.Month), p.Year)
}

// RenderPlan writes the plan as a sectioned CSV: budget summary,
// recommendations and booked influencers.
func RenderPlan(p Plan) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"Budget Summary"},
		{"Metric", "Amount"},
		{"Target Budget", p.Currency.Format(p.Target)},
		{"Actual Spend", p.Currency.Format(p.Spent)},
		{"Remaining Budget", p.Currency.Format(p.Remaining)},
		{"Recommended Allocation", p.Currency.Format(p.Allocation.Total)},
		{},
		{"Recommendations"},
		{"Tier", "Influencer Name", "Allocated Budget", "Predicted Conversions", "Effective CAC"},
	}
	for _, tier := range planner.Tiers {
		for _, r := range p.Allocation.ByTier[tier] {
			rows = append(rows, []string{
				strings.ToUpper(tier[:1]) + tier[1:],
				r.InfluencerName,
				p.Currency.Format(r.AllocatedBudget),
				strconv.Itoa(r.PredictedConversions),
				strconv.FormatFloat(r.EffectiveCAC, 'f', 2, 64),
			})
		}
	}
	if len(p.Booked) > 0 {
		rows = append(rows, []string{}, []string{"Booked Influencers"}, []string{"Influencer Name", "Spent Budget"})
		for _, b := range p.Booked {
			rows = append(rows, []string{b.Name, p.Currency.Format(b.Amount)})
		}
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write plan report: %w", err)
	}
	return buf.Bytes(), nil
}
