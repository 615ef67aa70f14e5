package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ca-srg/nova/internal/analytics"
	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/session"
)

const stepInfluencer = "Influencer Analytics"

type influencerAnalysis struct {
	deps *Deps
}

func (*influencerAnalysis) Name() string       { return AnalyseInfluencer }
func (*influencerAnalysis) Kind() session.Kind { return session.KindInfluencerAnalysis }
func (*influencerAnalysis) Required() []string { return []string{params.FieldInfluencerName} }

func (t *influencerAnalysis) Run(ctx context.Context, inv *Invocation) (session.Payload, error) {
	p := inv.Params
	filters := map[string]any{"influencer_name": p.InfluencerName}
	if p.Year > 0 {
		filters["year"] = p.Year
	}

	raw, err := t.deps.query(ctx, stepInfluencer, analytics.Request{
		Source:  analytics.SourceInfluencerAnalytics,
		View:    analytics.ViewInfluencerPerformance,
		Filters: filters,
	})
	if err != nil {
		return nil, err
	}
	perf, err := decodeAs[analytics.InfluencerPerformance](stepInfluencer, raw)
	if err != nil {
		return nil, err
	}
	if len(perf.Campaigns) == 0 {
		return nil, &EmptyResultError{Message: fmt.Sprintf("No campaigns found for '%s' with the specified filters.", p.InfluencerName)}
	}

	summary := summarizeCampaigns(p.InfluencerName, perf.Campaigns, t.deps.Markets)
	deepDive := inv.Query == "" || containsAny(inv.Query, "deep dive", "details", "analyse")

	answer, err := t.deps.generate(ctx, influencerPrompt(inv.Query, summary, raw, deepDive))
	if err != nil {
		return nil, err
	}
	if err := inv.Reply.Send(ctx, answer); err != nil {
		return nil, fmt.Errorf("failed to send influencer analysis: %w", err)
	}
	return session.InfluencerPayload{Summary: summary, Campaigns: raw, Answer: answer}, nil
}

// summarizeCampaigns converts each campaign budget to EUR by its own
// currency before totalling.
func summarizeCampaigns(name string, campaigns []analytics.Campaign, markets *params.Markets) session.InfluencerSummary {
	s := session.InfluencerSummary{Name: name, TotalCampaigns: len(campaigns), Markets: []string{}}
	seen := make(map[string]bool)
	var ctrSum float64
	var ctrCount int

	for _, c := range campaigns {
		s.TotalSpendEUR += markets.CurrencyByCode(c.Currency).ToEUR(c.TotalBudget.Float())
		s.TotalConversions += c.Conversions.Float()
		if c.CTR != nil {
			ctrSum += c.CTR.Float()
			ctrCount++
		}
		if m := strings.TrimSpace(c.Market); m != "" && !seen[m] {
			seen[m] = true
			s.Markets = append(s.Markets, m)
		}
	}
	if s.TotalConversions > 0 {
		s.EffectiveCACEUR = s.TotalSpendEUR / s.TotalConversions
	}
	if ctrCount > 0 {
		s.AverageCTR = ctrSum / float64(ctrCount)
	}
	return s
}

func influencerPrompt(query string, summary session.InfluencerSummary, campaigns json.RawMessage, deepDive bool) string {
	task := "Provide a concise, direct answer to the user's question about the influencer."
	if deepDive {
		task = "Generate a comprehensive deep-dive performance report for the influencer."
	}
	request := query
	if request == "" {
		request = "A full analysis."
	}
	stats, _ := json.Marshal(summary)

	var b strings.Builder
	b.WriteString("You are Nova, a graceful and helpful marketing analyst assistant.\n")
	b.WriteString(task + "\n\n")
	fmt.Fprintf(&b, "**Data Context for Influencer '%s':**\n", summary.Name)
	fmt.Fprintf(&b, "- Summary Stats: %s\n", stats)
	fmt.Fprintf(&b, "- Full Campaign Data: %s\n\n", campaigns)
	fmt.Fprintf(&b, "**User's Request:** %q\n\n", request)
	b.WriteString("**Instructions:** Frame your response as a helpful analyst. If data is sparse or missing, note it gracefully. Use bold formatting for key metrics.\n")
	return b.String()
}
