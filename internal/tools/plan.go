package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ca-srg/nova/internal/analytics"
	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/planner"
	"github.com/ca-srg/nova/internal/reports"
	"github.com/ca-srg/nova/internal/session"
)

const (
	stepPlanTargets = "Targets"
	stepPlanActuals = "Actuals"
	csvContentType  = "text/csv"
)

type strategicPlan struct {
	deps *Deps
}

func (*strategicPlan) Name() string       { return Plan }
func (*strategicPlan) Kind() session.Kind { return session.KindStrategicPlan }
func (*strategicPlan) Required() []string {
	return []string{params.FieldMarket, params.FieldMonth, params.FieldYear}
}

func (t *strategicPlan) Run(ctx context.Context, inv *Invocation) (session.Payload, error) {
	p := inv.Params
	currency := t.deps.Markets.Currency(p.Market)

	if err := inv.Reply.Send(ctx, fmt.Sprintf("Creating a strategic plan for *%s* for *%s %d*...", strings.ToUpper(p.Market), p.MonthFull, p.Year)); err != nil {
		return nil, fmt.Errorf("failed to send status: %w", err)
	}

	rawTargets, err := t.deps.query(ctx, stepPlanTargets, analytics.Request{
		Source:  analytics.SourceDashboard,
		Filters: map[string]any{"market": p.Market, "month": p.MonthAbbr, "year": p.Year},
	})
	if err != nil {
		return nil, err
	}
	targets, err := decodeAs[analytics.Targets](stepPlanTargets, rawTargets)
	if err != nil {
		return nil, err
	}
	target, ok := targets.BudgetFor(p.MonthAbbr)
	if !ok {
		target = targets.KPIs.TotalTargetBudget.Float()
	}

	rawActuals, err := t.deps.query(ctx, stepPlanActuals, analytics.Request{
		Source:  analytics.SourceInfluencerAnalytics,
		View:    analytics.ViewMonthlyBreakdown,
		Filters: map[string]any{"market": p.Market, "month": p.MonthFull, "year": p.Year},
	})
	if err != nil {
		return nil, err
	}
	actuals, err := decodeAs[analytics.MonthlyBreakdown](stepPlanActuals, rawActuals)
	if err != nil {
		return nil, err
	}

	spent := currency.FromEUR(actuals.SpentEUR())
	remaining := target - spent
	if remaining <= 0 {
		state := "fully used"
		if remaining < 0 {
			state = "overspent"
		}
		return nil, &EmptyResultError{Message: fmt.Sprintf("*Budget Utilized:* The budget for this period is already %s.", state)}
	}

	booked := make([]string, 0, len(actuals.Influencers))
	bookedRows := make([]reports.Booked, 0, len(actuals.Influencers))
	for _, inf := range actuals.Influencers {
		booked = append(booked, inf.Name)
		bookedRows = append(bookedRows, reports.Booked{Name: inf.Name, Amount: inf.BudgetLocal.Float()})
	}

	candidates, err := t.fetchTiers(ctx, p)
	if err != nil {
		return nil, err
	}
	available := 0
	for tier, list := range candidates {
		candidates[tier] = planner.ExcludeBooked(list, booked)
		available += len(candidates[tier])
	}
	if available == 0 {
		return nil, &EmptyResultError{Message: "*All Available Influencers Booked!* No further recommendations for this period."}
	}

	alloc := planner.Allocate(candidates, remaining, planner.Options{
		Market:    p.Market,
		CAC:       t.deps.PlanCAC,
		FillRatio: t.deps.PlanFillRatio,
	})
	if len(alloc.Recommendations) == 0 {
		return nil, &EmptyResultError{Message: fmt.Sprintf("No influencers could be booked with the remaining budget of %s.", currency.Format(remaining))}
	}

	report := reports.Plan{
		Market:     p.Market,
		Month:      p.MonthFull,
		Year:       p.Year,
		Currency:   currency,
		Target:     target,
		Spent:      spent,
		Remaining:  remaining,
		Allocation: alloc,
		Booked:     bookedRows,
	}
	csvData, err := reports.RenderPlan(report)
	if err != nil {
		return nil, fmt.Errorf("failed to render plan: %w", err)
	}
	if err := inv.Reply.Upload(ctx, File{
		Name:        report.FileName(),
		Title:       "Strategic Plan - " + strings.ToUpper(p.Market),
		Comment:     "Plan report:",
		ContentType: csvContentType,
		Content:     csvData,
	}); err != nil {
		return nil, fmt.Errorf("failed to upload plan: %w", err)
	}
	t.archive(ctx, report, csvData)

	summary, err := t.deps.generate(ctx, planPrompt(p, currency, report))
	if err != nil {
		return nil, err
	}
	if err := inv.Reply.Send(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to send plan summary: %w", err)
	}

	return session.PlanPayload{
		Currency:   currency.Code,
		Target:     target,
		Spent:      spent,
		Remaining:  remaining,
		Allocation: alloc,
		Booked:     booked,
		Summary:    summary,
	}, nil
}

// fetchTiers loads the three discovery tiers concurrently. Any failure fails
// the plan.
func (t *strategicPlan) fetchTiers(ctx context.Context, p params.Params) (map[string][]planner.Candidate, error) {
	results := make([][]planner.Candidate, len(planner.Tiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, tier := range planner.Tiers {
		g.Go(func() error {
			step := fmt.Sprintf("Discovery (%s)", strings.ToUpper(tier[:1])+tier[1:])
			raw, err := t.deps.query(gctx, step, analytics.Request{
				Source:  analytics.SourceInfluencerAnalytics,
				View:    analytics.ViewDiscoveryTiers,
				Filters: map[string]any{"market": p.Market, "year": p.Year, "tier": tier},
			})
			if err != nil {
				return err
			}
			resp, err := decodeAs[analytics.DiscoveryTiers](step, raw)
			if err != nil {
				return err
			}
			for _, inf := range resp.All() {
				results[i] = append(results[i], planner.Candidate{
					Name:         inf.Name,
					Tier:         tier,
					AverageSpend: inf.AverageSpend.Float(),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]planner.Candidate, len(planner.Tiers))
	for i, tier := range planner.Tiers {
		out[tier] = results[i]
	}
	return out, nil
}

func (t *strategicPlan) archive(ctx context.Context, report reports.Plan, data []byte) {
	if t.deps.Archiver == nil {
		return
	}
	key := path.Join(strings.ReplaceAll(report.Market, " ", "_"), fmt.Sprint(report.Year), report.FileName())
	uri, err := t.deps.Archiver.Archive(ctx, key, data, csvContentType)
	if err != nil {
		t.deps.Logger.Printf("event=plan_archive status=error key=%s err=%v", key, err)
		return
	}
	t.deps.Logger.Printf("event=plan_archive status=ok uri=%s", uri)
}

func planPrompt(p params.Params, currency params.Currency, report reports.Plan) string {
	recs, _ := json.MarshalIndent(report.Allocation.Recommendations, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "You are Nova, a strategic marketing analyst. Create a strategic influencer plan for %s in %s %d.\n\n", p.Market, p.MonthFull, p.Year)
	b.WriteString("**BUDGET:**\n")
	fmt.Fprintf(&b, "- Target Budget: %s\n", currency.Format(report.Target))
	fmt.Fprintf(&b, "- Actual Spend: %s\n", currency.Format(report.Spent))
	fmt.Fprintf(&b, "- Remaining Budget: %s\n", currency.Format(report.Remaining))
	fmt.Fprintf(&b, "- Recommended Allocation: %s\n", currency.Format(report.Allocation.Total))
	fmt.Fprintf(&b, "- Predicted Conversions: %d\n\n", report.Allocation.PredictedConversions())
	b.WriteString("**TIER BREAKDOWN:**\n")
	for _, tier := range planner.Tiers {
		fmt.Fprintf(&b, "- %s: %d influencers\n", strings.ToUpper(tier[:1])+tier[1:], len(report.Allocation.ByTier[tier]))
	}
	fmt.Fprintf(&b, "\n**RECOMMENDATIONS (JSON):**\n%s\n\n", recs)
	b.WriteString("**INSTRUCTIONS:**\n")
	b.WriteString("- Summarize the plan in a short executive overview, then list the recommended influencers per tier inside a code block.\n")
	fmt.Fprintf(&b, "- Use the %s currency for every amount.\n", currency.Code)
	b.WriteString("- Close with one key strategic recommendation.\n")
	return b.String()
}
