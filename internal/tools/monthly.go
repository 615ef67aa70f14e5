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

const (
	stepTargets      = "Dashboard (Targets)"
	stepMonthly      = "Influencer Analytics (Monthly)"
	stepSummary      = "AI summary"
	defaultNoRequest = "A full monthly review."
)

type monthlyReview struct {
	deps *Deps
}

func (*monthlyReview) Name() string       { return MonthlyReview }
func (*monthlyReview) Kind() session.Kind { return session.KindMonthlyReview }
func (*monthlyReview) Required() []string {
	return []string{params.FieldMarket, params.FieldMonth, params.FieldYear}
}

func (t *monthlyReview) Run(ctx context.Context, inv *Invocation) (session.Payload, error) {
	p := inv.Params

	rawTargets, err := t.deps.query(ctx, stepTargets, analytics.Request{
		Source:  analytics.SourceDashboard,
		Filters: map[string]any{"market": p.Market, "year": p.Year},
	})
	if err != nil {
		return nil, err
	}
	targets, err := decodeAs[analytics.Targets](stepTargets, rawTargets)
	if err != nil {
		return nil, err
	}
	budget, _ := targets.BudgetFor(p.MonthAbbr)

	rawActuals, err := t.deps.query(ctx, stepMonthly, analytics.Request{
		Source:  analytics.SourceInfluencerAnalytics,
		View:    analytics.ViewMonthlyBreakdown,
		Filters: map[string]any{"market": p.Market, "month": p.MonthFull, "year": p.Year},
	})
	if err != nil {
		return nil, err
	}
	actuals, err := decodeAs[analytics.MonthlyBreakdown](stepMonthly, rawActuals)
	if err != nil {
		return nil, err
	}
	if len(actuals.MonthlyData) == 0 {
		return nil, &EmptyResultError{Message: fmt.Sprintf("No performance data found for %s %s %d.", strings.ToUpper(p.Market), p.MonthFull, p.Year)}
	}

	currency := t.deps.Markets.Currency(p.Market)
	full := inv.Query == "" || containsAny(inv.Query, "review", "summary", "analysis")
	prompt := monthlyPrompt(inv.Query, p, currency.Format(budget), actuals.MonthlyData[0], full)

	answer, err := t.deps.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if err := inv.Reply.Send(ctx, answer); err != nil {
		return nil, fmt.Errorf("failed to send monthly review: %w", err)
	}

	return session.MonthlyReviewPayload{
		TargetBudget: budget,
		Targets:      rawTargets,
		Actuals:      rawActuals,
		Answer:       answer,
	}, nil
}

func monthlyPrompt(query string, p params.Params, targetBudget string, actual json.RawMessage, full bool) string {
	task := "Provide a concise, direct answer to the user's question."
	if full {
		task = "Generate a comprehensive monthly performance review."
	}
	request := query
	if request == "" {
		request = defaultNoRequest
	}
	dataContext, _ := json.MarshalIndent(map[string]any{
		"Target Budget": targetBudget,
		"Actuals":       actual,
	}, "", "  ")

	var b strings.Builder
	b.WriteString("You are Nova, a marketing analyst.\n")
	b.WriteString(task + "\n\n")
	fmt.Fprintf(&b, "**Data Context for %s - %s %d:**\n%s\n\n", strings.ToUpper(p.Market), strings.ToUpper(p.MonthFull), p.Year, dataContext)
	fmt.Fprintf(&b, "**User's Request:** %q\n\n", request)
	b.WriteString("**Instructions:** Analyze the request and data. Formulate a clear, well-structured response using bold for key metrics. ")
	b.WriteString("If data is missing, state it clearly. Present insights naturally without mentioning \"based on the data provided\".\n")
	return b.String()
}

// query calls the analytics API, tagging failures with step.
func (d *Deps) query(ctx context.Context, step string, req analytics.Request) (json.RawMessage, error) {
	raw, err := d.Analytics.Query(ctx, req)
	if err != nil {
		return nil, upstream(step, err)
	}
	return raw, nil
}

func decodeAs[T any](step string, raw json.RawMessage) (T, error) {
	v, err := analytics.Decode[T](raw)
	if err != nil {
		return v, upstream(step, err)
	}
	return v, nil
}

// generate runs one LLM call for a tool answer.
func (d *Deps) generate(ctx context.Context, prompt string) (string, error) {
	answer, err := d.LLM.Generate(ctx, prompt)
	if err != nil {
		return "", upstream(stepSummary, err)
	}
	return answer, nil
}
