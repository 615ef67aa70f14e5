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

const stepWeekly = "Weekly Breakdown"

type weeklyByRange struct {
	deps *Deps
}

func (*weeklyByRange) Name() string       { return WeeklyReviewByRange }
func (*weeklyByRange) Kind() session.Kind { return session.KindWeeklyReview }
func (*weeklyByRange) Required() []string {
	return []string{params.FieldMarket, params.FieldStartDate, params.FieldEndDate}
}

func (t *weeklyByRange) Run(ctx context.Context, inv *Invocation) (session.Payload, error) {
	p := inv.Params
	period := fmt.Sprintf("%s to %s", p.StartDate, p.EndDate)
	return runWeekly(ctx, t.deps, inv, analytics.ViewCustomRangeBreakdown,
		map[string]any{"market": p.Market, "year": yearOrDefault(p, t.deps), "date_from": p.StartDate, "date_to": p.EndDate},
		period,
		fmt.Sprintf("No performance data found for %s between %s and %s.", strings.ToUpper(p.Market), p.StartDate, p.EndDate),
	)
}

type weeklyByNumber struct {
	deps *Deps
}

func (*weeklyByNumber) Name() string       { return WeeklyReviewByNumber }
func (*weeklyByNumber) Kind() session.Kind { return session.KindWeeklyReview }
func (*weeklyByNumber) Required() []string {
	return []string{params.FieldMarket, params.FieldWeekNumber}
}

func (t *weeklyByNumber) Run(ctx context.Context, inv *Invocation) (session.Payload, error) {
	p := inv.Params
	year := yearOrDefault(p, t.deps)
	period := fmt.Sprintf("week %d of %d", p.WeekNumber, year)
	return runWeekly(ctx, t.deps, inv, analytics.ViewWeeklyBreakdownByNumber,
		map[string]any{"market": p.Market, "year": year, "week_number": p.WeekNumber},
		period,
		fmt.Sprintf("No performance data found for %s in week %d of %d.", strings.ToUpper(p.Market), p.WeekNumber, year),
	)
}

func runWeekly(ctx context.Context, deps *Deps, inv *Invocation, view analytics.View, filters map[string]any, period, emptyMessage string) (session.Payload, error) {
	raw, err := deps.query(ctx, stepWeekly, analytics.Request{
		Source:  analytics.SourceInfluencerAnalytics,
		View:    view,
		Filters: filters,
	})
	if err != nil {
		return nil, err
	}
	breakdown, err := decodeAs[analytics.RangeBreakdown](stepWeekly, raw)
	if err != nil {
		return nil, err
	}
	if breakdown.Empty() {
		return nil, &EmptyResultError{Message: emptyMessage}
	}

	answer, err := deps.generate(ctx, weeklyPrompt(inv.Query, inv.Params.Market, period, raw))
	if err != nil {
		return nil, err
	}
	if err := inv.Reply.Send(ctx, answer); err != nil {
		return nil, fmt.Errorf("failed to send weekly review: %w", err)
	}
	return session.WeeklyReviewPayload{View: string(view), Data: raw, Answer: answer}, nil
}

// yearOrDefault falls back to the current year when the request named none.
func yearOrDefault(p params.Params, deps *Deps) int {
	if p.Year > 0 {
		return p.Year
	}
	return deps.Now().Year()
}

func weeklyPrompt(query, market, period string, data json.RawMessage) string {
	var b strings.Builder
	b.WriteString("You are Nova, a marketing analyst.\n")
	b.WriteString("Generate a concise performance review for the specified period.\n\n")
	fmt.Fprintf(&b, "**Data Context for %s, %s:**\n%s\n\n", strings.ToUpper(market), period, indentJSON(data))
	fmt.Fprintf(&b, "**User's Request:** %q\n\n", query)
	b.WriteString("**Instructions:**\n")
	b.WriteString("1. Analyze the provided data which includes a summary and a detailed list of campaigns.\n")
	b.WriteString("2. Provide a clear, well-structured performance summary. Use bold for key metrics like **Total Spend**, **Total Conversions**, and **Average CAC**.\n")
	b.WriteString("3. Identify the **top-performing influencer** from the 'details' list based on their total conversions or efficiency (low CAC).\n")
	b.WriteString("4. If the data shows no activity, state that clearly.\n")
	b.WriteString("5. Present insights naturally without mentioning \"based on the data provided\".\n")
	return b.String()
}

func indentJSON(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(out)
}
