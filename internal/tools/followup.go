package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/session"
)

const (
	followUpFailure = "Sorry, I encountered an error."
	// Trend follow-ups only see the top of the data set.
	trendFollowUpRecords = 15
	planFollowUpRecords  = 15
)

// FollowUp answers message from the stored context alone: one LLM call, no
// analytics calls and no store mutation.
func (r *Registry) FollowUp(ctx context.Context, sc *session.Context, message, userID string, reply Messenger) error {
	ctx, span := toolsTracer.Start(ctx, "tools.follow_up")
	defer span.End()
	start := time.Now()

	sendFailed := false
	prompt, err := followUpPrompt(sc, message, r.deps.Markets)
	if err == nil {
		var answer string
		answer, err = r.deps.LLM.Generate(ctx, prompt)
		if err == nil {
			if sc.Kind() == session.KindStrategicPlan && userID != "" {
				answer = fmt.Sprintf("<@%s> %s", userID, answer)
			}
			err = reply.Send(ctx, answer)
			sendFailed = err != nil
		}
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		// The apology would go through the messenger that just failed.
		if !sendFailed {
			r.say(ctx, reply, followUpFailure)
		}
	}
	recordDispatch(ctx, "follow-up:"+string(sc.Kind()), outcome, time.Since(start))
	r.deps.Logger.Printf("event=tool_follow_up session=%s kind=%s status=%s elapsed=%s", sc.ID(), sc.Kind(), outcome, time.Since(start))
	return err
}

func followUpPrompt(sc *session.Context, message string, markets *params.Markets) (string, error) {
	p := sc.Parameters()
	var b strings.Builder
	b.WriteString("You are a helpful marketing analyst assistant.\n")

	switch payload := sc.Payload().(type) {
	case session.MonthlyReviewPayload:
		data, err := json.Marshal(map[string]json.RawMessage{"targets": payload.Targets, "actuals": payload.Actuals})
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "**Current Context:** A Monthly Review for **%s** for **%s %d**.\n", p.Market, p.MonthFull, p.Year)
		fmt.Fprintf(&b, "**Available Data:** You have the full JSON data for this specific review: %s\n\n", data)
		writeFollowUpRules(&b, message, fmt.Sprintf("the %s %s review", p.MonthFull, p.Market))

	case session.WeeklyReviewPayload:
		period := fmt.Sprintf("%s to %s", p.StartDate, p.EndDate)
		if p.WeekNumber > 0 {
			period = fmt.Sprintf("week %d", p.WeekNumber)
		}
		fmt.Fprintf(&b, "**Current Context:** A performance review for **%s** for the period **%s**.\n", p.Market, period)
		fmt.Fprintf(&b, "**Available Data:** You have the full JSON data for this specific review: %s\n\n", payload.Data)
		writeFollowUpRules(&b, message, "the review of "+period)

	case session.InfluencerPayload:
		filters, err := json.Marshal(p)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "**Current Context:** An analysis of influencer **%s** with filters: %s.\n", p.InfluencerName, filters)
		fmt.Fprintf(&b, "**Available Data:** You have the full JSON data for this specific influencer analysis: %s\n\n", payload.Campaigns)
		writeFollowUpRules(&b, message, p.InfluencerName)

	case session.TrendPayload:
		filters, err := json.Marshal(p)
		if err != nil {
			return "", err
		}
		sample, err := headRecords(payload.Data, trendFollowUpRecords)
		if err != nil {
			return "", err
		}
		b.WriteString("A user is asking a follow-up question about an influencer trend report you already provided.\n\n")
		fmt.Fprintf(&b, "**Original Report Context:**\n- Filters Used: %s\n\n", filters)
		fmt.Fprintf(&b, "**Available Data (JSON, showing first %d records):**\n%s\n\n", trendFollowUpRecords, sample)
		fmt.Fprintf(&b, "**User's Follow-up Question:** %q\n\n", message)
		b.WriteString("**Instructions:**\n")
		b.WriteString("- Answer the user's question directly using ONLY the provided JSON data.\n")
		b.WriteString("- Be concise and to the point.\n")
		b.WriteString("- If the data needed is not present in the sample, state that you can only analyze the top records shown.\n")

	case session.PlanPayload:
		currency := markets.CurrencyByCode(payload.Currency)
		recs := payload.Allocation.Recommendations
		if len(recs) > planFollowUpRecords {
			recs = recs[:planFollowUpRecords]
		}
		recData, err := json.Marshal(recs)
		if err != nil {
			return "", err
		}
		booked, err := json.Marshal(payload.Booked)
		if err != nil {
			return "", err
		}
		b.WriteString("You are answering a follow-up question about a previously generated influencer marketing plan.\n\n")
		b.WriteString("**PLAN CONTEXT:**\n")
		fmt.Fprintf(&b, "- Market: %s\n", strings.ToUpper(p.Market))
		fmt.Fprintf(&b, "- Period: %s %d\n", p.MonthFull, p.Year)
		fmt.Fprintf(&b, "- Currency: %s\n", payload.Currency)
		fmt.Fprintf(&b, "- Remaining Budget: %s\n", currency.Format(payload.Remaining))
		fmt.Fprintf(&b, "- Recommended Allocation: %s\n\n", currency.Format(payload.Allocation.Total))
		b.WriteString("**DATA:**\n")
		fmt.Fprintf(&b, "- Recommendations: %s\n", recData)
		fmt.Fprintf(&b, "- Booked Influencers: %s\n\n", booked)
		fmt.Fprintf(&b, "**USER QUESTION:** %q\n\n", message)
		b.WriteString("**INSTRUCTIONS:**\n")
		b.WriteString("- Answer ONLY from the plan context and data above.\n")
		fmt.Fprintf(&b, "- Be concise, helpful, and use the correct currency (%s).\n", payload.Currency)

	case session.AnalyticsQueryPayload:
		data, err := json.Marshal(successfulSteps(payload.Steps))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "**Current Context:** An answer to the question %q.\n", payload.Question)
		fmt.Fprintf(&b, "**Available Data:** You have the JSON data fetched for that question: %s\n\n", data)
		writeFollowUpRules(&b, message, "the data fetched for that question")

	default:
		return "", fmt.Errorf("no follow-up prompt for context kind %q", sc.Kind())
	}
	return b.String(), nil
}

func writeFollowUpRules(b *strings.Builder, message, scope string) {
	fmt.Fprintf(b, "**User's Follow-up:** %q\n\n", message)
	b.WriteString("**Instructions:**\n")
	b.WriteString("1. Answer the user's question **ONLY** using the data provided in the \"Available Data\" section.\n")
	fmt.Fprintf(b, "2. If the user asks about anything outside %s, you MUST state that you don't have that data in your current context and suggest running a new analysis.\n", scope)
	b.WriteString("3. Present your answer naturally, without phrases like \"based on the provided data\".\n")
}

func headRecords(raw json.RawMessage, n int) (string, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return "", fmt.Errorf("failed to decode trend data: %w", err)
	}
	if len(records) > n {
		records = records[:n]
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
