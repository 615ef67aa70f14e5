package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/ca-srg/nova/internal/analytics"
	"github.com/ca-srg/nova/internal/llm"
	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/session"
)

const (
	stepQueryPlan = "Query planning"
	maxQuerySteps = 4
	// Step data beyond this is cut before it reaches the answer prompt.
	maxStepDataRunes = 30000
)

var queryPlanSchema = llm.MustResolve(&jsonschema.Schema{
	Type:     "object",
	Required: []string{"queries"},
	Properties: map[string]*jsonschema.Schema{
		"queries": {
			Type:     "array",
			MinItems: jsonschema.Ptr(1),
			Items: &jsonschema.Schema{
				Type:     "object",
				Required: []string{"query"},
				Properties: map[string]*jsonschema.Schema{
					"step":    {Type: "number"},
					"purpose": {Type: "string"},
					"query": {
						Type:     "object",
						Required: []string{"source"},
						Properties: map[string]*jsonschema.Schema{
							"source":  {Type: "string", Enum: []any{string(analytics.SourceDashboard), string(analytics.SourceInfluencerAnalytics)}},
							"view":    {Type: "string"},
							"filters": {Types: []string{"object", "null"}},
							"sort": {
								Type:     "object",
								Required: []string{"by", "order"},
								Properties: map[string]*jsonschema.Schema{
									"by":    {Type: "string"},
									"order": {Type: "string", Enum: []any{"asc", "desc"}},
								},
							},
							"limit": {Type: "number", Minimum: jsonschema.Ptr(0.0)},
						},
					},
				},
			},
		},
		"final_analysis_needed": {Type: "string"},
	},
})

type plannedStep struct {
	Purpose string          `json:"purpose"`
	Query   json.RawMessage `json:"query"`
}

type queryPlan struct {
	Queries  []plannedStep `json:"queries"`
	Analysis string        `json:"final_analysis_needed"`
}

// analyticsQuery answers free-form questions ("top 10 influencers by
// spend", "compare UK and Nordics") by letting the LLM plan one or more
// analytics requests. Failed steps are passed to the answer prompt instead
// of aborting, unless every step failed.
type analyticsQuery struct {
	deps *Deps
}

func (*analyticsQuery) Name() string       { return AnalyticsQuery }
func (*analyticsQuery) Kind() session.Kind { return session.KindAnalyticsQuery }
func (*analyticsQuery) Required() []string { return nil }

func (t *analyticsQuery) Run(ctx context.Context, inv *Invocation) (session.Payload, error) {
	question := strings.TrimSpace(inv.Query)
	if question == "" {
		question = strings.TrimSpace(inv.Params.OriginalQuery)
	}
	if question == "" {
		return nil, &params.ValidationError{Field: "question", Reason: "it is empty"}
	}

	plan, err := t.plan(ctx, question)
	if err != nil {
		return nil, err
	}
	if err := inv.Reply.Send(ctx, describePlan(plan)); err != nil {
		return nil, fmt.Errorf("failed to send status: %w", err)
	}

	steps, errs := t.execute(ctx, plan)
	failed := 0
	var firstErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = upstream(stepLabel(i, steps[i].Purpose), err)
		}
	}
	if failed == len(steps) {
		return nil, firstErr
	}
	if failed > 0 {
		if err := inv.Reply.Send(ctx, fmt.Sprintf("%d of %d queries failed; answering with the data I could fetch.", failed, len(steps))); err != nil {
			return nil, fmt.Errorf("failed to send status: %w", err)
		}
	}

	var prompt string
	if len(steps) == 1 {
		prompt = singleQueryPrompt(question, steps[0].Data)
	} else {
		prompt = multiQueryPrompt(question, steps, plan.Analysis)
	}
	answer, err := t.deps.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if err := inv.Reply.Send(ctx, answer); err != nil {
		return nil, fmt.Errorf("failed to send answer: %w", err)
	}

	return session.AnalyticsQueryPayload{
		Question: question,
		Steps:    steps,
		Analysis: plan.Analysis,
		Answer:   answer,
	}, nil
}

// plan asks the LLM for the requests that answer question.
func (t *analyticsQuery) plan(ctx context.Context, question string) (queryPlan, error) {
	var plan queryPlan
	raw, err := t.deps.LLM.Generate(ctx, queryPlanPrompt(question, t.deps.Markets.Names(), t.deps.DefaultYear))
	if err != nil {
		return plan, upstream(stepQueryPlan, err)
	}
	if err := llm.DecodeJSON(raw, queryPlanSchema, &plan); err != nil {
		t.deps.Logger.Printf("event=query_plan status=malformed err=%v", err)
		return plan, &params.ValidationError{Field: "question", Reason: "I couldn't turn it into an analytics query"}
	}
	if len(plan.Queries) > maxQuerySteps {
		t.deps.Logger.Printf("event=query_plan status=truncated steps=%d max=%d", len(plan.Queries), maxQuerySteps)
		plan.Queries = plan.Queries[:maxQuerySteps]
	}
	return plan, nil
}

// execute runs every planned step in order. errs[i] is non-nil when step i
// failed; the step then carries the error text instead of data.
func (t *analyticsQuery) execute(ctx context.Context, plan queryPlan) ([]session.QueryStep, []error) {
	steps := make([]session.QueryStep, len(plan.Queries))
	errs := make([]error, len(plan.Queries))
	for i, planned := range plan.Queries {
		purpose := strings.TrimSpace(planned.Purpose)
		if purpose == "" {
			purpose = "Query"
		}
		steps[i] = session.QueryStep{Purpose: purpose, Request: planned.Query}

		data, err := t.runStep(ctx, planned.Query)
		if err != nil {
			errs[i] = err
			steps[i].Error = err.Error()
			t.deps.Logger.Printf("event=query_step step=%d status=error err=%v", i+1, err)
			continue
		}
		steps[i].Data = data
		t.deps.Logger.Printf("event=query_step step=%d status=ok bytes=%d", i+1, len(data))
	}
	return steps, errs
}

func (t *analyticsQuery) runStep(ctx context.Context, query json.RawMessage) (json.RawMessage, error) {
	var req analytics.Request
	if err := json.Unmarshal(query, &req); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return t.deps.Analytics.Query(ctx, req)
}

func stepLabel(i int, purpose string) string {
	return fmt.Sprintf("step %d (%s)", i+1, purpose)
}

func describePlan(plan queryPlan) string {
	var b strings.Builder
	if len(plan.Queries) == 1 {
		b.WriteString("Querying the analytics API...")
	} else {
		fmt.Fprintf(&b, "Breaking this down into %d queries:", len(plan.Queries))
		for i, q := range plan.Queries {
			fmt.Fprintf(&b, "\n%d. %s", i+1, strings.TrimSpace(q.Purpose))
		}
	}
	return b.String()
}

func clip(data json.RawMessage) string {
	r := []rune(string(data))
	if len(r) <= maxStepDataRunes {
		return string(r)
	}
	return string(r[:maxStepDataRunes]) + "\n... (truncated)"
}

func queryPlanPrompt(question string, markets []string, defaultYear int) string {
	var b strings.Builder
	b.WriteString("You convert a user's analytics question into requests for the Brand Influence Query API. Follow the API documentation exactly.\n\n")
	fmt.Fprintf(&b, "USER QUERY: %q\n\n", question)
	b.WriteString("--- API DOCUMENTATION ---\n")
	b.WriteString("1. Source `dashboard`: monthly target vs actual metrics.\n")
	b.WriteString("   Payload: {\"source\": \"dashboard\", \"filters\": {\"market\": \"UK\", \"year\": 2025}}\n")
	b.WriteString("   `dashboard` NEVER takes `view`, `sort` or `limit`.\n")
	b.WriteString("2. Source `influencer_analytics`: influencer-level analytics. `view` is REQUIRED.\n")
	b.WriteString("   - `summary`: unique influencers with lifetime stats. Supports `sort` and `limit`.\n")
	fmt.Fprintf(&b, "     Sortable fields (`sort.by`): %s. Order (`sort.order`): asc or desc.\n", strings.Join(analytics.SortFields, ", "))
	b.WriteString("   - `discovery_tiers`: influencers ranked into gold, silver and bronze tiers by effective CAC. No sort or limit.\n")
	b.WriteString("   - `monthly_breakdown`: campaigns grouped by month. No sort or limit.\n")
	fmt.Fprintf(&b, "Filters: `market` (one of %s, or \"All\") and `year`.\n\n", strings.Join(markets, ", "))
	b.WriteString("--- RULES ---\n")
	b.WriteString("1. Use a single query for simple questions; split comparisons or planning questions into several queries.\n")
	fmt.Fprintf(&b, "2. Use at most %d queries.\n", maxQuerySteps)
	fmt.Fprintf(&b, "3. Default `year` to %d and `market` to \"All\" when not given.\n", defaultYear)
	b.WriteString("4. Use `limit` for \"top N\", \"best N\" or \"worst N\" questions in the summary view.\n")
	b.WriteString("   For cost metrics such as `effective_cac_eur` best means `\"order\": \"asc\"`; for performance metrics such as `total_conversions` use `\"order\": \"desc\"`.\n")
	b.WriteString("5. Routing: target vs actual or budget performance -> dashboard; top or best performers -> summary; monthly spending or trends by month -> monthly_breakdown; tiers or discovery -> discovery_tiers.\n")
	b.WriteString("6. Do not invent keys or parameters.\n\n")
	b.WriteString("RESPONSE FORMAT: JSON ONLY:\n")
	b.WriteString(`{"queries": [{"step": 1, "purpose": "...", "query": {"source": "influencer_analytics", "view": "summary", "filters": {"market": "All", "year": 2025}, "sort": {"by": "total_spend_eur", "order": "desc"}, "limit": 10}}], "final_analysis_needed": "..."}`)
	b.WriteString("\n")
	return b.String()
}

func singleQueryPrompt(question string, data json.RawMessage) string {
	var b strings.Builder
	b.WriteString("You are an expert influencer marketing analyst.\n\n")
	fmt.Fprintf(&b, "USER QUERY: %q\n\n", question)
	fmt.Fprintf(&b, "API RESPONSE DATA: %s\n\n", clip(data))
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Directly answer the user's question with specific numbers and key metrics.\n")
	b.WriteString("2. Use bullet points for key findings and a table for comparisons.\n")
	b.WriteString("3. CAC is customer acquisition cost (lower is better); CTR and CVR are click-through and conversion rates (higher is better).\n")
	b.WriteString("4. End with actionable insights.\n")
	b.WriteString("Present insights naturally without saying \"based on the data provided\".\n")
	return b.String()
}

func multiQueryPrompt(question string, steps []session.QueryStep, analysis string) string {
	var b strings.Builder
	b.WriteString("You are an expert influencer marketing strategist analyzing multi-step data.\n\n")
	fmt.Fprintf(&b, "ORIGINAL USER QUERY: %q\n\n", question)
	b.WriteString("DATA COLLECTED:\n")
	for i, step := range steps {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		if step.Error != "" {
			fmt.Fprintf(&b, "Data from '%s' FAILED to load.\nError: %s\nQuery attempted: %s\n", step.Purpose, step.Error, step.Request)
			continue
		}
		fmt.Fprintf(&b, "Data from '%s':\n%s\n", step.Purpose, clip(step.Data))
	}
	if strings.TrimSpace(analysis) != "" {
		fmt.Fprintf(&b, "\nANALYSIS REQUIRED: %s\n", analysis)
	}
	b.WriteString("\nSTRUCTURE YOUR RESPONSE:\n")
	b.WriteString("1. Executive Summary: a direct answer to the question.\n")
	b.WriteString("2. Data Analysis: what the data shows. If some data failed to load, say how that limits the analysis.\n")
	b.WriteString("3. Strategic Recommendations based on the data that loaded.\n")
	b.WriteString("4. Next Steps.\n")
	b.WriteString("Never invent numbers for failed steps.\n")
	return b.String()
}

// successfulSteps drops the failed steps of a stored query.
func successfulSteps(steps []session.QueryStep) []session.QueryStep {
	ok := make([]session.QueryStep, 0, len(steps))
	for _, s := range steps {
		if s.Error == "" {
			ok = append(ok, s)
		}
	}
	return ok
}
