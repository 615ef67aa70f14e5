package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/nova/internal/classifier"
	"github.com/ca-srg/nova/internal/llm/llmtest"
	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/session"
	"github.com/ca-srg/nova/internal/tools"
	"github.com/ca-srg/nova/internal/tools/toolstest"
)

const (
	monthlyRoute = `{"tool_name":"monthly-review","parameters":{"market":"uk","month_abbr":"Dec","month_full":"December","year":2025}}`
	weeklyRoute  = `{"tool_name":"weekly-review-by-range","parameters":{"market":"france","start_date":"2025-06-01","end_date":"2025-06-07","year":2025}}`

	targetsBody = `{"monthly_detail":[{"month":"Dec","target_budget_clean":5000}]}`
	actualsBody = `{"monthly_data":[{"budget_spent_eur":1200}],"metrics":{"budget_spent_eur":1200}}`
	weeklyBody  = `{"summary":{"spend":900},"details":[{"influencer_name":"Ada"}]}`
)

var fixedTime = time.Date(2025, 12, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	llm    *llmtest.Scripted
	api    *toolstest.Analytics
	store  *session.Store
	reply  *toolstest.Messenger
	router *Router
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		llm:   llmtest.New(),
		api:   toolstest.NewAnalytics(),
		store: session.NewStore(session.Config{MaxContexts: 20}),
		reply: &toolstest.Messenger{},
	}
	registry := tools.NewRegistry(tools.Deps{Analytics: f.api, LLM: f.llm, Store: f.store})
	c := classifier.New(f.llm, params.NewNormalizer(nil, 2025), registry.Names(), nil)
	f.router = New(c, registry, f.store, opts...)
	return f
}

func (f *fixture) message(id, text string) Message {
	return Message{SessionID: id, Text: text, UserID: "U1", Reply: f.reply}
}

func (f *fixture) seedMonthly(t *testing.T, id string) *session.Context {
	t.Helper()
	sc := session.NewContext(id,
		params.Params{Market: "UK", MonthAbbr: "Dec", MonthFull: "December", Year: 2025},
		session.MonthlyReviewPayload{TargetBudget: 5000, Actuals: []byte(actualsBody)},
		fixedTime)
	f.store.Put(id, sc)
	return sc
}

func TestStripMentions(t *testing.T) {
	assert.Equal(t, "monthly review UK", StripMentions("<@U123> monthly review UK "))
	assert.Equal(t, "", StripMentions("<@U123>"))
}

func TestHandleMention_Empty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.router.HandleMention(context.Background(), f.message("1.0", "<@UBOT>")))
	assert.Equal(t, []string{"Hello! I'm Nova, how can I help?"}, f.reply.Messages())
	assert.Equal(t, 0, f.llm.Calls())
}

func TestHandleMention_NewSession(t *testing.T) {
	f := newFixture(t)
	f.llm.On("routing assistant", monthlyRoute).On("monthly performance review", "December went well.")
	f.api.On("dashboard", targetsBody).On("influencer_analytics/monthly_breakdown", actualsBody)

	err := f.router.HandleMention(context.Background(), f.message("1.0", "<@UBOT> monthly review for UK December"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Of course! Let me look into: \"_monthly review for UK December_\"...",
		"Understood! Preparing a `*monthly-review*` analysis for you...",
		"December went well.",
	}, f.reply.Messages())

	sc, ok := f.store.GetAndTouch("1.0")
	require.True(t, ok)
	assert.Equal(t, session.KindMonthlyReview, sc.Kind())
	assert.Equal(t, "UK", sc.Parameters().Market)
}

func TestHandleMention_AdHocQuestion(t *testing.T) {
	f := newFixture(t)
	f.llm.
		On("routing assistant", `{"tool_name":"analytics-query","parameters":{}}`).
		On("Brand Influence Query API", `{"queries":[{"step":1,"purpose":"Lowest CAC","query":{"source":"influencer_analytics","view":"summary","filters":{"market":"All"},"sort":{"by":"effective_cac_eur","order":"asc"},"limit":10}}]}`).
		On("expert influencer marketing analyst", "Ada has the lowest CAC.")
	f.api.On("influencer_analytics/summary", `[{"influencer_name":"Ada","effective_cac_eur":3.1}]`)

	err := f.router.HandleMention(context.Background(), f.message("2.0", "<@UBOT> show me 10 influencers with the lowest CAC"))
	require.NoError(t, err)
	assert.Equal(t, "Ada has the lowest CAC.", f.reply.Last())

	sc, ok := f.store.GetAndTouch("2.0")
	require.True(t, ok)
	assert.Equal(t, session.KindAnalyticsQuery, sc.Kind())
	assert.Equal(t, "show me 10 influencers with the lowest CAC",
		sc.Payload().(session.AnalyticsQueryPayload).Question)
}

func TestHandleMention_Rejections(t *testing.T) {
	testcases := []struct {
		name  string
		route string
		want  string
	}{
		{
			name:  "clarify market",
			route: `{"tool_name":"clarify-market","parameters":{"original_query":"how did we do in June"}}`,
			want:  "I can help with that! Which market are you interested in for the query: \"_how did we do in June_\"?",
		},
		{
			name:  "market missing",
			route: `{"tool_name":"plan","parameters":{"month_abbr":"Jun","month_full":"June","year":2025}}`,
			want:  "It looks like a market is missing for that request. Which market should I analyze?",
		},
		{
			name:  "error with reason",
			route: `{"tool_name":"error","parameters":{"reason":"I only know about influencer campaigns."}}`,
			want:  "My apologies, I only know about influencer campaigns. Could you please rephrase?",
		},
		{
			name:  "malformed",
			route: `sure, let me do that`,
			want:  "My apologies, I couldn't understand that. Could you please rephrase?",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.llm.On("routing assistant", tc.route)

			require.NoError(t, f.router.HandleMention(context.Background(), f.message("1.0", "how did we do in June")))
			assert.Equal(t, tc.want, f.reply.Last())
			assert.Equal(t, 0, f.api.Calls())
			assert.Equal(t, 0, f.store.Len())
		})
	}
}

func TestHandleMention_FailedDispatchCreatesNoSession(t *testing.T) {
	f := newFixture(t)
	f.llm.On("routing assistant", monthlyRoute)
	f.api.Fail("dashboard", errors.New("connection refused"))

	require.NoError(t, f.router.HandleMention(context.Background(), f.message("1.0", "monthly review UK December")))
	assert.Contains(t, f.reply.Last(), "API Error")
	assert.Equal(t, 0, f.store.Len())
}

func TestHandleThreadReply_IgnoredWithoutSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.router.HandleThreadReply(context.Background(), f.message("9.9", "what about June?")))
	assert.Empty(t, f.reply.Messages())
	assert.Equal(t, 0, f.llm.Calls())
}

func TestHandleThreadReply_FollowUp(t *testing.T) {
	f := newFixture(t)
	f.seedMonthly(t, "1.0")
	f.llm.On("intent detection", `{"intent":"follow-up"}`).On("User's Follow-up", "You spent 1,200 EUR.")

	require.NoError(t, f.router.HandleThreadReply(context.Background(), f.message("1.0", "how much did we spend?")))
	assert.Equal(t, []string{"You spent 1,200 EUR."}, f.reply.Messages())
	assert.Equal(t, 0, f.api.Calls())
	assert.Equal(t, 1, f.store.Len())
}

func TestHandleThreadReply_IntentFailureFallsBackToFollowUp(t *testing.T) {
	f := newFixture(t)
	f.seedMonthly(t, "1.0")
	f.llm.On("intent detection", "not json").On("User's Follow-up", "Answer from context.")

	require.NoError(t, f.router.HandleThreadReply(context.Background(), f.message("1.0", "and conversions?")))
	assert.Equal(t, "Answer from context.", f.reply.Last())
}

func TestHandleThreadReply_PivotReplacesContext(t *testing.T) {
	f := newFixture(t)
	previous := f.seedMonthly(t, "1.0")
	f.llm.
		On("intent detection", `{"intent":"new_command"}`).
		On("routing assistant", weeklyRoute).
		On("concise performance review", "France had a strong first week of June.")
	f.api.On("influencer_analytics/custom_range_breakdown", weeklyBody)

	require.NoError(t, f.router.HandleThreadReply(context.Background(), f.message("1.0", "now show France June 1 to 7")))

	assert.Equal(t, []string{
		"Pivoting to a new analysis: *weekly-review-by-range*...",
		"France had a strong first week of June.",
	}, f.reply.Messages())

	sc, ok := f.store.GetAndTouch("1.0")
	require.True(t, ok)
	assert.NotSame(t, previous, sc)
	assert.Equal(t, session.KindWeeklyReview, sc.Kind())
	assert.Equal(t, "France", sc.Parameters().Market)
	assert.Equal(t, 1, f.store.Len())
}

func TestHandleThreadReply_FailedPivotKeepsContext(t *testing.T) {
	f := newFixture(t)
	previous := f.seedMonthly(t, "1.0")
	f.llm.On("intent detection", `{"intent":"new_command"}`).On("routing assistant", weeklyRoute)
	f.api.Fail("influencer_analytics/custom_range_breakdown", errors.New("timeout"))

	require.NoError(t, f.router.HandleThreadReply(context.Background(), f.message("1.0", "now France June 1 to 7")))

	sc, ok := f.store.GetAndTouch("1.0")
	require.True(t, ok)
	assert.Same(t, previous, sc)
}

func TestHandleThreadReply_PivotNotUnderstood(t *testing.T) {
	f := newFixture(t)
	f.seedMonthly(t, "1.0")
	f.llm.On("intent detection", `{"intent":"new_command"}`).On("routing assistant", `{"tool_name":"error"}`)

	require.NoError(t, f.router.HandleThreadReply(context.Background(), f.message("1.0", "do something else")))
	assert.Equal(t, "Sorry, I couldn't understand that as a new command.", f.reply.Last())
	assert.Equal(t, 1, f.store.Len())
}

func TestHandleThreadReply_Reset(t *testing.T) {
	f := newFixture(t)
	f.seedMonthly(t, "1.0")

	require.NoError(t, f.router.HandleThreadReply(context.Background(), f.message("1.0", "reset")))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, 0, f.llm.Calls())
	assert.Contains(t, f.reply.Last(), "Context cleared")
}

func TestHandleMention_InThreadWithSessionFollowsUp(t *testing.T) {
	f := newFixture(t)
	f.seedMonthly(t, "1.0")
	f.llm.On("intent detection", `{"intent":"follow-up"}`).On("User's Follow-up", "Yes.")

	require.NoError(t, f.router.HandleMention(context.Background(), f.message("1.0", "<@UBOT> was it on target?")))
	assert.Equal(t, []string{"Yes."}, f.reply.Messages())
}

type statusMessenger struct {
	toolstest.Messenger
	statuses []string
}

func (s *statusMessenger) Status(_ context.Context, text string) error {
	s.statuses = append(s.statuses, text)
	return nil
}

func TestHandleMention_UsesStatusLine(t *testing.T) {
	f := newFixture(t)
	f.llm.On("routing assistant", `{"tool_name":"error"}`)
	sm := &statusMessenger{}

	require.NoError(t, f.router.HandleMention(context.Background(), Message{SessionID: "1.0", Text: "hi there", Reply: sm}))
	assert.Len(t, sm.statuses, 2)
	assert.True(t, strings.HasPrefix(sm.statuses[1], "My apologies"))
	assert.Empty(t, sm.Messages())
}
