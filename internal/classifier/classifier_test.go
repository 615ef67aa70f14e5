package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/nova/internal/llm"
	"github.com/ca-srg/nova/internal/llm/llmtest"
	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/session"
)

var testTools = []string{"monthly-review", "weekly-review-by-range", "weekly-review-by-number", "analyse-influencer", "influencer-trend", "plan", "analytics-query"}

func newClassifier(client llm.Client) *Classifier {
	return New(client, params.NewNormalizer(nil, 2025), testTools, nil)
}

func TestRoute_NormalizesParameters(t *testing.T) {
	script := llmtest.New().On("routing assistant", "```json\n"+`{"tool_name":"monthly-review","parameters":{"market":"united kingdom","month_abbr":"dec","month_full":"December"}}`+"\n```")

	d := newClassifier(script).Route(context.Background(), "how did the UK do in December")
	require.NoError(t, d.Err)
	assert.Equal(t, "monthly-review", d.Tool)
	assert.Equal(t, "UK", d.Params.Market)
	assert.Equal(t, "Dec", d.Params.MonthAbbr)
	assert.Equal(t, "December", d.Params.MonthFull)
	assert.Equal(t, 2025, d.Params.Year)
	assert.Contains(t, script.Prompts()[0], "how did the UK do in December")
	assert.Contains(t, script.Prompts()[0], "`plan`")
}

func TestRoute_AdHocQuestion(t *testing.T) {
	script := llmtest.New().On("routing assistant", `{"tool_name":"analytics-query","parameters":{}}`)

	d := newClassifier(script).Route(context.Background(), "top 10 influencers by total spend")
	require.NoError(t, d.Err)
	assert.Equal(t, "analytics-query", d.Tool)
	assert.Equal(t, "top 10 influencers by total spend", d.Params.OriginalQuery)
	assert.Contains(t, script.Prompts()[0], "top N influencers by spend")
}

func TestRoute_FallbackIsDeterministic(t *testing.T) {
	testcases := []struct {
		name   string
		script *llmtest.Scripted
		reason string
	}{
		{"not json", llmtest.New().On(".", "I think you want a monthly review"), reasonNotUnderstood},
		{"missing tool_name", llmtest.New().On(".", `{"parameters":{"market":"UK"}}`), reasonNotUnderstood},
		{"wrong type", llmtest.New().On(".", `{"tool_name":42}`), reasonNotUnderstood},
		{"unknown tool", llmtest.New().On(".", `{"tool_name":"delete-everything","parameters":{}}`), reasonNotUnderstood},
		{"llm down", llmtest.New().Fail(".", &llm.UnavailableError{Provider: "gemini", Cause: errors.New("503")}), reasonUnavailable},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClassifier(tc.script)
			for i := 0; i < 3; i++ {
				d := c.Route(context.Background(), "something")
				assert.Equal(t, ToolError, d.Tool)
				assert.Equal(t, tc.reason, d.Params.Reason)
				assert.Error(t, d.Err)
			}
		})
	}
}

func TestRoute_ErrorToolKeepsReason(t *testing.T) {
	script := llmtest.New().On(".", `{"tool_name":"error","parameters":{"reason":"I only know about influencer marketing."}}`)
	d := newClassifier(script).Route(context.Background(), "weather?")
	assert.Equal(t, ToolError, d.Tool)
	assert.Equal(t, "I only know about influencer marketing.", d.Params.Reason)
}

func TestRoute_Clarify(t *testing.T) {
	script := llmtest.New().On(".", `{"tool_name":"clarify-market","parameters":{"original_query":"monthly review for June"}}`)
	d := newClassifier(script).Route(context.Background(), "monthly review for June")
	assert.True(t, d.IsClarify())
	assert.Equal(t, "market", d.ClarifyField())
	assert.Equal(t, "monthly review for June", d.Params.OriginalQuery)
	assert.NoError(t, d.Err)
}

func TestRoute_InvalidParameterKeepsTool(t *testing.T) {
	script := llmtest.New().On(".", `{"tool_name":"monthly-review","parameters":{"market":"UK","month_full":"Smarch"}}`)
	d := newClassifier(script).Route(context.Background(), "UK in Smarch")
	assert.Equal(t, "monthly-review", d.Tool)
	var verr *params.ValidationError
	require.ErrorAs(t, d.Err, &verr)
	assert.Equal(t, params.FieldMonth, verr.Field)
}

func TestIntent(t *testing.T) {
	sc := session.NewContext("1.1", params.Params{Market: "France", MonthFull: "November", Year: 2025}, session.MonthlyReviewPayload{}, time.Now())

	testcases := []struct {
		name   string
		script *llmtest.Scripted
		want   Intent
	}{
		{"new command", llmtest.New().On("intent detection", `{"intent":"new_command"}`), IntentNewCommand},
		{"follow up", llmtest.New().On("intent detection", "```json\n{\"intent\":\"follow-up\"}\n```"), IntentFollowUp},
		{"garbage", llmtest.New().On(".", "new command please"), IntentFollowUp},
		{"unknown value", llmtest.New().On(".", `{"intent":"pivot"}`), IntentFollowUp},
		{"llm down", llmtest.New().Fail(".", errors.New("timeout")), IntentFollowUp},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClassifier(tc.script)
			for i := 0; i < 3; i++ {
				assert.Equal(t, tc.want, c.Intent(context.Background(), "now show me June", sc))
			}
		})
	}

	script := llmtest.New().On(".", `{"intent":"follow-up"}`)
	newClassifier(script).Intent(context.Background(), "what about spend?", sc)
	prompt := script.Prompts()[0]
	assert.Contains(t, prompt, "monthly_review")
	assert.Contains(t, prompt, "France")
	assert.Contains(t, prompt, "what about spend?")
}
