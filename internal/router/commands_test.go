package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsage struct {
	today, totals map[string]int64
	err           error
}

func (f fakeUsage) Today(context.Context) (map[string]int64, error)  { return f.today, f.err }
func (f fakeUsage) Totals(context.Context) (map[string]int64, error) { return f.totals, f.err }

func (f *fixture) command(name, text string) Command {
	return Command{Name: name, Message: f.message("2.0", text)}
}

func TestHandleCommand_MonthlyReview(t *testing.T) {
	f := newFixture(t)
	f.llm.On("routing assistant", monthlyRoute).On("monthly performance review", "Review done.")
	f.api.On("dashboard", targetsBody).On("influencer_analytics/monthly_breakdown", actualsBody)

	require.NoError(t, f.router.HandleCommand(context.Background(), f.command("/monthly-review", "UK-December-2025")))

	assert.Contains(t, f.llm.Prompts()[0], `"monthly review for UK December 2025"`)
	assert.Equal(t, "Review done.", f.reply.Last())
	_, ok := f.store.GetAndTouch("2.0")
	assert.True(t, ok)
}

func TestHandleCommand_WeeklyKeepsDates(t *testing.T) {
	f := newFixture(t)
	f.llm.On("routing assistant", weeklyRoute).On("concise performance review", "Week done.")
	f.api.On("influencer_analytics/custom_range_breakdown", weeklyBody)

	require.NoError(t, f.router.HandleCommand(context.Background(), f.command("/weekly-review", "France from 2025-06-01 to 2025-06-07")))
	assert.Contains(t, f.llm.Prompts()[0], "weekly review for France from 2025-06-01 to 2025-06-07")
	assert.Equal(t, "Week done.", f.reply.Last())
}

func TestHandleCommand_ToolMismatchShowsUsage(t *testing.T) {
	f := newFixture(t)
	f.llm.On("routing assistant", monthlyRoute)

	require.NoError(t, f.router.HandleCommand(context.Background(), f.command("/plan", "something odd")))
	assert.Equal(t, "Invalid format. Use `/plan Market-Month-Year`", f.reply.Last())
	assert.Equal(t, 0, f.api.Calls())
	assert.Equal(t, 0, f.store.Len())
}

func TestHandleCommand_WeeklyWithoutMarketShowsUsage(t *testing.T) {
	f := newFixture(t)
	f.llm.On("routing assistant", `{"tool_name":"weekly-review-by-number","parameters":{"week_number":36}}`)

	require.NoError(t, f.router.HandleCommand(context.Background(), f.command("/weekly-review", "week 36")))
	assert.Equal(t, "Invalid format. Use `/weekly-review UK from 2025-06-01 to 2025-06-07` or `/weekly-review UK week 36`", f.reply.Last())
}

func TestHandleCommand_Unknown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.router.HandleCommand(context.Background(), f.command("/deploy", "prod")))
	assert.Equal(t, "Unknown command `/deploy`.", f.reply.Last())
}

func TestHandleCommand_BotStatus(t *testing.T) {
	f := newFixture(t, WithUsage(fakeUsage{
		today:  map[string]int64{"plan": 1},
		totals: map[string]int64{"plan": 4, "monthly-review": 7},
	}))
	f.seedMonthly(t, "1.0")

	require.NoError(t, f.router.HandleCommand(context.Background(), f.command("/bot-status", "")))
	assert.Equal(t, "Bot Status: All systems operational!\n"+
		"Active conversations: 1\n"+
		"*Today:* plan 1\n"+
		"*All time:* monthly-review 7, plan 4", f.reply.Last())
}

func TestHandleCommand_BotStatusUsageError(t *testing.T) {
	f := newFixture(t, WithUsage(fakeUsage{err: errors.New("database is locked")}))

	require.NoError(t, f.router.HandleCommand(context.Background(), f.command("/bot-status", "")))
	assert.Equal(t, "Bot Status: All systems operational!\nActive conversations: 0", f.reply.Last())
}

func TestCommandNames(t *testing.T) {
	assert.Equal(t, []string{
		"/analyse-influencer",
		"/bot-status",
		"/influencer-trend",
		"/monthly-review",
		"/plan",
		"/weekly-review",
	}, CommandNames())
}
