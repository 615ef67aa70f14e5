// Package session keeps the per-thread conversation context that lets
// follow-up questions be answered without querying the analytics API again.
package session

import (
	"time"

	"github.com/ca-srg/nova/internal/params"
)

// Kind identifies the tool that produced a context and therefore the only
// follow-up handler allowed to read it.
type Kind string

const (
	KindMonthlyReview      Kind = "monthly_review"
	KindWeeklyReview       Kind = "weekly_review"
	KindInfluencerAnalysis Kind = "influencer_analysis"
	KindInfluencerTrend    Kind = "influencer_trend"
	KindStrategicPlan      Kind = "strategic_plan"
	KindAnalyticsQuery     Kind = "analytics_query"
)

// Context is an immutable snapshot of one successful tool invocation.
type Context struct {
	id        string
	kind      Kind
	createdAt time.Time
	params    params.Params
	payload   Payload
}

// NewContext builds a context. The kind is taken from the payload variant.
// It panics on a nil payload.
func NewContext(id string, p params.Params, payload Payload, now time.Time) *Context {
	if payload == nil {
		panic("session: nil payload")
	}
	return &Context{
		id:        id,
		kind:      payload.Kind(),
		createdAt: now,
		params:    p,
		payload:   payload,
	}
}

func (c *Context) ID() string           { return c.id }
func (c *Context) Kind() Kind           { return c.kind }
func (c *Context) CreatedAt() time.Time { return c.createdAt }

// Parameters returns a copy of the parameters used for the invocation.
func (c *Context) Parameters() params.Params { return c.params }

// Payload returns the tool output. Callers must treat it as read-only.
func (c *Context) Payload() Payload { return c.payload }
