// Package tools implements the analytics tools a conversation can be routed
// to and the table that dispatches them.
package tools

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ca-srg/nova/internal/analytics"
	"github.com/ca-srg/nova/internal/llm"
	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/session"
)

// Tool names.
const (
	MonthlyReview        = "monthly-review"
	WeeklyReviewByRange  = "weekly-review-by-range"
	WeeklyReviewByNumber = "weekly-review-by-number"
	AnalyseInfluencer    = "analyse-influencer"
	InfluencerTrend      = "influencer-trend"
	Plan                 = "plan"
	AnalyticsQuery       = "analytics-query"
)

// File is an attachment sent to the conversation.
type File struct {
	Name        string
	Title       string
	Comment     string
	ContentType string
	Content     []byte
}

// Messenger delivers replies to the conversation a request came from.
type Messenger interface {
	Send(ctx context.Context, text string) error
	Upload(ctx context.Context, f File) error
}

// StatusMessenger is a Messenger that keeps one editable status line, so
// progress notes replace each other instead of piling up.
type StatusMessenger interface {
	Messenger
	Status(ctx context.Context, text string) error
}

// Invocation is the input of one tool run.
type Invocation struct {
	SessionID string
	Params    params.Params
	// Query is the user's original wording; it selects full vs concise answers.
	Query  string
	UserID string
	Reply  Messenger
}

// Handler is one tool. Run sends its own replies and returns the payload to
// remember for follow-ups; any error means nothing is stored.
type Handler interface {
	Name() string
	Kind() session.Kind
	Required() []string
	Run(ctx context.Context, inv *Invocation) (session.Payload, error)
}

// Querier is the analytics API.
type Querier interface {
	Query(ctx context.Context, req analytics.Request) (json.RawMessage, error)
}

// Archiver stores generated report files.
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// UsageRecorder counts tool invocations.
type UsageRecorder interface {
	Record(ctx context.Context, tool string) error
}

// Deps are the collaborators shared by all tools.
type Deps struct {
	Analytics Querier
	LLM       llm.Client
	Store     *session.Store
	Markets   *params.Markets

	// DefaultYear fills the year of ad-hoc queries that name none.
	DefaultYear int

	// Plan assumptions.
	PlanCAC       float64
	PlanFillRatio float64

	// Optional.
	Archiver Archiver
	Usage    UsageRecorder
	Logger   *log.Logger
	Now      func() time.Time
}
