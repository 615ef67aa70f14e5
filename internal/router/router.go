// Package router drives one conversation turn: routing a fresh request,
// answering or pivoting inside a thread that has a session, and slash
// commands. Every turn ends with a user-visible message.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ca-srg/nova/internal/classifier"
	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/session"
	"github.com/ca-srg/nova/internal/tools"
)

var routerTracer = otel.Tracer("nova/router")

var mentionPattern = regexp.MustCompile(`<@[^>]*>`)

// Classifier makes the routing and intent decisions.
type Classifier interface {
	Route(ctx context.Context, query string) classifier.Decision
	Intent(ctx context.Context, message string, sc *session.Context) classifier.Intent
}

// UsageReporter reports per-tool invocation counts for /bot-status.
type UsageReporter interface {
	Today(ctx context.Context) (map[string]int64, error)
	Totals(ctx context.Context) (map[string]int64, error)
}

// Message is one inbound user message.
type Message struct {
	// SessionID is the conversation key: the thread timestamp for thread
	// replies, otherwise the message timestamp.
	SessionID string
	Text      string
	UserID    string
	Reply     tools.Messenger
}

// Router wires the classifier, the tool registry and the session store.
type Router struct {
	classifier Classifier
	registry   *tools.Registry
	store      *session.Store
	usage      UsageReporter
	logger     *log.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithUsage enables usage counts in /bot-status.
func WithUsage(u UsageReporter) Option {
	return func(r *Router) { r.usage = u }
}

// WithLogger sets the router logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a router.
func New(c Classifier, registry *tools.Registry, store *session.Store, opts ...Option) *Router {
	r := &Router{
		classifier: c,
		registry:   registry,
		store:      store,
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StripMentions removes user mentions and surrounding whitespace.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// marketTools cannot run without a market.
var marketTools = map[string]bool{
	tools.MonthlyReview:        true,
	tools.WeeklyReviewByRange:  true,
	tools.WeeklyReviewByNumber: true,
	tools.Plan:                 true,
}

var resetWords = map[string]bool{"reset": true, "clear": true, "forget": true}

// HandleMention handles a message addressed to the bot. A mention inside a
// thread that already has a session is treated like a thread reply.
func (r *Router) HandleMention(ctx context.Context, m Message) error {
	ctx, span := routerTracer.Start(ctx, "router.mention")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", m.SessionID))

	query := StripMentions(m.Text)
	if query == "" {
		return r.say(ctx, m.Reply, "Hello! I'm Nova, how can I help?")
	}
	if sc, ok := r.store.GetAndTouch(m.SessionID); ok {
		return r.continueSession(ctx, m, query, sc)
	}

	if err := r.status(ctx, m.Reply, fmt.Sprintf("Of course! Let me look into: \"_%s_\"...", query)); err != nil {
		return err
	}
	d := r.classifier.Route(ctx, query)
	r.logger.Printf("event=mention session=%s tool=%s", m.SessionID, d.Tool)

	if msg, ok := r.rejection(d, "I can help with that!"); ok {
		return r.status(ctx, m.Reply, msg)
	}
	if err := r.status(ctx, m.Reply, fmt.Sprintf("Understood! Preparing a `*%s*` analysis for you...", d.Tool)); err != nil {
		return err
	}
	return r.dispatch(ctx, m, d.Tool, d.Params, query)
}

// HandleThreadReply handles a non-mention message in a thread. Threads
// without a session are ignored.
func (r *Router) HandleThreadReply(ctx context.Context, m Message) error {
	ctx, span := routerTracer.Start(ctx, "router.thread_reply")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", m.SessionID))

	sc, ok := r.store.GetAndTouch(m.SessionID)
	if !ok {
		return nil
	}
	text := StripMentions(m.Text)
	if text == "" {
		return nil
	}
	return r.continueSession(ctx, m, text, sc)
}

func (r *Router) continueSession(ctx context.Context, m Message, text string, sc *session.Context) error {
	if resetWords[strings.ToLower(strings.Trim(text, " .!"))] {
		r.store.Remove(m.SessionID)
		r.logger.Printf("event=session_reset session=%s", m.SessionID)
		return r.say(ctx, m.Reply, "Context cleared. Mention me with a new request to start over.")
	}

	intent := r.classifier.Intent(ctx, text, sc)
	r.logger.Printf("event=thread_reply session=%s kind=%s intent=%s", m.SessionID, sc.Kind(), intent)
	if intent != classifier.IntentNewCommand {
		return r.registry.FollowUp(ctx, sc, text, m.UserID, m.Reply)
	}

	d := r.classifier.Route(ctx, text)
	if d.Tool == classifier.ToolError {
		return r.say(ctx, m.Reply, "Sorry, I couldn't understand that as a new command.")
	}
	if msg, ok := r.rejection(d, "I can do that!"); ok {
		return r.say(ctx, m.Reply, msg)
	}
	if err := r.say(ctx, m.Reply, fmt.Sprintf("Pivoting to a new analysis: *%s*...", d.Tool)); err != nil {
		return err
	}
	return r.dispatch(ctx, m, d.Tool, d.Params, text)
}

// rejection returns the reply for decisions that must not be dispatched.
func (r *Router) rejection(d classifier.Decision, clarifyLead string) (string, bool) {
	switch {
	case d.IsClarify():
		query := d.Params.OriginalQuery
		if field := d.ClarifyField(); field != params.FieldMarket {
			return fmt.Sprintf("%s Which %s are you interested in for the query: \"_%s_\"?", clarifyLead, strings.ReplaceAll(field, "_", " "), query), true
		}
		return fmt.Sprintf("%s Which market are you interested in for the query: \"_%s_\"?", clarifyLead, query), true
	case d.Tool == classifier.ToolError:
		reason := d.Params.Reason
		if reason == "" {
			reason = "I couldn't understand that."
		}
		return fmt.Sprintf("My apologies, %s Could you please rephrase?", reason), true
	case marketTools[d.Tool] && d.Params.Market == "":
		return "It looks like a market is missing for that request. Which market should I analyze?", true
	}
	var verr *params.ValidationError
	if errors.As(d.Err, &verr) {
		return fmt.Sprintf("My apologies, the %s looks wrong (%s). Could you please rephrase?", strings.ReplaceAll(verr.Field, "_", " "), verr.Reason), true
	}
	return "", false
}

func (r *Router) dispatch(ctx context.Context, m Message, tool string, p params.Params, query string) error {
	_, err := r.registry.Dispatch(ctx, tool, &tools.Invocation{
		SessionID: m.SessionID,
		Params:    p,
		Query:     query,
		UserID:    m.UserID,
		Reply:     m.Reply,
	})
	// Dispatch has already told the user what went wrong.
	if err != nil {
		r.logger.Printf("event=dispatch session=%s tool=%s status=error err=%v", m.SessionID, tool, err)
	}
	return nil
}

func (r *Router) say(ctx context.Context, reply tools.Messenger, text string) error {
	if err := reply.Send(ctx, text); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// status replaces the transient status line when the messenger supports it.
func (r *Router) status(ctx context.Context, reply tools.Messenger, text string) error {
	if sm, ok := reply.(tools.StatusMessenger); ok {
		if err := sm.Status(ctx, text); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		return nil
	}
	return r.say(ctx, reply, text)
}
