package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/session"
)

var toolsTracer = otel.Tracer("nova/tools")

// Registry is the static table of tools.
type Registry struct {
	deps     *Deps
	handlers map[string]Handler
}

// NewRegistry builds the table with every tool. deps.Analytics, deps.LLM and
// deps.Store are required.
func NewRegistry(deps Deps) *Registry {
	if deps.Store == nil {
		panic("tools: nil session store")
	}
	if deps.Markets == nil {
		deps.Markets = params.DefaultMarkets()
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DefaultYear <= 0 {
		deps.DefaultYear = deps.Now().Year()
	}
	if deps.PlanCAC <= 0 {
		deps.PlanCAC = 50
	}
	if deps.PlanFillRatio <= 0 || deps.PlanFillRatio > 1 {
		deps.PlanFillRatio = 0.98
	}

	r := &Registry{deps: &deps, handlers: make(map[string]Handler)}
	for _, h := range []Handler{
		&monthlyReview{deps: r.deps},
		&weeklyByRange{deps: r.deps},
		&weeklyByNumber{deps: r.deps},
		&influencerAnalysis{deps: r.deps},
		&influencerTrend{deps: r.deps},
		&strategicPlan{deps: r.deps},
		&analyticsQuery{deps: r.deps},
	} {
		r.handlers[h.Name()] = h
	}
	return r
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs tool for inv. Every failure is reported to inv.Reply and
// returned; only a successful run stores a context, under inv.SessionID.
func (r *Registry) Dispatch(ctx context.Context, tool string, inv *Invocation) (*session.Context, error) {
	ctx, span := toolsTracer.Start(ctx, "tools.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", tool))

	start := time.Now()
	sc, err := r.dispatch(ctx, tool, inv)
	outcome := outcomeOf(err)
	recordDispatch(ctx, tool, outcome, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		r.deps.Logger.Printf("event=tool_dispatch tool=%s session=%s status=%s elapsed=%s err=%v", tool, inv.SessionID, outcome, time.Since(start), err)
		return nil, err
	}
	r.deps.Logger.Printf("event=tool_dispatch tool=%s session=%s status=ok kind=%s elapsed=%s", tool, inv.SessionID, sc.Kind(), time.Since(start))
	return sc, nil
}

func (r *Registry) dispatch(ctx context.Context, tool string, inv *Invocation) (*session.Context, error) {
	h, ok := r.handlers[tool]
	if !ok {
		r.say(ctx, inv.Reply, fmt.Sprintf("Sorry, I don't know how to run `%s`.", tool))
		return nil, fmt.Errorf("unknown tool %q", tool)
	}

	if missing := inv.Params.Missing(h.Required()); len(missing) > 0 {
		err := &ValidationError{Tool: tool, Fields: missing}
		r.report(ctx, inv.Reply, err)
		return nil, err
	}

	if r.deps.Usage != nil {
		if err := r.deps.Usage.Record(ctx, tool); err != nil {
			r.deps.Logger.Printf("event=usage_record tool=%s status=error err=%v", tool, err)
		}
	}

	payload, err := h.Run(ctx, inv)
	if err != nil {
		r.report(ctx, inv.Reply, err)
		return nil, err
	}
	if payload == nil {
		err := fmt.Errorf("%s returned no result", tool)
		r.report(ctx, inv.Reply, err)
		return nil, err
	}

	sc := session.NewContext(inv.SessionID, inv.Params, payload, r.deps.Now())
	r.deps.Store.Put(inv.SessionID, sc)
	return sc, nil
}

// report turns a tool error into the user-facing message.
func (r *Registry) report(ctx context.Context, reply Messenger, err error) {
	var (
		empty   *EmptyResultError
		up      *UpstreamError
		missing *ValidationError
		invalid *params.ValidationError
		message string
	)
	switch {
	case errors.As(err, &empty):
		message = empty.Message
	case errors.As(err, &missing):
		message = fmt.Sprintf("A required parameter was missing: %s.", quoteFields(missing.Fields))
	case errors.As(err, &invalid):
		message = fmt.Sprintf("Invalid %s: %s. Could you please rephrase?", invalid.Field, invalid.Reason)
	case errors.As(err, &up):
		message = fmt.Sprintf("API Error while fetching %s: `%s`", up.Step, summarize(up.Cause))
	default:
		message = fmt.Sprintf("Sorry, something went wrong: `%s`", summarize(err))
	}
	r.say(ctx, reply, message)
}

func (r *Registry) say(ctx context.Context, reply Messenger, text string) {
	if reply == nil {
		return
	}
	if err := reply.Send(ctx, text); err != nil {
		r.deps.Logger.Printf("event=reply status=error err=%v", err)
	}
}

func outcomeOf(err error) string {
	var (
		empty   *EmptyResultError
		up      *UpstreamError
		missing *ValidationError
		invalid *params.ValidationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &empty):
		return "empty"
	case errors.As(err, &missing), errors.As(err, &invalid):
		return "invalid"
	case errors.As(err, &up):
		return "upstream_error"
	default:
		return "error"
	}
}

func quoteFields(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = "`" + f + "`"
	}
	return strings.Join(quoted, ", ")
}

func summarize(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if r := []rune(msg); len(r) > 300 {
		msg = string(r[:300]) + "…"
	}
	return msg
}

func containsAny(text string, keywords ...string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
