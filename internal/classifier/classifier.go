// Package classifier turns free text into routing and intent decisions using
// an LLM, falling back to fixed answers whenever the output is unusable.
package classifier

import (
	"context"
	"io"
	"log"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ca-srg/nova/internal/llm"
	"github.com/ca-srg/nova/internal/params"
	"github.com/ca-srg/nova/internal/session"
)

// Sentinel tool names.
const (
	ToolError         = "error"
	ToolClarifyMarket = "clarify-market"
	clarifyPrefix     = "clarify-"
)

// Intent of a message sent in a thread that already has a session.
type Intent string

const (
	IntentFollowUp   Intent = "follow-up"
	IntentNewCommand Intent = "new_command"
)

const (
	reasonNotUnderstood = "I couldn't understand that."
	reasonUnavailable   = "I couldn't reach the language model just now."
)

// Decision is the outcome of routing one query.
type Decision struct {
	// Tool is a registered tool name, ToolError or a clarify-<field> sentinel.
	Tool   string
	Params params.Params
	// Raw is the unparsed LLM output, kept for logging.
	Raw string
	// Err is set when a fallback was applied or a parameter failed to
	// normalize. A *params.ValidationError keeps the routed Tool.
	Err error
}

// IsClarify reports whether the decision asks the user for a missing field.
func (d Decision) IsClarify() bool { return strings.HasPrefix(d.Tool, clarifyPrefix) }

// ClarifyField returns the field named by a clarify sentinel.
func (d Decision) ClarifyField() string { return strings.TrimPrefix(d.Tool, clarifyPrefix) }

var routeSchema = llm.MustResolve(&jsonschema.Schema{
	Type:     "object",
	Required: []string{"tool_name"},
	Properties: map[string]*jsonschema.Schema{
		"tool_name":  {Type: "string"},
		"parameters": {Types: []string{"object", "null"}},
	},
})

var intentSchema = llm.MustResolve(&jsonschema.Schema{
	Type:     "object",
	Required: []string{"intent"},
	Properties: map[string]*jsonschema.Schema{
		"intent": {Type: "string", Enum: []any{string(IntentFollowUp), string(IntentNewCommand), "follow_up"}},
	},
})

var classifierTracer = otel.Tracer("nova/classifier")

// Classifier calls the LLM for routing and intent decisions.
type Classifier struct {
	llm        llm.Client
	normalizer *params.Normalizer
	tools      []string
	known      map[string]bool
	logger     *log.Logger
}

// New creates a classifier that can route to the given tool names.
func New(client llm.Client, normalizer *params.Normalizer, tools []string, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if normalizer == nil {
		normalizer = params.NewNormalizer(nil, 0)
	}
	known := make(map[string]bool, len(tools))
	for _, name := range tools {
		known[name] = true
	}
	return &Classifier{
		llm:        client,
		normalizer: normalizer,
		tools:      append([]string(nil), tools...),
		known:      known,
		logger:     logger,
	}
}

type routeResponse struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters"`
}

// Route maps query to a tool. It never fails: unusable LLM output yields
// Tool == ToolError with a reason suitable for the user.
func (c *Classifier) Route(ctx context.Context, query string) Decision {
	ctx, span := classifierTracer.Start(ctx, "classifier.route")
	defer span.End()

	prompt := buildRoutePrompt(query, c.tools, c.normalizer.Markets().Names(), c.normalizer.DefaultYear())
	raw, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		c.logger.Printf("event=route status=llm_error err=%v", err)
		span.SetAttributes(attribute.String("classifier.tool", ToolError))
		return Decision{Tool: ToolError, Params: params.Params{Reason: reasonUnavailable, OriginalQuery: query}, Err: err}
	}

	var resp routeResponse
	if err := llm.DecodeJSON(raw, routeSchema, &resp); err != nil {
		c.logger.Printf("event=route status=malformed err=%v raw=%q", err, truncate(raw, 300))
		span.SetAttributes(attribute.String("classifier.tool", ToolError))
		return Decision{Tool: ToolError, Params: params.Params{Reason: reasonNotUnderstood, OriginalQuery: query}, Raw: raw, Err: err}
	}

	tool := strings.ToLower(strings.TrimSpace(resp.ToolName))
	p, perr := c.normalizer.Normalize(resp.Parameters)
	if p.OriginalQuery == "" {
		p.OriginalQuery = query
	}

	d := Decision{Tool: tool, Params: p, Raw: raw}
	switch {
	case tool == ToolError:
		if p.Reason == "" {
			d.Params.Reason = reasonNotUnderstood
		}
	case strings.HasPrefix(tool, clarifyPrefix):
	case !c.known[tool]:
		c.logger.Printf("event=route status=unknown_tool tool=%q", resp.ToolName)
		d = Decision{Tool: ToolError, Params: params.Params{Reason: reasonNotUnderstood, OriginalQuery: query}, Raw: raw, Err: llm.ErrMalformed}
	default:
		d.Err = perr
	}

	span.SetAttributes(attribute.String("classifier.tool", d.Tool))
	c.logger.Printf("event=route status=ok tool=%s market=%q year=%d", d.Tool, d.Params.Market, d.Params.Year)
	return d
}

type intentResponse struct {
	Intent string `json:"intent"`
}

// Intent decides whether message continues sc or starts a new command.
// Failures default to IntentFollowUp.
func (c *Classifier) Intent(ctx context.Context, message string, sc *session.Context) Intent {
	ctx, span := classifierTracer.Start(ctx, "classifier.intent")
	defer span.End()

	if sc == nil {
		return IntentNewCommand
	}
	raw, err := c.llm.Generate(ctx, buildIntentPrompt(message, sc))
	if err != nil {
		c.logger.Printf("event=intent status=llm_error fallback=%s err=%v", IntentFollowUp, err)
		return IntentFollowUp
	}
	var resp intentResponse
	if err := llm.DecodeJSON(raw, intentSchema, &resp); err != nil {
		c.logger.Printf("event=intent status=malformed fallback=%s err=%v raw=%q", IntentFollowUp, err, truncate(raw, 200))
		return IntentFollowUp
	}
	intent := IntentFollowUp
	if resp.Intent == string(IntentNewCommand) {
		intent = IntentNewCommand
	}
	span.SetAttributes(attribute.String("classifier.intent", string(intent)))
	c.logger.Printf("event=intent status=ok intent=%s kind=%s", intent, sc.Kind())
	return intent
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
