// Package llm wraps the text-generation providers used to route requests and
// compose answers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrMalformed reports LLM output that could not be parsed or validated.
var ErrMalformed = errors.New("malformed LLM response")

// UnavailableError reports a provider call that failed or timed out.
type UnavailableError struct {
	Provider string
	Timeout  bool
	Cause    error
}

func (e *UnavailableError) Error() string {
	if e == nil {
		return ""
	}
	if e.Timeout {
		return fmt.Sprintf("llm %s timed out: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("llm %s unavailable: %v", e.Provider, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

var llmTracer = otel.Tracer("nova/llm")

// Guarded bounds every call of an underlying client with a timeout and maps
// failures to *UnavailableError.
type Guarded struct {
	provider string
	next     Client
	timeout  time.Duration
	logger   *log.Logger
}

// Guard wraps next. A non-positive timeout defaults to 60s.
func Guard(provider string, next Client, timeout time.Duration, logger *log.Logger) *Guarded {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Guarded{provider: provider, next: next, timeout: timeout, logger: logger}
}

// Generate implements Client.
func (g *Guarded) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := llmTracer.Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", g.provider),
		attribute.Int("llm.prompt_chars", len(prompt)),
	)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.next.Generate(callCtx, prompt)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			timedOut = true
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "llm call failed")
		g.logger.Printf("event=llm_generate provider=%s status=error timeout=%t elapsed=%s err=%v", g.provider, timedOut, time.Since(start), err)
		return "", &UnavailableError{Provider: g.provider, Timeout: timedOut, Cause: err}
	}
	g.logger.Printf("event=llm_generate provider=%s status=ok chars=%d elapsed=%s", g.provider, len(text), time.Since(start))
	return text, nil
}
