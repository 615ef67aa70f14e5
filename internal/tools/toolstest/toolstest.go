// Package toolstest provides in-memory collaborators for exercising tools
// without Slack or the analytics API.
package toolstest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ca-srg/nova/internal/analytics"
	"github.com/ca-srg/nova/internal/tools"
)

// Messenger records everything sent to it.
type Messenger struct {
	mu       sync.Mutex
	messages []string
	files    []tools.File
	attempts int
	SendErr  error
}

// Send implements tools.Messenger.
func (m *Messenger) Send(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.SendErr != nil {
		return m.SendErr
	}
	m.messages = append(m.messages, text)
	return nil
}

// Upload implements tools.Messenger.
func (m *Messenger) Upload(_ context.Context, f tools.File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, f)
	return nil
}

// Messages returns the texts sent so far.
func (m *Messenger) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

// Last returns the most recent text, or "".
func (m *Messenger) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1]
}

// Attempts counts Send calls, failed ones included.
func (m *Messenger) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Files returns the uploaded files.
func (m *Messenger) Files() []tools.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tools.File(nil), m.files...)
}

// Analytics is a fake analytics API keyed by request name
// ("source" or "source/view"), optionally suffixed with "#tier".
type Analytics struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	requests  []analytics.Request
}

// NewAnalytics returns an API with no canned responses.
func NewAnalytics() *Analytics {
	return &Analytics{responses: map[string]string{}, failures: map[string]error{}}
}

// On serves body for key.
func (a *Analytics) On(key, body string) *Analytics {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.responses[key] = body
	return a
}

// Fail returns err for key.
func (a *Analytics) Fail(key string, err error) *Analytics {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[key] = err
	return a
}

// Query implements tools.Querier. A tier-specific key wins over the plain one.
func (a *Analytics) Query(_ context.Context, req analytics.Request) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)

	keys := []string{req.Name()}
	if tier, ok := req.Filters["tier"].(string); ok {
		keys = append([]string{req.Name() + "#" + strings.ToLower(tier)}, keys...)
	}
	for _, key := range keys {
		if err, ok := a.failures[key]; ok {
			return nil, err
		}
		if body, ok := a.responses[key]; ok {
			return json.RawMessage(body), nil
		}
	}
	return nil, fmt.Errorf("toolstest: no response for %s", keys[0])
}

// Requests returns the requests received so far.
func (a *Analytics) Requests() []analytics.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]analytics.Request(nil), a.requests...)
}

// Calls returns the number of requests received.
func (a *Analytics) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}
