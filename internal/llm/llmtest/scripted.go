// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"regexp"
	"sync"
)

// Rule answers prompts matching Pattern. Rules are checked in order and are
// reusable.
type Rule struct {
	Pattern  *regexp.Regexp
	Response string
	Err      error
}

// Scripted is an llm.Client that answers from a list of rules and records
// every prompt it receives.
type Scripted struct {
	mu      sync.Mutex
	rules   []Rule
	prompts []string
}

// New returns an empty script. Unmatched prompts return an error.
func New() *Scripted { return &Scripted{} }

// On answers prompts matching pattern with response.
func (s *Scripted) On(pattern, response string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, Rule{Pattern: regexp.MustCompile(pattern), Response: response})
	return s
}

// Fail answers prompts matching pattern with err.
func (s *Scripted) Fail(pattern string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, Rule{Pattern: regexp.MustCompile(pattern), Err: err})
	return s
}

// Generate implements llm.Client.
func (s *Scripted) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	for _, r := range s.rules {
		if r.Pattern.MatchString(prompt) {
			return r.Response, r.Err
		}
	}
	return "", fmt.Errorf("llmtest: no rule matches prompt %.80q", prompt)
}

// Prompts returns a copy of the prompts received so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Calls returns the number of prompts received.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}
