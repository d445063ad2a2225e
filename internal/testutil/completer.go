package testutil

import (
	"context"
	"strings"
	"sync"
)

// MockCompleter scripts text generation for tests. Replies can be
// pinned per prompt substring; prompts matching no rule get the
// default reply.
//
// Thread-safe for concurrent use.
type MockCompleter struct {
	mu       sync.Mutex
	fallback string
	rules    []replyRule
	prompts  []string
	err      error
}

type replyRule struct {
	substring string
	reply     string
}

// NewMockCompleter creates a mock completer with a default reply.
func NewMockCompleter(defaultReply string) *MockCompleter {
	return &MockCompleter{fallback: defaultReply}
}

// SetReply pins the reply returned for any prompt containing the
// substring. Rules are checked in registration order; first match
// wins.
func (c *MockCompleter) SetReply(substring, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, replyRule{substring: substring, reply: reply})
}

// SetError makes every subsequent Complete call fail with err. Pass
// nil to clear.
func (c *MockCompleter) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Prompts returns a copy of every prompt completed so far.
func (c *MockCompleter) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]string, len(c.prompts))
	copy(cp, c.prompts)
	return cp
}

// CallCount returns how many times Complete ran.
func (c *MockCompleter) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

// Complete satisfies the session manager's Completer interface.
func (c *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	for _, r := range c.rules {
		if strings.Contains(prompt, r.substring) {
			return r.reply, nil
		}
	}
	return c.fallback, nil
}
