// Package aitest provides a scripted text generator for tests.
package aitest

import (
	"context"
	"fmt"
	"github.com/myrjola/verdict/internal/ai"
	"slices"
	"sync"
)

// Call records the arguments of one Generate call.
type Call struct {
	System   string
	Messages []ai.Message
}

// Generator returns Responses in sequence. When Responses runs out it echoes a numbered reply so that long
// conversations need no script. Err, when set, is returned instead. It is safe for concurrent use.
type Generator struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	// FailOn makes the n-th call (1-based) fail with Err while the others succeed. Zero fails every call when Err
	// is set.
	FailOn int
	calls  []Call
}

func (g *Generator) Generate(_ context.Context, system string, messages []ai.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{System: system, Messages: slices.Clone(messages)})
	n := len(g.calls)
	if g.Err != nil && (g.FailOn == 0 || g.FailOn == n) {
		return "", g.Err
	}
	if n <= len(g.Responses) {
		return g.Responses[n-1], nil
	}
	return fmt.Sprintf("generated reply %d", n), nil
}

func (g *Generator) Close() error {
	return nil
}

// Calls returns a copy of the recorded calls.
func (g *Generator) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.calls)
}
