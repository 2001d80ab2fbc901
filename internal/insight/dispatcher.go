package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrBackendsExhausted means every configured model rejected the request
// for capacity reasons. The dispatcher stays exhausted until Reset.
var ErrBackendsExhausted = errors.New("all generation backends exhausted")

// Turn is one prior exchange passed to the backend as role-tagged
// generation context. The insight path sends none today; the boundary
// accepts them so conversational callers need no new port.
type Turn struct {
	Role string // user | model
	Text string
}

// Generator is the dispatcher's port onto one generation backend family.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, history []Turn) (string, error)
}

// Dispatcher walks an ordered model list and sticks to whichever model
// currently works. On a capacity failure it advances to the next model
// and retries the same request; the advanced position persists across
// calls, so later requests skip models already known to be saturated.
// Non-capacity failures surface immediately without advancing.
type Dispatcher struct {
	gen    Generator
	models []string

	mu      sync.Mutex
	current int
}

func NewDispatcher(gen Generator, models []string) *Dispatcher {
	return &Dispatcher{gen: gen, models: models}
}

// Generate runs the prompt, with any prior turns, against the current
// model, failing over on capacity errors. Returns the generated text
// and the model that produced it. The lock guards only the position,
// never a backend call.
func (d *Dispatcher) Generate(ctx context.Context, prompt string, history []Turn) (string, string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		idx := d.position()
		if idx >= len(d.models) {
			return "", "", ErrBackendsExhausted
		}
		model := d.models[idx]

		text, err := d.gen.Generate(ctx, model, prompt, history)
		if err == nil {
			return text, model, nil
		}
		if !isCapacityError(err) {
			return "", "", fmt.Errorf("generate with %s: %w", model, err)
		}

		slog.WarnContext(ctx, "Model at capacity, failing over",
			"model", model, "error", err)
		d.advanceFrom(idx)
	}
}

// Current returns the active model, or false once the list is exhausted.
func (d *Dispatcher) Current() (string, bool) {
	idx := d.position()
	if idx >= len(d.models) {
		return "", false
	}
	return d.models[idx], true
}

// Reset moves the dispatcher back to the head of the model list. Called
// on an operator signal or a quota-reset schedule, not automatically.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.current = 0
	d.mu.Unlock()
}

func (d *Dispatcher) position() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// advanceFrom moves past idx only if it is still the current position,
// so concurrent failures on the same model advance once, not twice.
func (d *Dispatcher) advanceFrom(idx int) {
	d.mu.Lock()
	if d.current == idx {
		d.current++
	}
	d.mu.Unlock()
}

// capacityMarkers are the substrings that classify a backend error as
// exhaustion of that model rather than a hard failure. Model-not-found
// counts: a retired model id behaves like a permanently saturated one.
var capacityMarkers = []string{
	"rate limit",
	"quota",
	"resource exhausted",
	"resource_exhausted",
	"not found",
	"429",
}

func isCapacityError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range capacityMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
