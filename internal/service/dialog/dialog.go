// Package dialog is the suspension primitive for multi-turn prompts: at most
// one pending waiter per conversation, resumed by the event dispatcher.
package dialog

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCancelled resolves a waiter that was superseded before a reply came in.
	ErrCancelled = errors.New("dialog step cancelled")
	// ErrTimedOut resolves a waiter whose step timeout elapsed.
	ErrTimedOut = errors.New("dialog step timed out")
)

// Kind distinguishes what resumes a waiter: free text or a menu selection.
type Kind int

const (
	KindText Kind = iota
	KindSelection
)

// Result is the resolution of one pending step.
type Result struct {
	Payload string
	Err     error
}

type waiter struct {
	kind  Kind
	ch    chan Result
	timer *time.Timer
}

// Registry tracks the single outstanding waiter per conversation.
type Registry struct {
	mu          sync.Mutex
	waiters     map[string]*waiter
	stepTimeout time.Duration
}

// NewRegistry creates the registry. stepTimeout <= 0 disables step timeouts.
func NewRegistry(stepTimeout time.Duration) *Registry {
	return &Registry{
		waiters:     make(map[string]*waiter),
		stepTimeout: stepTimeout,
	}
}

// Begin registers a waiter for the conversation's next reply. Any prior
// outstanding waiter is resolved with ErrCancelled so it cannot fire later
// and corrupt a newer flow's state.
func (r *Registry) Begin(conversationID string, kind Kind) <-chan Result {
	w := &waiter{kind: kind, ch: make(chan Result, 1)}

	r.mu.Lock()
	if old, ok := r.waiters[conversationID]; ok {
		old.stop()
		old.ch <- Result{Err: ErrCancelled}
	}
	r.waiters[conversationID] = w
	r.mu.Unlock()

	if r.stepTimeout > 0 {
		w.timer = time.AfterFunc(r.stepTimeout, func() {
			r.finish(conversationID, w, Result{Err: ErrTimedOut})
		})
	}
	return w.ch
}

// Await begins a step and blocks until it resolves or ctx ends.
func (r *Registry) Await(ctx context.Context, conversationID string, kind Kind) (string, error) {
	ch := r.Begin(conversationID, kind)
	select {
	case res := <-ch:
		return res.Payload, res.Err
	case <-ctx.Done():
		r.Cancel(conversationID)
		return "", ctx.Err()
	}
}

// Resolve delivers an inbound event to the conversation's waiter. It reports
// false when there is no outstanding waiter of the matching kind, in which
// case the dispatcher routes the event as an ordinary command instead.
func (r *Registry) Resolve(conversationID string, kind Kind, payload string) bool {
	r.mu.Lock()
	w, ok := r.waiters[conversationID]
	if !ok || w.kind != kind {
		r.mu.Unlock()
		return false
	}
	delete(r.waiters, conversationID)
	r.mu.Unlock()

	w.stop()
	w.ch <- Result{Payload: payload}
	return true
}

// Cancel resolves any outstanding waiter with ErrCancelled.
func (r *Registry) Cancel(conversationID string) {
	r.mu.Lock()
	w, ok := r.waiters[conversationID]
	if ok {
		delete(r.waiters, conversationID)
	}
	r.mu.Unlock()

	if ok {
		w.stop()
		w.ch <- Result{Err: ErrCancelled}
	}
}

// finish resolves a waiter only if it is still the registered one.
func (r *Registry) finish(conversationID string, w *waiter, res Result) {
	r.mu.Lock()
	current, ok := r.waiters[conversationID]
	if !ok || current != w {
		r.mu.Unlock()
		return
	}
	delete(r.waiters, conversationID)
	r.mu.Unlock()

	w.stop()
	w.ch <- res
}

func (w *waiter) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}
