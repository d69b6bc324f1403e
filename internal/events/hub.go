package events

import (
	"context"
	"sync/atomic"
)

// Hub is a handle to an in-process broadcast actor. Events emitted through
// any handle are queued until at least one subscriber accepts them, so the
// first subscriber to join also receives what was emitted before it.
//
// Each subscriber has a single-slot mailbox. When an event is accepted by
// some subscribers while others still hold an unread event, the busy ones
// miss it. Producers are never blocked by slow subscribers.
//
// Handles are shared with Clone and released with Close; releasing the last
// handle cancels the actor.
type Hub[T any] struct {
	core     *hubCore[T]
	released atomic.Bool
}

type hubCore[T any] struct {
	cmds   chan command[T]
	wake   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
	refs   atomic.Int64
	stats  counters
}

// New starts a hub actor and returns the first handle to it.
func New[T any](opts ...Option) *Hub[T] {
	cfg := defaultHubConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	core := &hubCore[T]{
		cmds:   make(chan command[T]),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	core.refs.Store(1)

	a := &actor[T]{
		name:  cfg.name,
		cmds:  core.cmds,
		wake:  core.wake,
		retry: cfg.retryInterval,
		stats: &core.stats,
	}
	go a.run(ctx, core.done)

	return &Hub[T]{core: core}
}

// Clone returns another handle to the same actor.
func (h *Hub[T]) Clone() *Hub[T] {
	h.core.refs.Add(1)
	return &Hub[T]{core: h.core}
}

// Close releases this handle. The actor stops, without draining its queue,
// once every handle has been released. Calling Close twice on the same
// handle has no further effect.
func (h *Hub[T]) Close() {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	if h.core.refs.Add(-1) <= 0 {
		h.core.cancel()
	}
}

// Done is closed once the actor has terminated.
func (h *Hub[T]) Done() <-chan struct{} {
	return h.core.done
}

// Subscribe registers a new subscriber. It fails with ErrHubClosed when the
// actor has terminated.
func (h *Hub[T]) Subscribe(ctx context.Context) (*Subscription[T], error) {
	reply := make(chan *mailbox[T], 1)

	select {
	case h.core.cmds <- command[T]{reply: reply}:
	case <-h.core.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// The actor replies right after accepting the command, so the caller's
	// context is not consulted here: abandoning the reply would leave a
	// mailbox in the registry that nobody reads.
	select {
	case mb := <-reply:
		return &Subscription[T]{mb: mb, wake: h.core.wake, done: h.core.done}, nil
	case <-h.core.done:
		return nil, ErrHubClosed
	}
}

// Emit hands event to the actor, waiting until it is ready to take it. The
// event is silently dropped if the actor has terminated or ctx ends first.
func (h *Hub[T]) Emit(ctx context.Context, event T) {
	select {
	case h.core.cmds <- command[T]{event: event}:
	case <-h.core.done:
	case <-ctx.Done():
	}
}

// TryEmit hands event to the actor only if it can take it immediately, and
// drops it otherwise.
func (h *Hub[T]) TryEmit(event T) {
	select {
	case h.core.cmds <- command[T]{event: event}:
	default:
		h.core.stats.dropped.Add(1)
	}
}

// Stats returns the hub's counters.
func (h *Hub[T]) Stats() Stats {
	return h.core.stats.snapshot()
}
