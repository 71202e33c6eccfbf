// Package viewmodel holds the state machines behind the expense screens: a
// list machine that mirrors stored expenses and a detail machine that edits a
// single draft. Both publish state through a Container.
package viewmodel

import (
	"context"
	"log/slog"
	"sync"
)

// effectBuffer bounds undelivered side effects per container.
const effectBuffer = 32

// Container pairs a last-value-wins state with a fire-once effect queue.
// Reductions are serialized; state is replaced wholesale, never mutated in
// place.
type Container[S any, E any] struct {
	state    S
	watchers map[uint64]chan S
	effects  chan E
	done     chan struct{}
	mu       sync.Mutex
	nextID   uint64
	closed   bool
}

// NewContainer creates a container holding initial.
func NewContainer[S any, E any](initial S) *Container[S, E] {
	return &Container[S, E]{
		state:    initial,
		watchers: make(map[uint64]chan S),
		effects:  make(chan E, effectBuffer),
		done:     make(chan struct{}),
	}
}

// State returns the current state.
func (c *Container[S, E]) State() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reduce replaces the state with fn(current) and returns the new state.
// Watchers only ever see the latest state; intermediate values may be skipped.
func (c *Container[S, E]) Reduce(fn func(S) S) S {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = fn(c.state)
	if c.closed {
		return c.state
	}
	for _, ch := range c.watchers {
		offerLatest(ch, c.state)
	}
	return c.state
}

// Watch returns a channel that immediately holds the current state and then
// the latest state after every reduction. It is closed when ctx is done or the
// container is closed.
func (c *Container[S, E]) Watch(ctx context.Context) <-chan S {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan S, 1)
	if c.closed {
		ch <- c.state
		close(ch)
		return ch
	}

	c.nextID++
	id := c.nextID
	c.watchers[id] = ch
	ch <- c.state

	go func() {
		select {
		case <-ctx.Done():
			c.unwatch(id)
		case <-c.done:
		}
	}()

	return ch
}

func (c *Container[S, E]) unwatch(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.watchers[id]; ok {
		delete(c.watchers, id)
		close(ch)
	}
}

// Post queues a one-shot effect. Each effect is received by exactly one
// reader of Effects and is never replayed.
func (c *Container[S, E]) Post(effect E) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		slog.Debug("Dropping effect posted after close", "effect", effect)
		return
	}
	select {
	case c.effects <- effect:
	default:
		slog.Warn("Effect queue full, dropping effect", "effect", effect)
	}
}

// Effects returns the effect queue. It is closed by Close.
func (c *Container[S, E]) Effects() <-chan E {
	return c.effects
}

// Close ends all watches and the effect queue. Later reductions still update
// State but are not delivered.
func (c *Container[S, E]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	for id, ch := range c.watchers {
		delete(c.watchers, id)
		close(ch)
	}
	close(c.effects)
}

// offerLatest replaces whatever is pending in a one-slot channel with v.
// Callers hold the container lock, so nothing else sends on ch.
func offerLatest[S any](ch chan S, v S) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
