package storage

import (
	"context"
	"log/slog"
	"sync"
)

type topic int

const (
	topicExpenses topic = iota
	topicPreferences
)

func (t topic) String() string {
	switch t {
	case topicExpenses:
		return "expenses"
	case topicPreferences:
		return "preferences"
	}
	return "unknown"
}

// changeFeed fans write notifications out to live queries. Each listener owns
// a one-slot channel, so bursts of writes collapse into a single pending
// notification.
type changeFeed struct {
	listeners map[topic]map[uint64]chan struct{}
	mu        sync.Mutex
	next      uint64
	closed    bool
}

func newChangeFeed() *changeFeed {
	return &changeFeed{listeners: make(map[topic]map[uint64]chan struct{})}
}

func (f *changeFeed) listen(t topic) (uint64, <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan struct{}, 1)
	if f.closed {
		close(ch)
		return 0, ch
	}

	f.next++
	if f.listeners[t] == nil {
		f.listeners[t] = make(map[uint64]chan struct{})
	}
	f.listeners[t][f.next] = ch
	return f.next, ch
}

func (f *changeFeed) unlisten(t topic, id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ch, ok := f.listeners[t][id]; ok {
		delete(f.listeners[t], id)
		close(ch)
	}
}

// publish must be called after the write has committed.
func (f *changeFeed) publish(t topic) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.listeners[t] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *changeFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for t, byID := range f.listeners {
		for id, ch := range byID {
			close(ch)
			delete(byID, id)
		}
		delete(f.listeners, t)
	}
}

// liveQuery re-runs load after every change on its topic and delivers the
// results on a channel.
type liveQuery[T any] struct {
	out    chan T
	done   chan struct{}
	cancel context.CancelFunc
}

func (q *liveQuery[T]) C() <-chan T {
	return q.out
}

// Close stops the query and waits for its goroutine to exit.
func (q *liveQuery[T]) Close() {
	q.cancel()
	<-q.done
}

// watch starts a live query. Load failures are logged and replaced by
// fallback so a broken read never ends the subscription.
func watch[T any](ctx context.Context, feed *changeFeed, t topic, fallback T, load func(context.Context) (T, error)) *liveQuery[T] {
	ctx, cancel := context.WithCancel(ctx)
	q := &liveQuery[T]{
		out:    make(chan T),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	// Listen before the first load so a write racing with it is not lost.
	id, notify := feed.listen(t)

	go func() {
		defer close(q.done)
		defer close(q.out)
		defer feed.unlisten(t, id)

		for {
			value, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("Live query failed, emitting empty result",
					"topic", t.String(),
					"error", err)
				value = fallback
			}

			select {
			case q.out <- value:
			case <-ctx.Done():
				return
			}

			select {
			case _, ok := <-notify:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return q
}
