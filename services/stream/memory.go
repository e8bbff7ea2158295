package streamsvc

import (
	"context"
	"sync"

	"github.com/shulehub/shule/core/stream"
)

const subscriberBuffer = 16

// MemoryBroker is an in-process fan-out for tests and single-node dev runs.
// Slow subscribers drop events rather than block publishers (at-most-once).
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[string]map[*memorySub]struct{}
}

type memorySub struct {
	ch   chan stream.Event
	done chan struct{}
	once sync.Once
}

var _ stream.Broker = (*MemoryBroker)(nil)

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySub]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, evt stream.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[topic] {
		select {
		case sub.ch <- evt:
		default: // subscriber not keeping up; drop
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (<-chan stream.Event, func(), error) {
	sub := &memorySub{
		ch:   make(chan stream.Event, subscriberBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*memorySub]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], sub)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			// closed under the write lock so a concurrent Publish can
			// never send on a closed channel
			close(sub.ch)
			b.mu.Unlock()
			close(sub.done)
		})
	}

	// the watcher must not outlive an explicit unsubscribe under a
	// long-lived ctx
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()

	return sub.ch, cancel, nil
}
