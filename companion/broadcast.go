package companion

import (
	"sync"

	"github.com/afkcompanion/afkcli/types"
)

// Broadcaster fans state out to subscribers. Each subscriber holds at most one
// pending state; a newer state replaces an unread one.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan types.State]struct{}
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan types.State]struct{})}
}

// Subscribe returns a channel of states and a function that releases it
func (b *Broadcaster) Subscribe() (<-chan types.State, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan types.State, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

func (b *Broadcaster) Publish(state types.State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- state:
		default:
			// drop the stale state, then deliver the fresh one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- state:
			default:
			}
		}
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
