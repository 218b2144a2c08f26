package debate

import (
	"sync"

	"github.com/Harshitk-cp/dialectic/internal/domain"
)

const (
	FrameTurnStarted = "turn_started"
	FrameTurn        = "turn"
	FrameEvent       = "event"
	FrameResult      = "result"
)

// Frame is one watch-stream message. Exactly one payload field is set,
// matching Type.
type Frame struct {
	Type   string         `json:"type"`
	Role   domain.Role    `json:"role,omitempty"`
	Round  int            `json:"round,omitempty"`
	Turn   *domain.Turn   `json:"turn,omitempty"`
	Event  *domain.Event  `json:"event,omitempty"`
	Result *domain.Result `json:"result,omitempty"`
}

const subscriberBuffer = 256

// broker fans frames out to watchers. A late subscriber replays the full
// history first, so a watcher attached mid-debate sees every turn. Slow
// subscribers lose frames rather than stall the debate goroutine.
type broker struct {
	mu      sync.Mutex
	history []Frame
	subs    map[chan Frame]struct{}
	closed  bool
}

func newBroker() *broker {
	return &broker{subs: make(map[chan Frame]struct{})}
}

func (b *broker) publish(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.history = append(b.history, f)
	for ch := range b.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

// subscribe returns a channel carrying the history so far followed by live
// frames. The channel is closed when the debate finishes or the returned
// cancel func runs.
func (b *broker) subscribe() (<-chan Frame, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Frame, subscriberBuffer+len(b.history))
	for _, f := range b.history {
		ch <- f
	}
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	b.subs[ch] = struct{}{}
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// close ends the stream for every subscriber. Idempotent.
func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
