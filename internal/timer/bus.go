package timer

import (
	"sync"

	"github.com/sadopc/focusd/internal/elapsed"
)

// EventKind says what happened to the timer.
type EventKind string

const (
	// EventState fires after every local state change.
	EventState EventKind = "state"
	// EventSaved fires when an active-minutes report reached the server.
	EventSaved EventKind = "saved"
	// EventSaveFailed fires when an active-minutes report failed. It is not retried.
	EventSaveFailed EventKind = "save-failed"
	// EventCompleted fires when the server acknowledged a finished interval.
	EventCompleted EventKind = "completed"
	// EventCompleteFailed fires when a completion report failed; the
	// completion stays pending until the next explicit user action.
	EventCompleteFailed EventKind = "complete-failed"
)

// Event is the payload subscribers receive.
type Event struct {
	Kind     EventKind
	Minutes  int
	Err      error
	Snapshot elapsed.Snapshot
}

const subscriberBuffer = 16

// Bus fans timer events out to independent views. Publishing never blocks:
// a subscriber that falls behind loses events.
type Bus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a channel of events and a function that closes it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
