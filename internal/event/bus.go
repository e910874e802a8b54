package event

import "sync"

type Type int

const (
	Beat Type = iota
	SettingsChanged
)

// MaxPending bounds the queue between drains. Oldest events are dropped first.
const MaxPending = 256

type Event struct {
	Type    Type
	Payload any // Type-specific; nil for Beat.
}

type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// Bus queues events posted from any goroutine and dispatches them on the
// goroutine that calls Drain. Emit dispatches immediately on the caller.
type Bus struct {
	mu       sync.Mutex
	handlers map[Type][]subscription
	pending  []Event
	nextID   int
	dropped  int
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscription),
	}
}

// Subscribe registers fn for events of type t. The returned func removes it.
func (b *Bus) Subscribe(t Type, fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[t]
		for i, s := range subs {
			if s.id == id {
				b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Post enqueues e for the next Drain. Safe for concurrent use.
func (b *Bus) Post(e Event) {
	b.mu.Lock()
	if len(b.pending) >= MaxPending {
		copy(b.pending, b.pending[1:])
		b.pending = b.pending[:len(b.pending)-1]
		b.dropped++
	}
	b.pending = append(b.pending, e)
	b.mu.Unlock()
}

// Emit dispatches e synchronously to the current subscribers.
func (b *Bus) Emit(e Event) {
	for _, fn := range b.snapshot(e.Type) {
		fn(e)
	}
}

// Drain dispatches every queued event in FIFO order and returns how many
// were dispatched. Events posted by handlers during Drain wait for the next call.
func (b *Bus) Drain() int {
	b.mu.Lock()
	queued := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, e := range queued {
		b.Emit(e)
	}
	return len(queued)
}

// Discard removes queued events of type t and returns how many were removed.
func (b *Bus) Discard(t Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.pending[:0]
	for _, e := range b.pending {
		if e.Type != t {
			kept = append(kept, e)
		}
	}
	n := len(b.pending) - len(kept)
	clear(b.pending[len(kept):])
	b.pending = kept
	return n
}

// Pending reports the number of queued events.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Dropped reports how many events were discarded because the queue was full.
func (b *Bus) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Bus) snapshot(t Type) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[t]
	out := make([]Handler, len(subs))
	for i, s := range subs {
		out[i] = s.fn
	}
	return out
}
