package event

import (
	"sync"
	"testing"
)

func TestDrainDispatchesInOrder(t *testing.T) {
	b := NewBus()
	var got []Type
	b.Subscribe(Beat, func(e Event) { got = append(got, e.Type) })
	b.Subscribe(SettingsChanged, func(e Event) { got = append(got, e.Type) })

	b.Post(Event{Type: Beat})
	b.Post(Event{Type: SettingsChanged})
	b.Post(Event{Type: Beat})

	if len(got) != 0 {
		t.Fatalf("handlers ran before Drain: %v", got)
	}
	if n := b.Drain(); n != 3 {
		t.Fatalf("Drain()=%d want=3", n)
	}
	want := []Type{Beat, SettingsChanged, Beat}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got=%v want=%v", got, want)
		}
	}
	if b.Pending() != 0 {
		t.Fatalf("Pending()=%d after drain", b.Pending())
	}
}

func TestEachSubscriberOncePerEvent(t *testing.T) {
	b := NewBus()
	counts := make([]int, 3)
	for i := range counts {
		b.Subscribe(Beat, func(Event) { counts[i]++ })
	}
	b.Post(Event{Type: Beat})
	b.Post(Event{Type: Beat})
	b.Drain()

	for i, c := range counts {
		if c != 2 {
			t.Fatalf("subscriber %d invoked %d times, want 2", i, c)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0
	cancel := b.Subscribe(Beat, func(Event) { calls++ })
	b.Emit(Event{Type: Beat})
	cancel()
	cancel()
	b.Emit(Event{Type: Beat})

	if calls != 1 {
		t.Fatalf("calls=%d want=1", calls)
	}
}

func TestPostDuringDrainIsDeferred(t *testing.T) {
	b := NewBus()
	calls := 0
	b.Subscribe(Beat, func(Event) {
		calls++
		if calls == 1 {
			b.Post(Event{Type: Beat})
		}
	})
	b.Post(Event{Type: Beat})

	if n := b.Drain(); n != 1 {
		t.Fatalf("first Drain()=%d want=1", n)
	}
	if n := b.Drain(); n != 1 {
		t.Fatalf("second Drain()=%d want=1", n)
	}
	if calls != 2 {
		t.Fatalf("calls=%d want=2", calls)
	}
}

func TestQueueBounded(t *testing.T) {
	b := NewBus()
	for i := 0; i < MaxPending+10; i++ {
		b.Post(Event{Type: Beat, Payload: i})
	}
	if b.Pending() != MaxPending {
		t.Fatalf("Pending()=%d want=%d", b.Pending(), MaxPending)
	}
	if b.Dropped() != 10 {
		t.Fatalf("Dropped()=%d want=10", b.Dropped())
	}

	var first any
	b.Subscribe(Beat, func(e Event) {
		if first == nil {
			first = e.Payload
		}
	})
	b.Drain()
	if first != 10 {
		t.Fatalf("oldest surviving payload=%v want=10", first)
	}
}

func TestConcurrentPost(t *testing.T) {
	b := NewBus()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				b.Post(Event{Type: Beat})
			}
		}()
	}
	wg.Wait()

	if n := b.Drain(); n != 80 {
		t.Fatalf("Drain()=%d want=80", n)
	}
}

func TestDiscardByType(t *testing.T) {
	bus := NewBus()
	var got []any
	bus.Subscribe(Beat, func(e Event) { got = append(got, "beat") })
	bus.Subscribe(SettingsChanged, func(e Event) { got = append(got, e.Payload) })

	bus.Post(Event{Type: Beat})
	bus.Post(Event{Type: SettingsChanged, Payload: 1})
	bus.Post(Event{Type: Beat})
	bus.Post(Event{Type: SettingsChanged, Payload: 2})

	if n := bus.Discard(Beat); n != 2 {
		t.Fatalf("discarded %d want=2", n)
	}
	if n := bus.Drain(); n != 2 {
		t.Fatalf("drained %d want=2", n)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got=%v want=[1 2]", got)
	}
}
