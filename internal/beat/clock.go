// Package beat estimates a track's tempo and emits beat events at the
// derived period.
package beat

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"sync"
	"time"

	"beatviz/internal/audio"
	"beatviz/internal/event"
)

// FallbackBPM is used whenever a tempo cannot be determined.
const FallbackBPM = 120.0

type Option func(*Clock)

// WithTicker replaces the wall-clock ticker factory.
func WithTicker(f func(time.Duration) Ticker) Option {
	return func(c *Clock) { c.newTicker = f }
}

// WithEstimator replaces the default PeakIntervalEstimator.
func WithEstimator(e TempoEstimator) Option {
	return func(c *Clock) { c.estimator = e }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Clock) { c.log = l }
}

// Clock posts an event.Beat to the bus once per beat period. Handlers run
// wherever the bus is drained, never on the dispatcher goroutine.
type Clock struct {
	bus       *event.Bus
	newTicker func(time.Duration) Ticker
	estimator TempoEstimator
	log       *log.Logger

	mu       sync.Mutex
	bpm      float64
	stop     chan struct{}
	done     chan struct{}
	disposed bool
}

func NewClock(bus *event.Bus, opts ...Option) *Clock {
	c := &Clock{
		bus:       bus,
		newTicker: newRealTicker,
		estimator: NewPeakIntervalEstimator(),
		log:       log.New(io.Discard, "", 0),
		bpm:       FallbackBPM,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetBPM replaces the running dispatcher with one ticking at 60000/bpm ms.
// The old dispatcher has fully exited, and its undelivered beats are
// dropped from the bus, before the new one starts.
func (c *Clock) SetBPM(bpm float64) {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		bpm = FallbackBPM
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bpm = bpm
	if c.stop != nil {
		c.stopLocked()
		c.bus.Discard(event.Beat)
	}
	if c.disposed {
		return
	}
	c.startLocked()
}

func (c *Clock) startLocked() {
	t := c.newTicker(periodOf(c.bpm))
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done
	go func() {
		defer close(done)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				c.bus.Post(event.Event{Type: event.Beat})
			}
		}
	}()
}

func (c *Clock) stopLocked() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
}

// Subscribe registers fn for beat events and returns its cancel func.
func (c *Clock) Subscribe(fn func()) func() {
	return c.bus.Subscribe(event.Beat, func(event.Event) { fn() })
}

// Dispose stops the dispatcher. Safe to call repeatedly or before SetBPM.
func (c *Clock) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.disposed = true
}

// Running reports whether a dispatcher is active.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

func (c *Clock) BPM() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

// PeriodMs is the beat period in milliseconds.
func (c *Clock) PeriodMs() float64 {
	return 60000 / c.BPM()
}

func (c *Clock) Period() time.Duration {
	return periodOf(c.BPM())
}

func periodOf(bpm float64) time.Duration {
	return time.Duration(60000 / bpm * float64(time.Millisecond))
}

// DetectTempo estimates the tempo of buf and starts the dispatcher at it.
// Any failure, including a panic in the estimator or ctx cancellation,
// resolves to FallbackBPM.
func (c *Clock) DetectTempo(ctx context.Context, buf *audio.Buffer) float64 {
	bpm, err := c.estimate(ctx, buf)
	if err != nil {
		c.log.Printf("tempo detection failed, using %.0f BPM: %v", FallbackBPM, err)
		bpm = FallbackBPM
	} else {
		c.log.Printf("detected tempo %.1f BPM", bpm)
	}
	c.SetBPM(bpm)
	return c.BPM()
}

func (c *Clock) estimate(ctx context.Context, buf *audio.Buffer) (float64, error) {
	if buf == nil || buf.Frames() == 0 {
		return 0, audio.ErrEmptyAudio
	}
	if c.estimator == nil {
		return 0, fmt.Errorf("no tempo estimator")
	}

	type result struct {
		bpm float64
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("tempo estimator panic: %v", r)}
			}
		}()
		bpm, err := c.estimator.Estimate(ctx, buf)
		ch <- result{bpm: bpm, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return 0, r.err
		}
		if !(r.bpm > 0) || math.IsInf(r.bpm, 0) {
			return 0, fmt.Errorf("%w: estimate %v", ErrNoBeats, r.bpm)
		}
		return r.bpm, nil
	}
}
