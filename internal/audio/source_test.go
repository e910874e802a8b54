package audio

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// toneBuffer is a mono sine of seconds length.
func toneBuffer(sampleRate int, hz, seconds float64) *Buffer {
	n := int(float64(sampleRate) * seconds)
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(math.Sin(2 * math.Pi * hz * float64(i) / float64(sampleRate)))
	}
	return &Buffer{Samples: s, Channels: 1, SampleRate: sampleRate}
}

type recordingSink struct {
	NullSink
	starts int
	stops  int
}

func (r *recordingSink) Start(rd io.Reader, rate int) error {
	r.starts++
	return r.NullSink.Start(rd, rate)
}

func (r *recordingSink) Stop() {
	r.stops++
	r.NullSink.Stop()
}

// brokenSink never starts.
type brokenSink struct{ NullSink }

var errNoDevice = errors.New("no output device")

func (*brokenSink) Start(io.Reader, int) error { return errNoDevice }

func TestSourceClock(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	sink := &recordingSink{}
	src := NewSource(toneBuffer(1000, 10, 2), sink, clk.now)

	if err := src.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	clk.advance(500 * time.Millisecond)
	if got := src.Elapsed(); got != 500*time.Millisecond {
		t.Fatalf("Elapsed=%v want=500ms", got)
	}

	src.Pause()
	clk.advance(time.Second)
	if got := src.Elapsed(); got != 500*time.Millisecond {
		t.Fatalf("paused Elapsed=%v want=500ms", got)
	}

	if err := src.Play(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	clk.advance(2 * time.Second)
	// loops over the 2s track
	if got := src.Elapsed(); got != 500*time.Millisecond {
		t.Fatalf("looped Elapsed=%v want=500ms", got)
	}

	src.Stop()
	if got := src.Elapsed(); got != 0 {
		t.Fatalf("stopped Elapsed=%v want=0", got)
	}
	if src.State() != Stopped {
		t.Fatalf("state=%v want stopped", src.State())
	}
	if sink.starts != 2 || sink.stops != 2 {
		t.Fatalf("sink starts=%d stops=%d want 2/2", sink.starts, sink.stops)
	}
}

func TestSourceSeek(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	src := NewSource(toneBuffer(1000, 10, 2), nil, clk.now)
	if err := src.Seek(1500 * time.Millisecond); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if err := src.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	clk.advance(time.Second)
	if got := src.Elapsed(); got != 500*time.Millisecond {
		t.Fatalf("Elapsed=%v want=500ms", got)
	}
	if err := src.Seek(-250 * time.Millisecond); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if got := src.Elapsed(); got != 1750*time.Millisecond {
		t.Fatalf("Elapsed=%v want=1.75s", got)
	}
}

func TestPCMReaderLoops(t *testing.T) {
	buf := &Buffer{Samples: []float32{0.25, -0.25}, Channels: 1, SampleRate: 8000}
	r := NewPCMReader(buf, 1, true)
	p := make([]byte, 8*5)
	n, err := r.Read(p)
	if err != nil || n != len(p) {
		t.Fatalf("Read=%d,%v want %d,nil", n, err, len(p))
	}

	once := NewPCMReader(buf, 0, false)
	n, _ = once.Read(p)
	if n != 16 {
		t.Fatalf("non-looping Read=%d want=16", n)
	}
	if _, err := once.Read(p); !errors.Is(err, io.EOF) {
		t.Fatalf("err=%v want EOF", err)
	}
}

func TestAnalyzerSampleOnlyWhilePlaying(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	tone := toneBuffer(44100, 1000, 2)
	a := NewAnalyzer(nil, nil,
		WithClock(clk.now),
		WithLoader(func(context.Context, Song) (*Buffer, error) { return tone, nil }),
	)

	if err := a.Sample(); err != nil {
		t.Fatalf("Sample before load: %v", err)
	}
	if err := a.Load(context.Background(), Song{URL: "tone"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := a.Sample(); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if b := a.Analyze(DefaultFrequencyRanges()); b != (Bands{}) {
		t.Fatalf("bands=%+v want zero while stopped", b)
	}

	if err := a.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	clk.advance(500 * time.Millisecond)
	if err := a.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	b := a.Bands()
	if b.Mid <= 0 {
		t.Fatalf("mid=%f want >0 for a 1kHz tone", b.Mid)
	}
	if b.Low < 0 || b.Low > 1 || b.High < 0 || b.High > 1 {
		t.Fatalf("bands out of range: %+v", b)
	}

	a.Pause()
	before := a.Bands()
	clk.advance(time.Second)
	if err := a.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if a.Bands() != before {
		t.Fatalf("bands changed while paused")
	}
}

func TestAnalyzerLoadFailureKeepsState(t *testing.T) {
	tone := toneBuffer(8000, 100, 1)
	fail := errors.New("boom")
	calls := 0
	a := NewAnalyzer(nil, nil, WithLoader(func(_ context.Context, s Song) (*Buffer, error) {
		calls++
		if calls > 1 {
			return nil, fail
		}
		return tone, nil
	}))
	if err := a.Load(context.Background(), Song{URL: "first", Title: "One"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	err := a.Load(context.Background(), Song{URL: "second"})
	var de *DecodeError
	if !errors.As(err, &de) || !errors.Is(err, fail) {
		t.Fatalf("err=%v want DecodeError wrapping boom", err)
	}
	if a.Song().Title != "One" || a.Buffer() != tone {
		t.Fatalf("prior track replaced after failed load")
	}
	if a.SampleRate() != 8000 || a.BufferLength() != 512 {
		t.Fatalf("rate=%d bins=%d", a.SampleRate(), a.BufferLength())
	}
}

func TestAnalyzerNotLoaded(t *testing.T) {
	a := NewAnalyzer(nil, nil)
	if err := a.Play(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Play err=%v want ErrNotLoaded", err)
	}
	a.Pause()
	a.Stop()
	if a.IsPlaying() || a.CurrentTime() != 0 || a.Duration() != 0 {
		t.Fatal("unloaded analyzer reports playback")
	}
}

func TestSourcePlaysSilentlyWhenSinkFails(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	src := NewSource(toneBuffer(1000, 10, 2), &brokenSink{}, clk.now)

	if err := src.Play(); !errors.Is(err, errNoDevice) {
		t.Fatalf("Play err=%v want %v", err, errNoDevice)
	}
	if src.State() != Playing {
		t.Fatalf("state=%v want playing", src.State())
	}
	clk.advance(300 * time.Millisecond)
	if got := src.Elapsed(); got != 300*time.Millisecond {
		t.Fatalf("Elapsed=%v want=300ms", got)
	}

	if err := src.Seek(time.Second); !errors.Is(err, errNoDevice) {
		t.Fatalf("Seek err=%v want %v", err, errNoDevice)
	}
	if src.State() != Playing {
		t.Fatalf("state after seek=%v want playing", src.State())
	}
	clk.advance(100 * time.Millisecond)
	if got := src.Elapsed(); got != 1100*time.Millisecond {
		t.Fatalf("Elapsed=%v want=1.1s", got)
	}
}
