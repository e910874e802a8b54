package audio

import (
	"sync"
	"time"
)

type PlaybackState int

const (
	Stopped PlaybackState = iota
	Playing
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "stopped"
}

// Source owns one decoded track and its playback clock. The clock is the
// accumulated offset plus the wall time since the last Play, wrapped to the
// track length because playback loops.
type Source struct {
	buf  *Buffer
	sink Sink
	now  func() time.Time

	mu        sync.Mutex
	state     PlaybackState
	startedAt time.Time
	offset    time.Duration
	volume    float64
}

func NewSource(buf *Buffer, sink Sink, now func() time.Time) *Source {
	if sink == nil {
		sink = &NullSink{}
	}
	if now == nil {
		now = time.Now
	}
	s := &Source{buf: buf, sink: sink, now: now, volume: DefaultVolume}
	sink.SetVolume(s.volume)
	return s
}

func (s *Source) Buffer() *Buffer { return s.buf }

func (s *Source) State() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Play starts or resumes playback from the current offset. If the sink
// fails to start, the clock runs anyway and the track plays silently; the
// sink error is still returned.
func (s *Source) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Playing {
		return nil
	}
	err := s.startSinkLocked()
	s.startedAt = s.now()
	s.state = Playing
	return err
}

// Pause freezes the clock at the current position.
func (s *Source) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Playing {
		return
	}
	s.offset = s.elapsedLocked()
	s.sink.Stop()
	s.state = Paused
}

// Stop halts playback and rewinds to the start.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Playing {
		s.sink.Stop()
	}
	s.offset = 0
	s.state = Stopped
}

// Seek moves the playback position, restarting the stream if playing.
func (s *Source) Seek(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = s.wrap(d)
	if s.state != Playing {
		return nil
	}
	s.sink.Stop()
	err := s.startSinkLocked()
	s.startedAt = s.now()
	return err
}

func (s *Source) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = clampF(v, 0, 1)
	s.sink.SetVolume(s.volume)
}

func (s *Source) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Elapsed returns the current playback position within the track.
func (s *Source) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

// Window fills dst with the mono samples that end at the playback position.
func (s *Source) Window(dst []float64) {
	frames := s.buf.Frames()
	if frames == 0 {
		clear(dst)
		return
	}
	pos := int(s.Elapsed().Seconds() * float64(s.buf.SampleRate))
	start := pos - len(dst)
	for i := range dst {
		f := start + i
		if f < 0 {
			// Looping playback wraps into the tail; the first pass has silence.
			dst[i] = 0
			continue
		}
		dst[i] = s.buf.MonoAt(f % frames)
	}
}

// Close stops playback and releases the sink.
func (s *Source) Close() error {
	s.Stop()
	return s.sink.Close()
}

func (s *Source) startSinkLocked() error {
	frame := int(s.offset.Seconds() * float64(s.buf.SampleRate))
	return s.sink.Start(NewPCMReader(s.buf, frame, true), s.buf.SampleRate)
}

func (s *Source) elapsedLocked() time.Duration {
	d := s.offset
	if s.state == Playing {
		d += s.now().Sub(s.startedAt)
	}
	return s.wrap(d)
}

func (s *Source) wrap(d time.Duration) time.Duration {
	total := s.buf.Duration()
	if total <= 0 {
		return 0
	}
	d %= total
	if d < 0 {
		d += total
	}
	return d
}
