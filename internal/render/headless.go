package render

import (
	"errors"
	"time"

	"beatviz/internal/particles"
)

var ErrReleased = errors.New("render: surface released")

// Headless is a surface with no window or GPU. It tracks uploaded
// buffers and records calls so frame ordering can be inspected.
type Headless struct {
	// Step, if set, advances Time by a fixed amount per call.
	Step float64
	// PrepareErr is returned from Prepare.
	PrepareErr error
	// Record enables the Calls log.
	Record bool

	Calls    []string
	Frames   int
	Uploads  int
	Frees    int
	Last     particles.Scene
	LastCam  Camera
	Title    string
	Prepared bool
	Released bool

	w, h    int
	live    map[particles.Handle]int
	next    particles.Handle
	queued  map[Key]bool
	pressed map[Key]bool
	closed  bool
	clock   float64
	start   time.Time
}

func NewHeadless(width, height int) *Headless {
	return &Headless{
		w:       width,
		h:       height,
		live:    make(map[particles.Handle]int),
		queued:  make(map[Key]bool),
		pressed: make(map[Key]bool),
	}
}

func (s *Headless) record(call string) {
	if s.Record {
		s.Calls = append(s.Calls, call)
	}
}

// Prepare may follow Release, as a retried Setup does.
func (s *Headless) Prepare() error {
	s.record("prepare")
	if s.PrepareErr != nil {
		return s.PrepareErr
	}
	s.Prepared, s.Released = true, false
	s.start = time.Now()
	return nil
}

func (s *Headless) Upload(g particles.Geometry) (particles.Handle, error) {
	if s.Released {
		return 0, ErrReleased
	}
	s.record("upload")
	s.next++
	s.Uploads++
	s.live[s.next] = g.Count()
	return s.next, nil
}

func (s *Headless) Free(h particles.Handle) {
	if _, ok := s.live[h]; !ok {
		return
	}
	s.record("free")
	s.Frees++
	delete(s.live, h)
}

// Live is the number of buffers currently uploaded.
func (s *Headless) Live() int { return len(s.live) }

func (s *Headless) Resize(width, height int) {
	s.record("resize")
	s.w, s.h = width, height
}

func (s *Headless) Size() (int, int) { return s.w, s.h }

// Press queues a key press delivered by the next PollEvents.
func (s *Headless) Press(k Key) { s.queued[k] = true }

func (s *Headless) PollEvents() {
	s.record("poll")
	clear(s.pressed)
	for k := range s.queued {
		s.pressed[k] = true
	}
	clear(s.queued)
}

func (s *Headless) JustPressed(k Key) bool {
	p := s.pressed[k]
	delete(s.pressed, k)
	return p
}

// Close makes ShouldClose report true.
func (s *Headless) Close() { s.closed = true }

func (s *Headless) ShouldClose() bool { return s.closed }

func (s *Headless) Draw(cam Camera, scene particles.Scene) error {
	if s.Released {
		return ErrReleased
	}
	s.record("draw")
	if scene.Visible {
		if _, ok := s.live[scene.Handle]; !ok {
			return errors.New("render: draw of freed buffer")
		}
	}
	s.LastCam = cam
	s.Last = scene
	return nil
}

func (s *Headless) Present() {
	s.record("present")
	s.Frames++
}

func (s *Headless) SetTitle(title string) { s.Title = title }

// Time returns seconds since Prepare, or a stepped clock when Step is set.
func (s *Headless) Time() float64 {
	if s.Step > 0 {
		s.clock += s.Step
		return s.clock
	}
	if s.start.IsZero() {
		return 0
	}
	return time.Since(s.start).Seconds()
}

func (s *Headless) Release() {
	if s.Released {
		return
	}
	s.record("release")
	for h := range s.live {
		delete(s.live, h)
		s.Frees++
	}
	s.Released = true
}
