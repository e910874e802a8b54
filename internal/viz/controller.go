// Package viz sequences the analyzer, beat clock and particle formation
// and drives them from a single frame loop.
package viz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"beatviz/internal/audio"
	"beatviz/internal/beat"
	"beatviz/internal/event"
	"beatviz/internal/particles"
	"beatviz/internal/render"
)

var (
	ErrStartInFlight  = errors.New("viz: start already in progress")
	ErrAlreadyStarted = errors.New("viz: already started")
	ErrNotStarted     = errors.New("viz: not started")
	ErrClosed         = errors.New("viz: controller closed")
	ErrRunning        = errors.New("viz: frame loop already running")
)

// Surface is the drawable target plus its input and GPU buffers.
type Surface interface {
	particles.Buffers
	Prepare() error
	Resize(width, height int)
	Size() (int, int)
	PollEvents()
	JustPressed(k render.Key) bool
	ShouldClose() bool
	Draw(cam render.Camera, scene particles.Scene) error
	Present()
	SetTitle(title string)
	Time() float64
	Release()
}

// resizeNotifier is implemented by surfaces whose size changes underneath
// the controller, e.g. a user-resized window.
type resizeNotifier interface {
	Resized() bool
}

const (
	phaseIdle int32 = iota
	phaseStarting
	phaseReady
	phaseClosed
)

// Status is a snapshot for transport displays.
type Status struct {
	Song      audio.Song
	Playing   bool
	Position  time.Duration
	Duration  time.Duration
	BPM       float64
	Formation particles.Kind
	Bands     audio.Bands
}

type Controller struct {
	cfg     Config
	log     *log.Logger
	surface Surface
	sink    audio.Sink
	bus     *event.Bus
	rand    particles.Source

	ranges audio.FrequencyRanges
	props  particles.Properties
	camera render.Camera

	phase    atomic.Int32
	stop     chan struct{}
	stopOnce sync.Once

	mu          sync.Mutex // guards everything Setup publishes for Teardown
	prepared    bool
	cancelSetup context.CancelFunc
	loopDone    chan struct{}
	analyzer    *audio.Analyzer
	clock       *beat.Clock
	formation   *particles.Formation
	unsubscribe []func()
	cancelWatch context.CancelFunc
	watchers    *errgroup.Group

	sinceStatus float64
}

// New builds an idle controller. sink may be nil for silent playback.
func New(cfg Config, surface Surface, sink audio.Sink) *Controller {
	rnd := cfg.Rand
	if rnd == nil {
		rnd = particles.NewRand(cfg.Seed)
	}
	if sink == nil {
		sink = &audio.NullSink{}
	}
	return &Controller{
		cfg:     cfg,
		log:     cfg.logger(),
		surface: surface,
		sink:    sink,
		bus:     event.NewBus(),
		rand:    rnd,
		ranges:  audio.DefaultFrequencyRanges(),
		props:   particles.DefaultProperties(),
		stop:    make(chan struct{}),
	}
}

// Setup prepares the surface, loads the song, detects its tempo and builds
// the formation, in that order. A second call while one is running returns
// ErrStartInFlight; after success it returns ErrAlreadyStarted, and after
// Teardown ErrClosed. A failed Setup releases whatever it had acquired and
// may be retried.
func (c *Controller) Setup(ctx context.Context) error {
	if !c.phase.CompareAndSwap(phaseIdle, phaseStarting) {
		switch c.phase.Load() {
		case phaseStarting:
			return ErrStartInFlight
		case phaseReady:
			return ErrAlreadyStarted
		}
		return ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := c.locked(func() error {
		c.cancelSetup = cancel
		return nil
	}); err != nil {
		return err
	}

	err := c.setup(ctx)
	if err == nil && c.phase.CompareAndSwap(phaseStarting, phaseReady) {
		c.mu.Lock()
		c.cancelSetup = nil
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.cancelSetup = nil
	c.releaseLocked()
	c.mu.Unlock()
	if !c.phase.CompareAndSwap(phaseStarting, phaseIdle) && err == nil {
		err = ErrClosed
	}
	return err
}

// locked runs fn under mu unless Teardown has begun, in which case nothing
// is published and ErrClosed is returned.
func (c *Controller) locked(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase.Load() == phaseClosed {
		return ErrClosed
	}
	return fn()
}

func (c *Controller) setup(ctx context.Context) error {
	var settings *Settings
	if c.cfg.SettingsPath != "" {
		s, err := LoadSettings(c.cfg.SettingsPath)
		if err != nil {
			c.log.Printf("ignoring settings: %v", err)
		} else {
			settings = &s
			c.applyPanel(s)
		}
	}

	if err := c.surface.Prepare(); err != nil {
		return fmt.Errorf("prepare surface: %w", err)
	}
	if err := c.locked(func() error {
		c.prepared = true
		return nil
	}); err != nil {
		c.surface.Release()
		return err
	}
	c.camera = render.NewCamera(c.surface.Size())

	opts := append([]audio.AnalyzerOption(nil), c.cfg.AnalyzerOptions...)
	analyzer := audio.NewAnalyzer(c.sink, &c.ranges, opts...)
	if err := analyzer.Load(ctx, c.cfg.Song); err != nil {
		return err
	}
	if settings != nil && settings.Volume != nil {
		analyzer.SetVolume(*settings.Volume)
	}

	bopts := append([]beat.Option{beat.WithLogger(c.log)}, c.cfg.BeatOptions...)
	clock := beat.NewClock(c.bus, bopts...)
	if err := c.locked(func() error {
		c.analyzer = analyzer
		c.clock = clock
		return nil
	}); err != nil {
		if cerr := analyzer.Close(); cerr != nil {
			c.log.Printf("close audio: %v", cerr)
		}
		return err
	}
	c.log.Printf("loaded %s (%v, %d Hz)", c.cfg.Song.URL, analyzer.Duration().Round(time.Millisecond), analyzer.SampleRate())

	// A clock disposed by a concurrent Teardown ignores the tempo.
	clock.DetectTempo(ctx, analyzer.Buffer())

	return c.locked(func() error {
		formation := particles.NewFormation(particles.Deps{
			Buffers: c.surface,
			Player:  analyzer,
			Tempo:   clock,
			Props:   &c.props,
			Rand:    c.rand,
			Log:     c.log,
		})
		c.formation = formation
		c.unsubscribe = append(c.unsubscribe,
			clock.Subscribe(formation.OnBeat),
			c.bus.Subscribe(event.SettingsChanged, c.onSettings),
		)
		if err := formation.Init(); err != nil {
			return fmt.Errorf("init formation: %w", err)
		}
		if settings != nil {
			c.applyFormation(*settings)
		}
		c.surface.SetTitle(title(c.cfg.Song))

		if c.cfg.SettingsPath != "" {
			c.startWatcherLocked()
		}
		return nil
	})
}

func (c *Controller) startWatcherLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	w := NewSettingsWatcher(c.cfg.SettingsPath, c.bus, c.log)
	g.Go(func() error {
		return w.Run(gctx)
	})
	c.cancelWatch, c.watchers = cancel, g
}

func title(s audio.Song) string {
	switch {
	case s.Title != "" && s.Artist != "":
		return fmt.Sprintf("%s - %s - %s", WindowTitle, s.Artist, s.Title)
	case s.Title != "":
		return fmt.Sprintf("%s - %s", WindowTitle, s.Title)
	}
	return WindowTitle
}

// Start runs Setup, starts playback when Autoplay is set, then runs the
// frame loop until Stop, ctx cancellation or the surface closes.
// Teardown always runs before Start returns, except when the call was
// rejected because another Start owns the controller.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.Setup(ctx); err != nil {
		if errors.Is(err, ErrStartInFlight) || errors.Is(err, ErrAlreadyStarted) {
			return err
		}
		c.Teardown()
		return err
	}
	defer c.Teardown()

	if c.cfg.Autoplay {
		if err := c.Play(); err != nil {
			c.log.Printf("autoplay: %v", err)
		}
	}
	return c.Run(ctx)
}

// Run drives Frame until stopped. Frame times come from the surface clock.
// Teardown waits for a running loop to return before releasing anything.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.phase.Load() != phaseReady {
		c.mu.Unlock()
		return ErrNotStarted
	}
	if c.loopDone != nil {
		c.mu.Unlock()
		return ErrRunning
	}
	done := make(chan struct{})
	c.loopDone = done
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loopDone = nil
		c.mu.Unlock()
		close(done)
	}()

	var pace <-chan time.Time
	if c.cfg.FrameInterval > 0 {
		t := time.NewTicker(c.cfg.FrameInterval)
		defer t.Stop()
		pace = t.C
	}

	last := c.surface.Time()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stop:
			return nil
		default:
		}
		if c.surface.ShouldClose() {
			return nil
		}

		now := c.surface.Time()
		dt := max(0, min(now-last, MaxFrameDT))
		last = now
		if err := c.Frame(dt); err != nil {
			return err
		}

		if pace != nil {
			select {
			case <-pace:
			case <-ctx.Done():
				return nil
			case <-c.stop:
				return nil
			}
		}
	}
}

// Frame runs one tick: input, queued events, analysis while playing,
// formation update, then draw and present. It is a no-op before Setup
// completes or after Teardown.
func (c *Controller) Frame(dt float64) error {
	if c.phase.Load() != phaseReady {
		return nil
	}
	c.surface.PollEvents()
	c.handleKeys()
	if rn, ok := c.surface.(resizeNotifier); ok && rn.Resized() {
		c.camera.Resize(c.surface.Size())
	}

	c.bus.Drain()

	var bands *audio.Bands
	if c.analyzer.IsPlaying() {
		if err := c.analyzer.Update(); err != nil {
			c.log.Printf("analyze: %v", err)
		}
		b := c.analyzer.Bands()
		bands = &b
	}
	c.formation.Advance(dt)
	c.formation.Update(bands)

	if err := c.surface.Draw(c.camera, c.formation.Scene()); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	c.surface.Present()

	if c.cfg.OnStatus != nil {
		c.sinceStatus += dt
		if c.sinceStatus >= StatusInterval {
			c.sinceStatus = 0
			c.cfg.OnStatus(c.Status())
		}
	}
	return nil
}

func (c *Controller) handleKeys() {
	s := c.surface
	if s.JustPressed(render.KeySpace) {
		if err := c.Toggle(); err != nil {
			c.log.Printf("toggle: %v", err)
		}
	}
	for i, k := range []render.Key{render.Key1, render.Key2, render.Key3, render.Key4} {
		if s.JustPressed(k) {
			if err := c.formation.ShowFormation(particles.Mixable[i]); err != nil {
				c.log.Printf("show formation: %v", err)
			}
		}
	}
	if s.JustPressed(render.KeyM) {
		c.props.AutoMix = !c.props.AutoMix
	}
	if s.JustPressed(render.KeyR) {
		c.props.AutoRotate = !c.props.AutoRotate
	}
	if s.JustPressed(render.KeyC) {
		c.props.RandomColor = !c.props.RandomColor
	}
	if s.JustPressed(render.KeyLeft) {
		c.seekBy(-SeekStep)
	}
	if s.JustPressed(render.KeyRight) {
		c.seekBy(SeekStep)
	}
	if s.JustPressed(render.KeyUp) {
		c.analyzer.SetVolume(c.analyzer.Volume() + VolumeStep)
	}
	if s.JustPressed(render.KeyDown) {
		c.analyzer.SetVolume(c.analyzer.Volume() - VolumeStep)
	}
	if s.JustPressed(render.KeyEscape) {
		c.Stop()
	}
}

func (c *Controller) seekBy(d time.Duration) {
	if err := c.Seek(c.analyzer.CurrentTime() + d); err != nil {
		c.log.Printf("seek: %v", err)
	}
}

func (c *Controller) Play() error {
	if c.analyzer == nil {
		return ErrNotStarted
	}
	return c.analyzer.Play()
}

func (c *Controller) Pause() {
	if c.analyzer != nil {
		c.analyzer.Pause()
	}
}

func (c *Controller) Toggle() error {
	if c.IsPlaying() {
		c.Pause()
		return nil
	}
	return c.Play()
}

func (c *Controller) IsPlaying() bool {
	return c.analyzer != nil && c.analyzer.IsPlaying()
}

// Seek moves playback to pos, wrapped to the track length.
func (c *Controller) Seek(pos time.Duration) error {
	if c.analyzer == nil {
		return ErrNotStarted
	}
	return c.analyzer.Seek(pos)
}

// Resize recomputes the projection and resizes the surface.
func (c *Controller) Resize(width, height int) {
	c.camera.Resize(width, height)
	c.surface.Resize(width, height)
}

func (c *Controller) Status() Status {
	st := Status{Song: c.cfg.Song}
	if c.analyzer != nil {
		st.Playing = c.analyzer.IsPlaying()
		st.Position = c.analyzer.CurrentTime()
		st.Duration = c.analyzer.Duration()
		st.Bands = c.analyzer.Bands()
	}
	if c.clock != nil {
		st.BPM = c.clock.BPM()
	}
	if c.formation != nil {
		st.Formation = c.formation.Kind()
	}
	return st
}

// Bus exposes the frame-thread event queue.
func (c *Controller) Bus() *event.Bus { return c.bus }

func (c *Controller) Ranges() *audio.FrequencyRanges { return &c.ranges }

func (c *Controller) Properties() *particles.Properties { return &c.props }

func (c *Controller) Camera() render.Camera { return c.camera }

// Formation is nil until Setup has built it.
func (c *Controller) Formation() *particles.Formation { return c.formation }

func (c *Controller) Analyzer() *audio.Analyzer { return c.analyzer }

func (c *Controller) Clock() *beat.Clock { return c.clock }

// Stop asks Run to return. Safe from any goroutine.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Teardown stops the loop and the beat clock before releasing the
// formation, the audio source and the surface. It waits for Run to finish
// its current frame, so it must not be called from inside Frame. It
// tolerates partial or in-flight setup and repeated calls.
func (c *Controller) Teardown() {
	c.Stop()
	c.phase.Store(phaseClosed)

	c.mu.Lock()
	if c.cancelSetup != nil {
		c.cancelSetup()
		c.cancelSetup = nil
	}
	loop := c.loopDone
	c.mu.Unlock()
	if loop != nil {
		<-loop
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

// releaseLocked frees everything Setup has published, clock first so no
// beat lands on a disposed formation. Beats already queued are dropped.
func (c *Controller) releaseLocked() {
	if c.clock != nil {
		c.clock.Dispose()
		c.clock = nil
	}
	for _, unsub := range c.unsubscribe {
		unsub()
	}
	c.unsubscribe = nil
	c.bus.Discard(event.Beat)
	if c.cancelWatch != nil {
		c.cancelWatch()
		if err := c.watchers.Wait(); err != nil {
			c.log.Printf("settings watcher: %v", err)
		}
		c.cancelWatch, c.watchers = nil, nil
	}
	if c.formation != nil {
		c.formation.Dispose()
		c.formation = nil
	}
	if c.analyzer != nil {
		if err := c.analyzer.Close(); err != nil {
			c.log.Printf("close audio: %v", err)
		}
		c.analyzer = nil
	}
	if c.prepared {
		c.surface.Release()
		c.prepared = false
	}
}
