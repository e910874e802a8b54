package audio

import (
	"context"
	"errors"
	"time"
)

// DefaultVolume is the initial output gain.
const DefaultVolume = 0.5

var ErrNotLoaded = errors.New("audio: no track loaded")

// Loader fetches and decodes a song.
type Loader func(ctx context.Context, song Song) (*Buffer, error)

type AnalyzerOption func(*Analyzer)

// WithLoader replaces the default file/HTTP loader.
func WithLoader(l Loader) AnalyzerOption {
	return func(a *Analyzer) { a.load = l }
}

// WithClock sets the wall clock that drives playback position.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

// Analyzer owns the loaded track and turns its playback position into
// three band energies.
type Analyzer struct {
	sink   Sink
	ranges *FrequencyRanges
	load   Loader
	now    func() time.Time

	source   *Source
	song     Song
	spectrum *Spectrum
	window   []float64
	data     []uint8
	hasData  bool
	bands    Bands
	volume   float64
}

// NewAnalyzer reads band boundaries from ranges on every Update, so
// external edits take effect on the next frame. A nil ranges uses defaults.
func NewAnalyzer(sink Sink, ranges *FrequencyRanges, opts ...AnalyzerOption) *Analyzer {
	if sink == nil {
		sink = &NullSink{}
	}
	if ranges == nil {
		r := DefaultFrequencyRanges()
		ranges = &r
	}
	a := &Analyzer{
		sink:   sink,
		ranges: ranges,
		load:   Load,
		now:    time.Now,
		volume: DefaultVolume,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Load decodes song and makes it the current source. On failure the
// previous source, spectrum and bands are left as they were.
func (a *Analyzer) Load(ctx context.Context, song Song) error {
	buf, err := a.load(ctx, song)
	if err != nil {
		var de *DecodeError
		if !errors.As(err, &de) {
			err = &DecodeError{URL: song.URL, Err: err}
		}
		return err
	}
	if a.spectrum == nil {
		sp, err := NewSpectrum(FFTSize)
		if err != nil {
			return err
		}
		a.spectrum = sp
		a.window = make([]float64, sp.Size())
		a.data = make([]uint8, sp.Bins())
	}
	if a.source != nil {
		a.source.Stop()
	}
	a.source = NewSource(buf, a.sink, a.now)
	a.source.SetVolume(a.volume)
	a.song = song
	a.spectrum.Reset()
	clear(a.data)
	a.hasData = false
	a.bands = Bands{}
	return nil
}

func (a *Analyzer) Play() error {
	if a.source == nil {
		return ErrNotLoaded
	}
	return a.source.Play()
}

func (a *Analyzer) Pause() {
	if a.source != nil {
		a.source.Pause()
	}
}

// Stop halts playback and rewinds to zero.
func (a *Analyzer) Stop() {
	if a.source != nil {
		a.source.Stop()
	}
}

func (a *Analyzer) Seek(d time.Duration) error {
	if a.source == nil {
		return ErrNotLoaded
	}
	return a.source.Seek(d)
}

func (a *Analyzer) SetVolume(v float64) {
	a.volume = clampF(v, 0, 1)
	if a.source != nil {
		a.source.SetVolume(a.volume)
	}
}

func (a *Analyzer) Volume() float64 { return a.volume }

func (a *Analyzer) IsPlaying() bool {
	return a.source != nil && a.source.State() == Playing
}

// Sample takes one spectral snapshot at the playback position. It does
// nothing unless playing.
func (a *Analyzer) Sample() error {
	if !a.IsPlaying() {
		return nil
	}
	a.source.Window(a.window)
	if err := a.spectrum.Process(a.window, a.data); err != nil {
		return err
	}
	a.hasData = true
	return nil
}

// Analyze recomputes the bands from the latest snapshot. Without a
// snapshot the previous bands are returned unchanged.
func (a *Analyzer) Analyze(r FrequencyRanges) Bands {
	if !a.hasData {
		return a.bands
	}
	a.bands = BandsFrom(a.data, a.SampleRate(), r)
	return a.bands
}

// Update samples and analyzes with the shared ranges while playing.
func (a *Analyzer) Update() error {
	if !a.IsPlaying() {
		return nil
	}
	if err := a.Sample(); err != nil {
		return err
	}
	a.Analyze(*a.ranges)
	return nil
}

func (a *Analyzer) Bands() Bands { return a.bands }

// Ranges returns the live band boundaries.
func (a *Analyzer) Ranges() *FrequencyRanges { return a.ranges }

// Spectrum returns the latest byte spectrum. The slice is reused.
func (a *Analyzer) Spectrum() []uint8 { return a.data }

func (a *Analyzer) Buffer() *Buffer {
	if a.source == nil {
		return nil
	}
	return a.source.Buffer()
}

func (a *Analyzer) Song() Song { return a.song }

func (a *Analyzer) CurrentTime() time.Duration {
	if a.source == nil {
		return 0
	}
	return a.source.Elapsed()
}

func (a *Analyzer) Duration() time.Duration {
	return a.Buffer().Duration()
}

// BufferLength is the number of spectrum bins.
func (a *Analyzer) BufferLength() int { return FFTSize / 2 }

func (a *Analyzer) SampleRate() int {
	if b := a.Buffer(); b != nil {
		return b.SampleRate
	}
	return 0
}

// Close stops playback and releases the sink.
func (a *Analyzer) Close() error {
	a.Stop()
	return a.sink.Close()
}
