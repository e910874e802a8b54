package audio

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"
	vecmath "github.com/cwbudde/algo-vecmath"
)

const (
	// FFTSize is the analysis window length; it yields FFTSize/2 bins.
	FFTSize = 1024

	DefaultSmoothing = 0.8
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0
)

// Spectrum turns a window of time-domain samples into byte-scaled bin
// magnitudes: Blackman window, FFT, temporal smoothing, then a linear
// mapping of [MinDB, MaxDB] onto [0, 255].
type Spectrum struct {
	Smoothing    float64
	MinDB, MaxDB float64

	plan     *algofft.Plan[complex128]
	window   []float64
	frame    []float64
	in, out  []complex128
	re, im   []float64
	mag      []float64
	smoothed []float64
}

func NewSpectrum(size int) (*Spectrum, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("spectrum: size %d is not a power of two", size)
	}
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum init fft plan: %w", err)
	}
	win, err := window.Blackman(size, window.WithPeriodic())
	if err != nil {
		return nil, fmt.Errorf("spectrum init window: %w", err)
	}
	bins := size / 2
	return &Spectrum{
		Smoothing: DefaultSmoothing,
		MinDB:     DefaultMinDB,
		MaxDB:     DefaultMaxDB,
		plan:      plan,
		window:    win,
		frame:     make([]float64, size),
		in:        make([]complex128, size),
		out:       make([]complex128, size),
		re:        make([]float64, bins),
		im:        make([]float64, bins),
		mag:       make([]float64, bins),
		smoothed:  make([]float64, bins),
	}, nil
}

// Size is the time-domain window length.
func (s *Spectrum) Size() int { return len(s.window) }

// Bins is the number of frequency bins produced.
func (s *Spectrum) Bins() int { return len(s.mag) }

// Reset clears smoothing history.
func (s *Spectrum) Reset() { clear(s.smoothed) }

// Process analyzes samples (len == Size) and writes Bins() values into dst.
func (s *Spectrum) Process(samples []float64, dst []uint8) error {
	if len(samples) != len(s.window) {
		return fmt.Errorf("spectrum: got %d samples, want %d", len(samples), len(s.window))
	}
	if len(dst) < len(s.mag) {
		return fmt.Errorf("spectrum: dst holds %d bins, want %d", len(dst), len(s.mag))
	}

	copy(s.frame, samples)
	vecmath.MulBlockInPlace(s.frame, s.window)
	for i, v := range s.frame {
		s.in[i] = complex(v, 0)
	}
	if err := s.plan.Forward(s.out, s.in); err != nil {
		return fmt.Errorf("spectrum fft: %w", err)
	}
	for i := range s.re {
		s.re[i] = real(s.out[i])
		s.im[i] = imag(s.out[i])
	}
	vecmath.Magnitude(s.mag, s.re, s.im)

	n := float64(len(s.window))
	tau := clampF(s.Smoothing, 0, 1)
	span := s.MaxDB - s.MinDB
	for i, m := range s.mag {
		s.smoothed[i] = tau*s.smoothed[i] + (1-tau)*m/n
		db := -math.Inf(1)
		if s.smoothed[i] > 0 {
			db = 20 * math.Log10(s.smoothed[i])
		}
		scaled := 255 * (db - s.MinDB) / span
		dst[i] = uint8(clampF(scaled, 0, 255))
	}
	return nil
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
