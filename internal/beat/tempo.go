package beat

import (
	"context"
	"errors"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"beatviz/internal/audio"
)

var ErrNoBeats = errors.New("beat: no tempo found")

// TempoEstimator derives a BPM from a whole decoded track.
type TempoEstimator interface {
	Estimate(ctx context.Context, buf *audio.Buffer) (float64, error)
}

// EstimatorFunc adapts a function to TempoEstimator.
type EstimatorFunc func(ctx context.Context, buf *audio.Buffer) (float64, error)

func (f EstimatorFunc) Estimate(ctx context.Context, buf *audio.Buffer) (float64, error) {
	return f(ctx, buf)
}

// PeakIntervalEstimator low-passes the signal, picks energy peaks and
// votes on the tempo implied by the intervals between them.
type PeakIntervalEstimator struct {
	CutoffHz     float64
	MinPeaks     int
	MinTempo     float64
	MaxTempo     float64
	Neighbours   int
	PeakSpacingS float64
}

func NewPeakIntervalEstimator() *PeakIntervalEstimator {
	return &PeakIntervalEstimator{
		CutoffHz:     240,
		MinPeaks:     15,
		MinTempo:     90,
		MaxTempo:     180,
		Neighbours:   10,
		PeakSpacingS: 0.25,
	}
}

func (e *PeakIntervalEstimator) Estimate(ctx context.Context, buf *audio.Buffer) (float64, error) {
	if buf == nil || buf.Frames() == 0 || buf.SampleRate <= 0 {
		return 0, audio.ErrEmptyAudio
	}
	x := make([]float64, buf.Frames())
	for i := range x {
		x[i] = buf.MonoAt(i)
	}
	lowpass(e.CutoffHz, float64(buf.SampleRate)).ProcessBlock(x)
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	peak := 0.0
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		return 0, ErrNoBeats
	}

	skip := max(1, int(e.PeakSpacingS*float64(buf.SampleRate)))
	var peaks []int
	for thr := 0.9; thr >= 0.3-1e-9; thr -= 0.05 {
		peaks = peaksAbove(x, thr*peak, skip)
		if len(peaks) >= e.MinPeaks {
			break
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
	if len(peaks) < 2 {
		return 0, ErrNoBeats
	}

	votes := map[int]int{}
	for i, p := range peaks {
		for j := 1; j <= e.Neighbours && i+j < len(peaks); j++ {
			interval := float64(peaks[i+j]-p) / float64(buf.SampleRate)
			if t, ok := e.fold(60 / interval); ok {
				votes[t]++
			}
		}
	}
	best, bestVotes := 0, 0
	for t, n := range votes {
		if n > bestVotes || (n == bestVotes && t < best) {
			best, bestVotes = t, n
		}
	}
	if bestVotes == 0 {
		return 0, ErrNoBeats
	}
	return float64(best), nil
}

// fold doubles or halves tempo into [MinTempo, MaxTempo) and rounds it.
func (e *PeakIntervalEstimator) fold(tempo float64) (int, bool) {
	if !(tempo > 0) || math.IsInf(tempo, 0) {
		return 0, false
	}
	for tempo < e.MinTempo {
		tempo *= 2
	}
	for tempo >= e.MaxTempo {
		tempo /= 2
	}
	return int(math.Round(tempo)), true
}

func peaksAbove(x []float64, thr float64, skip int) []int {
	var out []int
	for i := 0; i < len(x); i++ {
		if math.Abs(x[i]) > thr {
			out = append(out, i)
			i += skip - 1
		}
	}
	return out
}

// lowpass is a Butterworth-Q RBJ low-pass section.
func lowpass(cutoff, sampleRate float64) *biquad.Section {
	return biquad.NewSection(design.Lowpass(cutoff, 1/math.Sqrt2, sampleRate))
}
