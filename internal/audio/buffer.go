package audio

import "time"

// Song identifies an audio resource plus optional display metadata.
type Song struct {
	URL    string // file path or http(s) URL
	Title  string
	Artist string
}

// Buffer is a fully decoded track: interleaved float32 samples in [-1,1].
type Buffer struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// MonoAt returns the channel average of frame i.
func (b *Buffer) MonoAt(i int) float64 {
	base := i * b.Channels
	sum := 0.0
	for c := 0; c < b.Channels; c++ {
		sum += float64(b.Samples[base+c])
	}
	return sum / float64(b.Channels)
}

// Mono returns a channel-averaged copy of the whole track.
func (b *Buffer) Mono() []float32 {
	n := b.Frames()
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(b.MonoAt(i))
	}
	return out
}
