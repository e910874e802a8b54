package audio

import (
	"encoding/binary"
	"io"
	"math"
)

// Sink plays PCM produced by a Source. Start replaces any running stream.
type Sink interface {
	Start(r io.Reader, sampleRate int) error
	Stop()
	SetVolume(v float64)
	Close() error
}

// NullSink discards audio. The playback clock still advances.
type NullSink struct {
	Started bool
	Volume  float64
}

func (n *NullSink) Start(io.Reader, int) error {
	n.Started = true
	return nil
}

func (n *NullSink) Stop()               { n.Started = false }
func (n *NullSink) SetVolume(v float64) { n.Volume = v }
func (n *NullSink) Close() error {
	n.Started = false
	return nil
}

// OutputChannels is the channel layout produced by PCMReader.
const OutputChannels = 2

// PCMReader streams a Buffer as float32 little-endian stereo frames,
// starting at a frame offset and optionally looping.
type PCMReader struct {
	buf   *Buffer
	frame int
	loop  bool
}

func NewPCMReader(buf *Buffer, startFrame int, loop bool) *PCMReader {
	frames := buf.Frames()
	if frames > 0 {
		startFrame %= frames
		if startFrame < 0 {
			startFrame += frames
		}
	}
	return &PCMReader{buf: buf, frame: startFrame, loop: loop}
}

func (r *PCMReader) Read(p []byte) (int, error) {
	const frameBytes = 4 * OutputChannels
	frames := r.buf.Frames()
	if frames == 0 {
		return 0, io.EOF
	}
	n := 0
	for n+frameBytes <= len(p) {
		if r.frame >= frames {
			if !r.loop {
				break
			}
			r.frame = 0
		}
		left, right := r.stereoAt(r.frame)
		putStereoF32LR(p[n:], left, right)
		n += frameBytes
		r.frame++
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *PCMReader) stereoAt(i int) (float32, float32) {
	base := i * r.buf.Channels
	if r.buf.Channels == 1 {
		v := r.buf.Samples[base]
		return v, v
	}
	return r.buf.Samples[base], r.buf.Samples[base+1]
}

// putStereoF32LR writes independent left/right float32 samples.
func putStereoF32LR(buf []byte, left, right float32) {
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(left))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(right))
}
