package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// DecodeError reports an audio resource that could not be fetched or decoded.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	ErrUnknownFormat = errors.New("unknown audio format")
	ErrEmptyAudio    = errors.New("audio contains no samples")
)

// Fetch reads the raw bytes behind a song locator.
func Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch: %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(url)
}

// Decode turns encoded bytes into a Buffer. name is used for the format hint.
func Decode(name string, data []byte) (*Buffer, error) {
	var (
		buf *Buffer
		err error
	)
	switch sniffFormat(name, data) {
	case "wav":
		buf, err = decodeWAV(data)
	case "mp3":
		buf, err = decodeMP3(data)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}
	if buf.Frames() == 0 || buf.SampleRate <= 0 {
		return nil, ErrEmptyAudio
	}
	return buf, nil
}

func sniffFormat(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		return "wav"
	case ".mp3":
		return "mp3"
	}
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return "wav"
	}
	if len(data) >= 3 && string(data[0:3]) == "ID3" {
		return "mp3"
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return "mp3"
	}
	return ""
}

func decodeWAV(data []byte) (*Buffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav pcm: %w", err)
	}
	return wavToBuffer(pcm, int(d.BitDepth))
}

func wavToBuffer(pcm *goaudio.IntBuffer, bitDepth int) (*Buffer, error) {
	if pcm == nil || pcm.Format == nil || pcm.Format.NumChannels <= 0 {
		return nil, errors.New("wav: missing format")
	}
	if bitDepth <= 0 {
		bitDepth = pcm.SourceBitDepth
	}
	if bitDepth <= 0 {
		return nil, errors.New("wav: unknown bit depth")
	}
	factor := math.Pow(2, float64(bitDepth-1))
	out := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		if bitDepth == 8 {
			// 8-bit WAV is unsigned.
			out[i] = float32((float64(v) - 128) / 128)
			continue
		}
		out[i] = float32(float64(v) / factor)
	}
	return &Buffer{
		Samples:    out,
		Channels:   pcm.Format.NumChannels,
		SampleRate: pcm.Format.SampleRate,
	}, nil
}

func decodeMP3(data []byte) (*Buffer, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("mp3 read: %w", err)
	}
	// go-mp3 always yields 16-bit signed little endian stereo.
	n := len(raw) / 2
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	if n%2 != 0 {
		out = out[:n-1]
	}
	return &Buffer{
		Samples:    out,
		Channels:   2,
		SampleRate: d.SampleRate(),
	}, nil
}

// Load fetches and decodes a song. Every failure is returned as *DecodeError.
func Load(ctx context.Context, song Song) (*Buffer, error) {
	data, err := Fetch(ctx, song.URL)
	if err != nil {
		return nil, &DecodeError{URL: song.URL, Err: err}
	}
	buf, err := Decode(song.URL, data)
	if err != nil {
		return nil, &DecodeError{URL: song.URL, Err: err}
	}
	return buf, nil
}
