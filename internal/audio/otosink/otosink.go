// Package otosink plays decoded tracks through the system audio device.
package otosink

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"

	"beatviz/internal/audio"
)

// oto allows one context per process.
var (
	ctxOnce  sync.Once
	otoCtx   *oto.Context
	otoReady chan struct{}
	otoRate  int
	otoErr   error
)

func deviceContext(sampleRate int) (*oto.Context, chan struct{}, error) {
	ctxOnce.Do(func() {
		otoRate = sampleRate
		otoCtx, otoReady, otoErr = oto.NewContext(sampleRate, audio.OutputChannels, oto.FormatFloat32LE)
	})
	if otoErr != nil {
		return nil, nil, otoErr
	}
	if sampleRate != otoRate {
		return nil, nil, fmt.Errorf("otosink: device opened at %d Hz, track is %d Hz", otoRate, sampleRate)
	}
	return otoCtx, otoReady, nil
}

var _ audio.Sink = (*Sink)(nil)

// Sink streams PCM to an oto player. Only one player is live at a time.
type Sink struct {
	// ReadyTimeout bounds the wait for the device on first Start.
	ReadyTimeout time.Duration

	mu     sync.Mutex
	player oto.Player
	volume float64
}

func New() *Sink {
	return &Sink{ReadyTimeout: 2 * time.Second, volume: audio.DefaultVolume}
}

func (s *Sink) Start(r io.Reader, sampleRate int) error {
	ctx, ready, err := deviceContext(sampleRate)
	if err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	select {
	case <-ready:
	case <-time.After(s.ReadyTimeout):
		return fmt.Errorf("audio init: device not ready after %v", s.ReadyTimeout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closePlayerLocked()
	p := ctx.NewPlayer(r)
	p.SetVolume(s.volume)
	p.Play()
	s.player = p
	return nil
}

func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closePlayerLocked()
}

func (s *Sink) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	if s.player != nil {
		s.player.SetVolume(v)
	}
}

func (s *Sink) Close() error {
	s.Stop()
	return nil
}

func (s *Sink) closePlayerLocked() {
	if s.player == nil {
		return
	}
	s.player.Pause()
	s.player.Close()
	s.player = nil
}
