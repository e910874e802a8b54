package viz

import (
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"beatviz/internal/audio"
	"beatviz/internal/beat"
	"beatviz/internal/particles"
)

// Window defaults.
const (
	WindowWidth  = 1280
	WindowHeight = 720
	WindowTitle  = "beatviz"
)

// Frame pacing.
const (
	MaxFrameDT       = 0.1 // seconds; longer stalls are clamped
	HeadlessFrameDT  = time.Second / 60
	StatusInterval   = 0.5 // seconds between status callbacks
	SeekStep         = 5 * time.Second
	VolumeStep       = 0.1
	SeedEnv          = "BEATVIZ_SEED"
	SettingsDebounce = 50 * time.Millisecond
)

// Config wires a Controller. Zero values fall back to defaults.
type Config struct {
	Song         audio.Song
	SettingsPath string
	Autoplay     bool
	Seed         uint64

	// FrameInterval paces the loop for surfaces without vsync.
	FrameInterval time.Duration

	Log      *log.Logger
	Rand     particles.Source
	OnStatus func(Status)

	AnalyzerOptions []audio.AnalyzerOption
	BeatOptions     []beat.Option
}

func DefaultConfig() Config {
	return Config{
		Autoplay: true,
		Seed:     SeedFromEnv(uint64(time.Now().UnixNano())),
	}
}

// SeedFromEnv returns BEATVIZ_SEED when set and valid, else fallback.
func SeedFromEnv(fallback uint64) uint64 {
	if s := os.Getenv(SeedEnv); s != "" {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			return v
		}
	}
	return fallback
}

func (c Config) logger() *log.Logger {
	if c.Log != nil {
		return c.Log
	}
	return log.New(io.Discard, "", 0)
}
