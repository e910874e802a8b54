// Command beatviz plays a song and renders an audio-reactive particle
// formation that pulses with its frequency bands and beat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/term"

	"beatviz/internal/audio"
	"beatviz/internal/audio/otosink"
	"beatviz/internal/render"
	"beatviz/internal/render/glsurface"
	"beatviz/internal/viz"
)

func init() {
	// GLFW and GL calls must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(os.Args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "beatviz: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := viz.DefaultConfig()
	var (
		headless bool
		quiet    bool
		seed     uint64
	)

	flagSet := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flagSet.StringVar(&cfg.Song.Title, "title", "", "song title shown in the window")
	flagSet.StringVar(&cfg.Song.Artist, "artist", "", "song artist shown in the window")
	flagSet.StringVar(&cfg.SettingsPath, "settings", "", "JSON settings file, reloaded on change")
	flagSet.BoolVar(&cfg.Autoplay, "autoplay", cfg.Autoplay, "start playback immediately")
	flagSet.Uint64Var(&seed, "seed", 0, "random seed (default $"+viz.SeedEnv+" or the clock)")
	flagSet.BoolVar(&headless, "headless", false, "run without a window")
	flagSet.BoolVar(&quiet, "quiet", false, "suppress log output")
	flagSet.Usage = func() {
		fmt.Fprintf(flagSet.Output(), "Usage: %s [options] song.{wav,mp3}|URL\n\nOptions:\n", args[0])
		flagSet.PrintDefaults()
		fmt.Fprintf(flagSet.Output(), "\nKeys: space play/pause, 1-4 formation, m automix, r autorotate,\n"+
			"c random colours, left/right seek, up/down volume, esc quit\n")
	}
	if err := flagSet.Parse(args[1:]); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return errors.New("expected exactly one song")
	}
	cfg.Song.URL = flagSet.Arg(0)
	if seed != 0 {
		cfg.Seed = seed
	}

	var logOut io.Writer = os.Stderr
	if quiet {
		logOut = io.Discard
	}
	cfg.Log = log.New(logOut, "beatviz: ", log.Ltime)

	var surface viz.Surface
	if headless {
		surface = render.NewHeadless(viz.WindowWidth, viz.WindowHeight)
		cfg.FrameInterval = viz.HeadlessFrameDT
	} else {
		surface = glsurface.New(viz.WindowWidth, viz.WindowHeight, viz.WindowTitle)
	}

	var sink audio.Sink = otosink.New()
	if headless {
		sink = &audio.NullSink{}
	}

	if fd := int(os.Stdout.Fd()); term.IsTerminal(fd) {
		cfg.OnStatus = func(st viz.Status) { printStatus(fd, st) }
		defer fmt.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := viz.New(cfg, surface, sink)
	return ctrl.Start(ctx)
}

// printStatus redraws a one-line transport display, trimmed to the
// terminal width.
func printStatus(fd int, st viz.Status) {
	state := "paused"
	if st.Playing {
		state = "playing"
	}
	line := fmt.Sprintf("%s %s / %s  %.0f bpm  %-8s low %.2f mid %.2f high %.2f",
		state,
		st.Position.Truncate(time.Second), st.Duration.Truncate(time.Second),
		st.BPM, st.Formation,
		st.Bands.Low, st.Bands.Mid, st.Bands.High)
	if w, _, err := term.GetSize(fd); err == nil && w > 0 && len(line) >= w {
		line = line[:w-1]
	}
	fmt.Printf("\r%s\x1b[K", line)
}
