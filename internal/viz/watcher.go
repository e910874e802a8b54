package viz

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"beatviz/internal/event"
)

// SettingsWatcher reloads a settings file when it changes and posts the
// parsed result as event.SettingsChanged. Watching the parent directory
// survives editors that replace the file by rename.
type SettingsWatcher struct {
	path     string
	bus      *event.Bus
	log      *log.Logger
	debounce time.Duration

	ready func() // test hook, called once the watch is installed
}

func NewSettingsWatcher(path string, bus *event.Bus, l *log.Logger) *SettingsWatcher {
	return &SettingsWatcher{
		path:     filepath.Clean(path),
		bus:      bus,
		log:      l,
		debounce: SettingsDebounce,
	}
}

// Run blocks until ctx is done.
func (w *SettingsWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	if w.ready != nil {
		w.ready()
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			s, err := LoadSettings(w.path)
			if err != nil {
				w.log.Printf("settings not applied: %v", err)
				continue
			}
			w.bus.Post(event.Event{Type: event.SettingsChanged, Payload: s})
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Printf("settings watcher: %v", err)
		}
	}
}
