package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SettingsWatcher calls onChange after the settings file is edited on disk.
// Bursts of events (editors write, rename and chmod in quick succession) are
// coalesced into a single call.
type SettingsWatcher struct {
	log      *zap.Logger
	path     string
	debounce time.Duration
	onChange func(ctx context.Context) error
}

// StartSettingsWatch starts watching path in the background until ctx is
// cancelled. The parent directory is watched, not the file, so atomic
// replacements (temp + rename) are seen.
func StartSettingsWatch(ctx context.Context, log *zap.Logger, path string, debounce time.Duration, onChange func(ctx context.Context) error) error {
	if debounce <= 0 {
		debounce = 750 * time.Millisecond
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("abs %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher init: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("watch add dir: %w", err)
	}

	s := &SettingsWatcher{
		log:      log.Named("settings_watch"),
		path:     abs,
		debounce: debounce,
		onChange: onChange,
	}
	go s.run(ctx, w)
	return nil
}

func (s *SettingsWatcher) run(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()
	s.log.Info("watching settings file", zap.String("path", s.path))

	var t *time.Timer
	trigger := func() {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.onChange(cctx); err != nil {
			s.log.Warn("settings sync failed", zap.Error(err))
			return
		}
		s.log.Debug("settings synced")
	}
	defer func() {
		if t != nil {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Name != s.path {
				continue
			}
			// Remove means the file is gone; wait for it to reappear.
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				if t != nil {
					t.Stop()
				}
				t = time.AfterFunc(s.debounce, trigger)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("watch error", zap.Error(err))
		}
	}
}
