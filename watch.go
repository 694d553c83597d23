package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/stevemurr/persiston/store"
)

// watchFile reloads s whenever the file at path is written or replaced. The
// parent directory is watched so that editors that rename over the file are
// seen too. A reload that fails, for instance on a half-written file, is
// logged and the current data is kept.
func watchFile(ctx context.Context, path string, s *store.Store) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if _, err := s.Load(ctx); err != nil {
					slog.WarnContext(ctx, "Reload failed", "path", abs, "err", err)
					continue
				}
				slog.InfoContext(ctx, "Dataset reloaded", "path", abs)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching data file", "err", err)
			}
		}
	}()
	return nil
}
