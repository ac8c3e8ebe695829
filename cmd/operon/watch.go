package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the bursts of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

// watch evaluates path, then again after every change until ctx is done.
// The parent directory is watched so editors that replace the file on save
// keep triggering.
func (s *session) watch(ctx context.Context, path string) error {
	if path == "-" {
		return &CLIError{Type: "input", Message: "--watch needs a file argument"}
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	s.rerun(ctx, path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watch failed", "error", err)

		case <-debounce:
			debounce = nil
			s.rerun(ctx, path)
		}
	}
}

func (s *session) rerun(ctx context.Context, path string) {
	if err := s.evaluate(ctx, path); err != nil {
		FormatError(s.errOut, err, s.useColor)
	}
	_, _ = fmt.Fprintln(s.errOut, Colorize(fmt.Sprintf("watching %s for changes", path), ColorGray, s.useColor))
}
