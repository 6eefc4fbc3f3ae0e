package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// settle is how long a write is left alone before the file is reprocessed,
// so that a burst of writes is handled once.
const settle = 100 * time.Millisecond

// Watch reprocesses files under paths whenever they are written, passing
// each result to report. It blocks until ctx is done.
func Watch(
	ctx context.Context,
	logger *zap.Logger,
	paths []string,
	processor Processor,
	report func(*FileResult, error),
) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	explicit := make(map[string]bool)
	walked := make(map[string]bool)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			explicit[filepath.Clean(path)] = true
			if err := watcher.Add(filepath.Dir(path)); err != nil {
				return fmt.Errorf("error adding %s to watcher: %w", path, err)
			}
			continue
		}
		if err := watchTree(watcher, path, walked, nil); err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}

	pending := make(map[string]*time.Timer)
	ready := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	schedule := func(name string) {
		if t, ok := pending[name]; ok {
			t.Reset(settle)
			return
		}
		pending[name] = time.AfterFunc(settle, func() {
			select {
			case ready <- name:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Clean(event.Name)
			if event.Op&fsnotify.Create != 0 && walked[filepath.Dir(name)] {
				if info, err := os.Stat(name); err == nil && info.IsDir() {
					// files may land in a new directory before it is watched
					if err := watchTree(watcher, name, walked, schedule); err != nil {
						logger.Error("error adding directory to watcher", zap.String("dir", name), zap.Error(err))
					}
					continue
				}
			}
			if !explicit[name] && !(walked[filepath.Dir(name)] && hasDesiredExtension(name)) {
				continue
			}
			schedule(name)
		case name := <-ready:
			delete(pending, name)
			logger.Debug("file changed", zap.String("file", name))
			report(processor(name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", zap.Error(err))
		}
	}
}

// watchTree adds root and every directory below it to watcher. found, when
// set, is called for each file with a desired extension already there.
func watchTree(watcher *fsnotify.Watcher, root string, walked map[string]bool, found func(string)) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		p = filepath.Clean(p)
		if info.IsDir() {
			walked[p] = true
			return watcher.Add(p)
		}
		if found != nil && hasDesiredExtension(p) {
			found(p)
		}
		return nil
	})
}
