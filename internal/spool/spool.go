// Package spool watches a drop directory for task files. A JSON file
// dropped into the spool is parsed, submitted to the dispatcher, and moved
// to done/ (or rejected/ when it cannot be parsed). Sweep picks up files
// that arrived while nothing was watching.
package spool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/calder/relay/internal/logging"
	"github.com/calder/relay/internal/tasks"
)

// Subdirectories for processed spool entries.
const (
	doneDir     = "done"
	rejectedDir = "rejected"
)

// Submitter accepts parsed tasks. Implemented by the dispatcher.
type Submitter interface {
	Submit(t *tasks.Task)
}

// Watcher follows a spool directory.
type Watcher struct {
	dir       string
	submitter Submitter
	logger    *logging.Logger
	fsw       *fsnotify.Watcher
}

// New creates a watcher for dir, creating the directory layout if needed.
func New(dir string, submitter Submitter, logger *logging.Logger) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("spool dir not configured")
	}
	if submitter == nil {
		return nil, fmt.Errorf("spool requires a submitter")
	}
	if logger == nil {
		logger = logging.Component("spool")
	}

	for _, sub := range []string{"", doneDir, rejectedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("creating spool dir: %w", err)
		}
	}

	return &Watcher{dir: dir, submitter: submitter, logger: logger}, nil
}

// Dir returns the spool directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start begins watching. Existing files are swept first so nothing
// dropped while the daemon was down is lost. Runs until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.fsw = fsw

	if _, err := w.Sweep(); err != nil {
		w.logger.Errorf("initial sweep: %v", err)
	}

	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer func() { _ = w.fsw.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Task files land via rename, which surfaces as Create.
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isTaskFile(event.Name) {
				continue
			}
			w.process(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("watch error: %v", err)
		}
	}
}

// Sweep processes every task file currently in the spool directory, in
// lexical order. Returns the number of files handled (including rejects).
func (w *Watcher) Sweep() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("reading spool dir: %w", err)
	}

	handled := 0
	for _, entry := range entries {
		if entry.IsDir() || !isTaskFile(entry.Name()) {
			continue
		}
		w.process(filepath.Join(w.dir, entry.Name()))
		handled++
	}
	return handled, nil
}

// process parses one spool file, submits its tasks, and files it away.
func (w *Watcher) process(path string) {
	if _, err := os.Stat(path); err != nil {
		// Already moved by a concurrent sweep.
		return
	}

	loaded, err := tasks.LoadFile(path)
	if err != nil {
		w.logger.WarnCtx("rejecting spool file", map[string]any{"file": path, "error": err.Error()})
		w.move(path, rejectedDir)
		return
	}

	for _, t := range loaded {
		w.submitter.Submit(t)
	}
	w.logger.InfoCtx("spool file submitted", map[string]any{"file": filepath.Base(path), "tasks": len(loaded)})
	w.move(path, doneDir)
}

func (w *Watcher) move(path, sub string) {
	target := filepath.Join(w.dir, sub, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		w.logger.Errorf("moving %s to %s: %v", path, sub, err)
	}
}

func isTaskFile(path string) bool {
	return strings.HasSuffix(path, ".json")
}
