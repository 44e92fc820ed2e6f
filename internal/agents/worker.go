package agents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/calder/relay/internal/tasks"
)

// WorkerHandler executes file-operation directives confined to a root
// directory. The task content is a directive line, optionally followed by
// a payload after the first newline:
//
//	create_file <path>
//	<file contents...>
//
//	create_dir <path>
//
// Any other content is acknowledged as a generic task.
type WorkerHandler struct {
	root string
}

// NewWorkerHandler creates a worker rooted at dir.
func NewWorkerHandler(dir string) *WorkerHandler {
	return &WorkerHandler{root: dir}
}

// Name implements Handler.
func (h *WorkerHandler) Name() string { return WorkerAgent }

// Handle implements Handler.
func (h *WorkerHandler) Handle(_ context.Context, task *tasks.Task) (*Outcome, error) {
	start := time.Now()

	directive, payload := splitDirective(task.Content)
	fields := strings.Fields(directive)

	var (
		output string
		err    error
	)
	switch {
	case len(fields) == 2 && fields[0] == "create_file":
		output, err = h.createFile(fields[1], payload)
	case len(fields) == 2 && fields[0] == "create_dir":
		output, err = h.createDir(fields[1])
	default:
		output = "generic task completed"
	}
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Output:   output,
		Duration: time.Since(start),
	}, nil
}

func (h *WorkerHandler) createFile(path, content string) (string, error) {
	resolved, err := h.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return "", fmt.Errorf("creating parent dir: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return "created file " + resolved, nil
}

func (h *WorkerHandler) createDir(path string) (string, error) {
	resolved, err := h.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(resolved, 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	return "created directory " + resolved, nil
}

// resolve joins path under the worker root and rejects escapes.
func (h *WorkerHandler) resolve(path string) (string, error) {
	if h.root == "" {
		return "", fmt.Errorf("worker has no root directory configured")
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute path %q not allowed", path)
	}

	resolved := filepath.Join(h.root, path)
	rel, err := filepath.Rel(h.root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes worker root", path)
	}
	return resolved, nil
}

func splitDirective(content string) (directive, payload string) {
	if idx := strings.Index(content, "\n"); idx >= 0 {
		return strings.TrimSpace(content[:idx]), content[idx+1:]
	}
	return strings.TrimSpace(content), ""
}
