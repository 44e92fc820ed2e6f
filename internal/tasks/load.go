package tasks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// taskFile is the on-disk shape of a spooled task. Only id, type, content
// and priority are caller-controlled; everything else is engine-owned.
type taskFile struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Priority int    `json:"priority"`
}

// LoadFile reads one task file. The file may hold a single JSON object or
// an array of them. Tasks without an id get a generated one.
func LoadFile(path string) ([]*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("task file %s is empty", path)
	}

	var entries []taskFile
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parsing task file %s: %w", path, err)
		}
	} else {
		var single taskFile
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parsing task file %s: %w", path, err)
		}
		entries = append(entries, single)
	}

	loaded := make([]*Task, 0, len(entries))
	for i, e := range entries {
		if e.Type == "" {
			return nil, fmt.Errorf("task %d in %s has no type", i, path)
		}
		t := New(e.ID, e.Type, e.Content)
		if e.Priority > 0 {
			t.Priority = e.Priority
		}
		loaded = append(loaded, t)
	}
	return loaded, nil
}

// LoadDir loads every *.json file in dir, in lexical filename order so a
// drop directory behaves deterministically.
func LoadDir(dir string) ([]*Task, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading task dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var loaded []*Task
	for _, name := range names {
		batch, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, batch...)
	}
	return loaded, nil
}

// WriteFile serializes a task into dir as a spool entry and returns the
// path. The filename embeds a timestamp so lexical order matches
// submission order.
func WriteFile(dir string, t *Task) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating spool dir: %w", err)
	}

	entry := taskFile{ID: t.ID, Type: t.Type, Content: t.Content, Priority: t.Priority}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling task: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", time.Now().UTC().Format("20060102T150405.000000000"), t.ID)
	path := filepath.Join(dir, name)

	// Write via temp file and rename so directory watchers never observe
	// a partially written task.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("writing task file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("renaming task file: %w", err)
	}
	return path, nil
}
