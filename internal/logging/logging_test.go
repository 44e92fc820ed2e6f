package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "json to file", cfg: Config{Path: tmpDir, Level: "info", Format: "json"}},
		{name: "text format", cfg: Config{Path: tmpDir, Level: "debug", Format: "text"}},
		{name: "stderr only", cfg: Config{Level: "info", Format: "json"}},
		{name: "invalid level", cfg: Config{Path: tmpDir, Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil && logger != nil {
				_ = logger.Close()
			}
		})
	}
}

func TestWritesToDateNamedFile(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := New(Config{Path: tmpDir, Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.WithComponent("dispatch").InfoCtx("task completed", map[string]any{"task_id": "t1"})
	_ = logger.Close()

	want := filepath.Join(tmpDir, "relay-"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	for _, substr := range []string{"task completed", `"component":"dispatch"`, `"task_id":"t1"`} {
		if !strings.Contains(string(data), substr) {
			t.Errorf("log file missing %q; got %s", substr, data)
		}
	}
}

func TestLogFilesNewestFirst(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"relay-2026-01-01.log", "relay-2026-02-01.log", "other.txt"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	logger := &Logger{logDir: tmpDir}
	files, err := logger.LogFiles()
	if err != nil {
		t.Fatalf("LogFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("LogFiles = %v, want 2 entries", files)
	}
	if !strings.HasSuffix(files[0], "relay-2026-02-01.log") {
		t.Errorf("newest first, got %v", files)
	}
}

func TestGetWithoutInit(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get() returned nil before Init")
	}
	Get().Debug("no-op")
}

func TestParseLevel(t *testing.T) {
	if _, err := ParseLevel("warn"); err != nil {
		t.Errorf("ParseLevel(warn): %v", err)
	}
	if _, err := ParseLevel("silly"); err == nil {
		t.Error("ParseLevel(silly) succeeded, want error")
	}
}
