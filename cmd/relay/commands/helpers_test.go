package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/calder/relay/internal/agents"
	"github.com/calder/relay/internal/config"
	"github.com/calder/relay/internal/tasks"
)

func TestBuildRegistryWithWorkerDir(t *testing.T) {
	cfg := &config.Config{}
	cfg.Worker.Dir = t.TempDir()

	r := buildRegistry(cfg)

	h, ok := r.Lookup(agents.ChatAgent)
	if !ok || h == nil {
		t.Error("chat agent should have a live handler")
	}
	h, ok = r.Lookup(agents.WorkerAgent)
	if !ok || h == nil {
		t.Error("worker agent should have a live handler when dir is set")
	}
}

func TestBuildRegistryWithoutWorkerDir(t *testing.T) {
	cfg := &config.Config{}

	r := buildRegistry(cfg)

	h, ok := r.Lookup(agents.WorkerAgent)
	if !ok {
		t.Fatal("worker agent name should still be registered")
	}
	if h != nil {
		t.Error("worker agent should have no handler without a work dir")
	}
}

func TestFormatTaskLine(t *testing.T) {
	task := tasks.New("t1", "chat", "hello")
	task.AssignedAgent = agents.ChatAgent
	task.Status = tasks.StatusCompleted
	task.StartedAt = time.Now()
	task.CompletedAt = task.StartedAt.Add(25 * time.Millisecond)

	line := formatTaskLine(task)
	for _, want := range []string{"completed", "t1", "type=chat", "agent=chat_agent", "25ms"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestFormatTaskLineError(t *testing.T) {
	task := tasks.New("t2", "work", "")
	task.Status = tasks.StatusFailed
	task.Error = "disk full"

	line := formatTaskLine(task)
	if !strings.Contains(line, "error: disk full") {
		t.Errorf("line %q missing error detail", line)
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(500 * time.Microsecond); got != "<1ms" {
		t.Errorf("sub-millisecond = %q, want <1ms", got)
	}
	if got := formatDuration(1500 * time.Millisecond); got != "1.5s" {
		t.Errorf("1.5s = %q", got)
	}
}
