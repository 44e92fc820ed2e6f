package commands

import (
	"fmt"
	"time"

	"github.com/calder/relay/internal/agents"
	"github.com/calder/relay/internal/config"
	"github.com/calder/relay/internal/tasks"
)

// buildRegistry wires the builtin handlers according to config. The chat
// agent is always live; the worker agent only gets a handler when a work
// directory is configured, otherwise its name is registered bare and work
// tasks pass through unprocessed.
func buildRegistry(cfg *config.Config) *agents.Registry {
	r := agents.NewRegistry()
	r.Register(agents.ChatAgent, agents.NewChatHandler(0))
	if cfg.Worker.Dir != "" {
		r.Register(agents.WorkerAgent, agents.NewWorkerHandler(cfg.Worker.Dir))
	} else {
		r.Register(agents.WorkerAgent, nil)
	}
	return r
}

// formatTaskLine renders one terminal task for plain CLI output.
func formatTaskLine(t *tasks.Task) string {
	line := fmt.Sprintf("[%s] %s  type=%s agent=%s", t.Status, t.ID, t.Type, t.AssignedAgent)
	if d := t.Duration(); d > 0 {
		line += fmt.Sprintf(" (%s)", formatDuration(d))
	}
	if t.Error != "" {
		line += "\n         error: " + t.Error
	}
	return line
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return "<1ms"
	}
	return d.Round(time.Millisecond).String()
}
