// Package agents provides the handler extension point for task execution
// and the registry of known agent names. A registry entry may carry a nil
// handler: the name is then only advertised, and tasks routed to it pass
// through the dispatcher untouched.
package agents

import (
	"context"
	"time"

	"github.com/calder/relay/internal/tasks"
)

// Handler executes a task routed to an agent.
type Handler interface {
	// Name returns the agent identifier.
	Name() string

	// Handle processes the task and returns its outcome.
	Handle(ctx context.Context, task *tasks.Task) (*Outcome, error)
}

// Outcome holds the result of handling a task.
type Outcome struct {
	Output   string        // agent's text output
	Duration time.Duration // handling duration
}
