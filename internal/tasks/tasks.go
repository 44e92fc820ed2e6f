// Package tasks defines task records and the FIFO queue they flow through.
// Tasks can come from CLI flags, JSON files, or the spool directory.
package tasks

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status tracks the task lifecycle. Transitions are forward-only:
// pending -> processing -> completed, or pending -> processing -> failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task represents a unit of work routed to an agent.
type Task struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	Priority      int       `json:"priority"`
	Status        Status    `json:"status"`
	AssignedAgent string    `json:"assigned_agent,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	CompletedAt   time.Time `json:"completed_at,omitempty"`
}

// New creates a pending task. An empty id gets a generated one; tasks
// default to priority 1. The priority field is carried and persisted but
// the queue is strict FIFO and never consults it.
func New(id, taskType, content string) *Task {
	if id == "" {
		id = uuid.NewString()
	}
	return &Task{
		ID:        id,
		Type:      taskType,
		Content:   content,
		Priority:  1,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// IsTerminal returns true once the task reached a final state.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Duration returns how long processing took (0 if not finished).
func (t *Task) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.CompletedAt.IsZero() {
		return 0
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

// Advance moves the task to the next status. Only the forward edges of the
// lifecycle are allowed; anything else is a programming error.
func (t *Task) Advance(next Status) error {
	ok := false
	switch next {
	case StatusProcessing:
		ok = t.Status == StatusPending
	case StatusCompleted, StatusFailed:
		ok = t.Status == StatusProcessing
	}
	if !ok {
		return fmt.Errorf("invalid transition %s -> %s for task %s", t.Status, next, t.ID)
	}
	switch next {
	case StatusProcessing:
		t.StartedAt = time.Now()
	case StatusCompleted, StatusFailed:
		t.CompletedAt = time.Now()
	}
	t.Status = next
	return nil
}
