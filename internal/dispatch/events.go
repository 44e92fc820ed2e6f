package dispatch

import (
	"time"

	"github.com/calder/relay/internal/tasks"
)

// EventType classifies dispatcher lifecycle events.
type EventType int

const (
	EventLoopStart  EventType = iota // processing loop started
	EventLoopStop                    // processing loop stopped
	EventTaskQueued                  // task accepted into the queue
	EventTaskStart                   // task dequeued, processing begins
	EventTaskEnd                     // task reached a terminal status
)

// Event carries data about a dispatcher lifecycle event.
type Event struct {
	Type     EventType
	Time     time.Time
	TaskID   string
	TaskType string
	Agent    string        // agent the task was assigned to
	Status   tasks.Status  // for EventTaskEnd: terminal status
	Output   string        // handler output, if any
	Error    string        // error message if the task failed
	Duration time.Duration // for EventTaskEnd: processing duration
}

// EventHandler is a callback receiving dispatcher events.
type EventHandler func(Event)
