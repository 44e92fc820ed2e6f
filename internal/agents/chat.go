package agents

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/calder/relay/internal/tasks"
)

// ChatHandler interprets conversational task content and replies with a
// canned response. It keeps a bounded transcript of exchanges.
type ChatHandler struct {
	mu         sync.Mutex
	transcript []Exchange
	maxHistory int
}

// Exchange is one message/response pair in the chat transcript.
type Exchange struct {
	Message  string
	Response string
	Time     time.Time
}

// NewChatHandler creates a chat handler keeping up to maxHistory exchanges
// (default 100 when <= 0).
func NewChatHandler(maxHistory int) *ChatHandler {
	if maxHistory <= 0 {
		maxHistory = 100
	}
	return &ChatHandler{maxHistory: maxHistory}
}

// Name implements Handler.
func (h *ChatHandler) Name() string { return ChatAgent }

// Handle implements Handler.
func (h *ChatHandler) Handle(_ context.Context, task *tasks.Task) (*Outcome, error) {
	start := time.Now()
	response := respondTo(task.Content)

	h.mu.Lock()
	h.transcript = append(h.transcript, Exchange{
		Message:  task.Content,
		Response: response,
		Time:     start,
	})
	if len(h.transcript) > h.maxHistory {
		h.transcript = h.transcript[len(h.transcript)-h.maxHistory:]
	}
	h.mu.Unlock()

	return &Outcome{
		Output:   response,
		Duration: time.Since(start),
	}, nil
}

// Transcript returns a copy of the recorded exchanges.
func (h *ChatHandler) Transcript() []Exchange {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Exchange, len(h.transcript))
	copy(out, h.transcript)
	return out
}

// respondTo maps a message onto one of the known intents.
func respondTo(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "create"):
		return "Creating new project structure..."
	case strings.Contains(lower, "status"):
		return "Checking system status..."
	case strings.Contains(lower, "help"):
		return "Available commands: create, status, help."
	default:
		return "How can I help you with your development tasks?"
	}
}
