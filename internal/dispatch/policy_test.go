package dispatch

import "testing"

func TestAssign(t *testing.T) {
	tests := []struct {
		taskType string
		want     string
	}{
		{"chat", "chat_agent"},
		{"conversation", "chat_agent"},
		{"work", "worker_agent"},
		{"execution", "worker_agent"},
		{"development", "worker_agent"},
		// worker_agent doubles as the universal fallback, so unknown and
		// empty types land there too.
		{"anything_else", "worker_agent"},
		{"", "worker_agent"},
		{"CHAT", "worker_agent"}, // matching is case-sensitive
	}

	for _, tt := range tests {
		if got := Assign(tt.taskType); got != tt.want {
			t.Errorf("Assign(%q) = %q, want %q", tt.taskType, got, tt.want)
		}
	}
}
