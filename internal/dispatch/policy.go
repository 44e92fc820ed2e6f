package dispatch

import "github.com/calder/relay/internal/agents"

// Assign maps a task type onto an agent name. It never fails: unknown and
// empty types fall through to the worker agent, which makes worker_agent
// both a routing target and the universal fallback.
func Assign(taskType string) string {
	switch taskType {
	case "chat", "conversation":
		return agents.ChatAgent
	case "work", "execution", "development":
		return agents.WorkerAgent
	default:
		return agents.WorkerAgent
	}
}
