package mcp

import "time"

// AgentType enumerates the worker roles the platform knows about.
type AgentType string

const (
	TypeLeadGeneration         AgentType = "lead_generation"
	TypeTransactionCoordinator AgentType = "transaction_coordinator"
	TypeFollowUp               AgentType = "follow_up"
	TypeScheduler              AgentType = "scheduler"
)

// AgentState is the coarse lifecycle state of an agent handle.
type AgentState string

const (
	StateInitialized AgentState = "initialized"
	StateReady       AgentState = "ready"
	StateBusy        AgentState = "busy"
	StateError       AgentState = "error"
)

// AgentContext is a handle to a stateful worker. State changes are
// caller-driven: AssignTask moves ready→busy, UpdateAgentState is the only
// way back. There is no automatic timeout and no terminal state.
type AgentContext struct {
	ID           string            `json:"agent_id"`
	Type         AgentType         `json:"agent_type"`
	Capabilities []string          `json:"capabilities"`
	Tools        []string          `json:"tools"`
	Memory       map[string]any    `json:"memory"`
	State        AgentState        `json:"state"`
	LastActive   *time.Time        `json:"last_active,omitempty"`
}

// AgentTask describes a unit of work. The registry queues tasks in FIFO
// order and does not interpret priority or dependencies; draining the
// queue is left to orchestration code.
type AgentTask struct {
	ID           string         `json:"task_id"`
	Type         string         `json:"task_type"`
	Priority     int            `json:"priority"`
	Context      map[string]any `json:"context"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
	Status       string         `json:"status"`
}

// AgentTeam groups agent handles around a shared context.
type AgentTeam struct {
	ID            string          `json:"team_id"`
	Agents        []*AgentContext `json:"agents"`
	SharedContext map[string]any  `json:"shared_context"`
	ActiveTasks   []*AgentTask    `json:"active_tasks"`
}
