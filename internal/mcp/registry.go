package mcp

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry is the multi-agent control plane: a directory of agent handles,
// teams, and a single FIFO intake queue of pending tasks. It never fails
// loudly; unknown ids and bad states are reported as false returns.
type Registry struct {
	agents map[string]*AgentContext
	teams  map[string]*AgentTeam
	queue  []*AgentTask
	now    func() time.Time
	mu     sync.Mutex
	logger *zap.Logger
}

// NewRegistry creates an empty agent registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		agents: make(map[string]*AgentContext),
		teams:  make(map[string]*AgentTeam),
		now:    time.Now,
		logger: logger,
	}
}

// SetClock overrides the time source. Used by tests.
func (r *Registry) SetClock(now func() time.Time) { r.now = now }

// CreateAgent registers a fresh handle in the initialized state.
func (r *Registry) CreateAgent(agentType AgentType, capabilities []string) *AgentContext {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent := &AgentContext{
		ID:           uuid.New().String(),
		Type:         agentType,
		Capabilities: capabilities,
		Tools:        []string{},
		Memory:       make(map[string]any),
		State:        StateInitialized,
	}
	r.agents[agent.ID] = agent
	r.logger.Info("agent created",
		zap.String("id", agent.ID),
		zap.String("type", string(agentType)))
	return agent
}

// CreateTeam wraps a set of handles with an empty shared context. Handle
// membership is a caller contract; ids are not validated against the
// directory.
func (r *Registry) CreateTeam(agents []*AgentContext) *AgentTeam {
	r.mu.Lock()
	defer r.mu.Unlock()

	team := &AgentTeam{
		ID:            uuid.New().String(),
		Agents:        agents,
		SharedContext: make(map[string]any),
		ActiveTasks:   []*AgentTask{},
	}
	r.teams[team.ID] = team
	return team
}

// AssignTask hands a task to a specific agent. It returns false if the
// agent is unknown or not ready; on success the agent flips to busy, its
// LastActive is stamped, and the task joins the shared FIFO queue.
func (r *Registry) AssignTask(agentID string, task *AgentTask) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return false
	}
	if agent.State != StateReady {
		return false
	}

	agent.State = StateBusy
	at := r.now()
	agent.LastActive = &at

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = "pending"
	}
	r.queue = append(r.queue, task)

	r.logger.Debug("task assigned",
		zap.String("agent", agentID),
		zap.String("task", task.ID),
		zap.String("type", task.Type))
	return true
}

// UpdateAgentState overwrites an agent's state and stamps LastActive.
// This is the only path an agent takes from busy back to ready or into
// error. Returns false if the agent is unknown.
func (r *Registry) UpdateAgentState(agentID string, state AgentState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return false
	}
	agent.State = state
	at := r.now()
	agent.LastActive = &at
	return true
}

// Agent returns a handle by id.
func (r *Registry) Agent(agentID string) (*AgentContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	return a, ok
}

// ListAgents returns all registered handles.
func (r *Registry) ListAgents() []*AgentContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*AgentContext, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	return out
}

// Team returns a team by id.
func (r *Registry) Team(teamID string) (*AgentTeam, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	return t, ok
}

// ListTeams returns all teams.
func (r *Registry) ListTeams() []*AgentTeam {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*AgentTeam, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t)
	}
	return out
}

// PendingTasks returns the queued tasks in FIFO order.
func (r *Registry) PendingTasks() []*AgentTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*AgentTask(nil), r.queue...)
}
