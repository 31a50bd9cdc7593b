package mcp

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestRegistry() *Registry {
	r := NewRegistry(zap.NewNop())
	r.SetClock(func() time.Time {
		return time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	})
	return r
}

func TestCreateAgent(t *testing.T) {
	r := newTestRegistry()

	agent := r.CreateAgent(TypeScheduler, []string{"booking"})
	if agent.State != StateInitialized {
		t.Errorf("state = %q, want initialized", agent.State)
	}
	if agent.ID == "" {
		t.Error("agent id not allocated")
	}
	if len(agent.Tools) != 0 || len(agent.Memory) != 0 {
		t.Error("new agent should have empty tools and memory")
	}
	if agent.LastActive != nil {
		t.Error("new agent should have no LastActive")
	}

	got, ok := r.Agent(agent.ID)
	if !ok || got.ID != agent.ID {
		t.Errorf("Agent(%s) = %v, %v", agent.ID, got, ok)
	}
}

func TestAssignTaskLifecycle(t *testing.T) {
	r := newTestRegistry()
	agent := r.CreateAgent(TypeScheduler, []string{"booking"})

	task := &AgentTask{Type: "book_showing", Priority: 1, Context: map[string]any{"lead": "l1"}}

	// Not ready yet: assignment must be rejected without side effects.
	if r.AssignTask(agent.ID, task) {
		t.Fatal("assign to initialized agent should fail")
	}
	if len(r.PendingTasks()) != 0 {
		t.Error("queue mutated by failed assign")
	}
	if agent, _ := r.Agent(agent.ID); agent.LastActive != nil {
		t.Error("LastActive stamped by failed assign")
	}

	if !r.UpdateAgentState(agent.ID, StateReady) {
		t.Fatal("update state failed")
	}
	if !r.AssignTask(agent.ID, task) {
		t.Fatal("assign to ready agent should succeed")
	}

	got, _ := r.Agent(agent.ID)
	if got.State != StateBusy {
		t.Errorf("state = %q after assign, want busy", got.State)
	}
	if got.LastActive == nil {
		t.Error("LastActive not stamped")
	}

	queue := r.PendingTasks()
	if len(queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(queue))
	}
	if queue[0].Status != "pending" {
		t.Errorf("task status = %q, want pending", queue[0].Status)
	}
	if queue[0].ID == "" {
		t.Error("task id not allocated")
	}

	// A second assign before the agent returns to ready is rejected.
	if r.AssignTask(agent.ID, &AgentTask{Type: "book_showing"}) {
		t.Fatal("assign to busy agent should fail")
	}
	if len(r.PendingTasks()) != 1 {
		t.Error("queue mutated by rejected assign")
	}

	// Round trip: back to ready, assignable again.
	r.UpdateAgentState(agent.ID, StateReady)
	if !r.AssignTask(agent.ID, &AgentTask{Type: "send_reminder"}) {
		t.Fatal("assign after return to ready should succeed")
	}
	if len(r.PendingTasks()) != 2 {
		t.Errorf("queue length = %d, want 2", len(r.PendingTasks()))
	}
}

func TestAssignTaskUnknownAgent(t *testing.T) {
	r := newTestRegistry()
	if r.AssignTask("nope", &AgentTask{Type: "x"}) {
		t.Fatal("assign to unknown agent should fail")
	}
}

func TestUpdateAgentState(t *testing.T) {
	r := newTestRegistry()
	agent := r.CreateAgent(TypeFollowUp, nil)

	if r.UpdateAgentState("nope", StateReady) {
		t.Fatal("update on unknown agent should fail")
	}
	if !r.UpdateAgentState(agent.ID, StateError) {
		t.Fatal("update failed")
	}
	got, _ := r.Agent(agent.ID)
	if got.State != StateError {
		t.Errorf("state = %q, want error", got.State)
	}
	// Error is not terminal; the caller can recover the agent.
	r.UpdateAgentState(agent.ID, StateReady)
	got, _ = r.Agent(agent.ID)
	if got.State != StateReady {
		t.Errorf("state = %q, want ready", got.State)
	}
}

func TestCreateTeam(t *testing.T) {
	r := newTestRegistry()
	a := r.CreateAgent(TypeScheduler, nil)
	b := r.CreateAgent(TypeFollowUp, nil)

	team := r.CreateTeam([]*AgentContext{a, b})
	if len(team.Agents) != 2 {
		t.Errorf("team size = %d, want 2", len(team.Agents))
	}
	if team.SharedContext == nil || len(team.SharedContext) != 0 {
		t.Error("team should start with an empty shared context")
	}

	got, ok := r.Team(team.ID)
	if !ok || got.ID != team.ID {
		t.Errorf("Team(%s) = %v, %v", team.ID, got, ok)
	}
	if len(r.ListTeams()) != 1 {
		t.Errorf("ListTeams = %d, want 1", len(r.ListTeams()))
	}
}

func TestListAgents(t *testing.T) {
	r := newTestRegistry()
	r.CreateAgent(TypeScheduler, nil)
	r.CreateAgent(TypeLeadGeneration, nil)
	if got := len(r.ListAgents()); got != 2 {
		t.Errorf("ListAgents = %d, want 2", got)
	}
}
