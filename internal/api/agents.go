package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/readyset/realtor/internal/mcp"
)

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.ListAgents())
}

type createAgentRequest struct {
	Type         mcp.AgentType `json:"agent_type"`
	Capabilities []string      `json:"capabilities"`
}

func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Type == "" {
		badRequest(w, "agent_type is required")
		return
	}
	agent := h.registry.CreateAgent(req.Type, req.Capabilities)
	writeJSON(w, http.StatusCreated, agent)
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	agent, ok := h.registry.Agent(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

type stateRequest struct {
	State mcp.AgentState `json:"state"`
}

func (h *Handler) updateAgentState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if !h.registry.UpdateAgentState(id, req.State) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	agent, _ := h.registry.Agent(id)
	writeJSON(w, http.StatusOK, agent)
}

func (h *Handler) assignTask(w http.ResponseWriter, r *http.Request) {
	var task mcp.AgentTask
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		badRequest(w, err.Error())
		return
	}
	if task.Type == "" {
		badRequest(w, "task_type is required")
		return
	}

	id := chi.URLParam(r, "id")
	if !h.registry.AssignTask(id, &task) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "agent unknown or not ready"})
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

func (h *Handler) pendingTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.PendingTasks())
}

type createTeamRequest struct {
	AgentIDs []string `json:"agent_ids"`
}

func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	members := make([]*mcp.AgentContext, 0, len(req.AgentIDs))
	for _, id := range req.AgentIDs {
		if agent, ok := h.registry.Agent(id); ok {
			members = append(members, agent)
		}
	}
	team := h.registry.CreateTeam(members)
	writeJSON(w, http.StatusCreated, team)
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.ListTeams())
}

func (h *Handler) getTeam(w http.ResponseWriter, r *http.Request) {
	team, ok := h.registry.Team(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "team not found"})
		return
	}
	writeJSON(w, http.StatusOK, team)
}
