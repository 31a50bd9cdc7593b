package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/agents"
	"github.com/readyset/realtor/internal/auth"
	"github.com/readyset/realtor/internal/mcp"
	"github.com/readyset/realtor/internal/provider"
	"github.com/readyset/realtor/internal/scheduler"
)

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) Chat(_ context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	return &provider.ChatResponse{Content: "generated text", Model: req.Model}, nil
}

// newTestHandler wires a Handler with in-memory deps only (no Postgres/Redis).
// Store-backed routes are covered by the integration tests.
func newTestHandler(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	logger := zap.NewNop()

	registry := mcp.NewRegistry(logger)
	llm := echoProvider{}
	assistant := agents.NewAssistant(llm, registry, logger)
	qualifier := agents.NewLeadQualifier(llm, registry, logger)
	planner := agents.NewFollowUpPlanner(llm, registry, logger)
	coordinator := agents.NewTransactionCoordinator(llm, registry, logger)
	desk := scheduler.NewDesk(assistant, logger)

	authenticator := auth.New([]byte("test-secret"), 30*time.Minute)
	token, err := authenticator.IssueToken(auth.Claims{UserID: "user-1", Email: "amy@example.com", Role: "agent"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	h := NewHandler(nil, desk, registry, qualifier, planner, coordinator, authenticator, nil, nil, nil, nil, nil, logger)
	ts := httptest.NewServer(h.Router())
	t.Cleanup(ts.Close)
	return ts, token
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	ts, _ := newTestHandler(t)

	resp := doJSON(t, ts, "GET", "/api/health", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts, _ := newTestHandler(t)

	resp := doJSON(t, ts, "GET", "/api/agents", "", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, "GET", "/api/agents", "not-a-token", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAgentRegistryRoutes(t *testing.T) {
	ts, token := newTestHandler(t)

	// Four worker agents were registered at startup.
	resp := doJSON(t, ts, "GET", "/api/agents", token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("list agents: expected 200, got %d", resp.StatusCode)
	}
	var list []mcp.AgentContext
	decodeJSON(t, resp, &list)
	if len(list) != 4 {
		t.Fatalf("expected 4 startup agents, got %d", len(list))
	}

	// Create another agent
	resp = doJSON(t, ts, "POST", "/api/agents", token, map[string]interface{}{
		"agent_type":   "lead_generation",
		"capabilities": []string{"cold_outreach"},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create agent: expected 201, got %d", resp.StatusCode)
	}
	var created mcp.AgentContext
	decodeJSON(t, resp, &created)
	if created.ID == "" || created.State != mcp.StateInitialized {
		t.Errorf("created agent = %+v", created)
	}

	// Task assignment requires the agent to be ready
	resp = doJSON(t, ts, "POST", "/api/agents/"+created.ID+"/tasks", token, map[string]interface{}{
		"task_type": "qualify_lead",
	})
	if resp.StatusCode != 409 {
		t.Fatalf("assign to initialized agent: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, "PUT", "/api/agents/"+created.ID+"/state", token, map[string]string{"state": "ready"})
	if resp.StatusCode != 200 {
		t.Fatalf("update state: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, "POST", "/api/agents/"+created.ID+"/tasks", token, map[string]interface{}{
		"task_type": "qualify_lead",
	})
	if resp.StatusCode != 202 {
		t.Fatalf("assign task: expected 202, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Queue should show the task
	resp = doJSON(t, ts, "GET", "/api/tasks", token, nil)
	var tasks []mcp.AgentTask
	decodeJSON(t, resp, &tasks)
	if len(tasks) != 1 || tasks[0].Type != "qualify_lead" {
		t.Errorf("pending tasks = %+v", tasks)
	}

	// Missing agent
	resp = doJSON(t, ts, "GET", "/api/agents/nonexistent", token, nil)
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for missing agent, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTeamRoutes(t *testing.T) {
	ts, token := newTestHandler(t)

	resp := doJSON(t, ts, "GET", "/api/agents", token, nil)
	var list []mcp.AgentContext
	decodeJSON(t, resp, &list)

	resp = doJSON(t, ts, "POST", "/api/teams", token, map[string]interface{}{
		"agent_ids": []string{list[0].ID, list[1].ID, "unknown-id"},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create team: expected 201, got %d", resp.StatusCode)
	}
	var team mcp.AgentTeam
	decodeJSON(t, resp, &team)
	if len(team.Agents) != 2 {
		t.Errorf("expected 2 members (unknown id skipped), got %d", len(team.Agents))
	}

	resp = doJSON(t, ts, "GET", "/api/teams/"+team.ID, token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("get team: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTransactionRoutes(t *testing.T) {
	ts, token := newTestHandler(t)

	resp := doJSON(t, ts, "POST", "/api/transactions", token, map[string]interface{}{
		"data": map[string]string{"property": "no id"},
	})
	if resp.StatusCode != 400 {
		t.Fatalf("create without id: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, ts, "POST", "/api/transactions", token, map[string]interface{}{
		"transaction_id": "tx-1",
		"data":           map[string]string{"property": "12 Oak St"},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create transaction: expected 201, got %d", resp.StatusCode)
	}
	var tx agents.Transaction
	decodeJSON(t, resp, &tx)
	if len(tx.Milestones) != 5 {
		t.Errorf("expected 5 standard milestones, got %d", len(tx.Milestones))
	}

	resp = doJSON(t, ts, "PUT", "/api/transactions/tx-1/milestones", token, map[string]string{
		"milestone": "Inspection Period",
		"status":    "completed",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("update milestone: expected 200, got %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &tx)
	found := false
	for _, m := range tx.Milestones {
		if m.Name == "Inspection Period" {
			found = true
			if m.Status != "completed" || m.CompletedAt == nil {
				t.Errorf("milestone = %+v", m)
			}
		}
	}
	if !found {
		t.Fatal("Inspection Period milestone missing")
	}

	// Unknown milestone names are a silent no-op: 200, transaction unchanged.
	resp = doJSON(t, ts, "PUT", "/api/transactions/tx-1/milestones", token, map[string]string{
		"milestone": "No Such Step",
		"status":    "completed",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("unknown milestone: expected 200, got %d", resp.StatusCode)
	}
	decodeJSON(t, resp, &tx)
	for _, m := range tx.Milestones {
		if m.Name == "No Such Step" {
			t.Errorf("unknown milestone was added: %+v", m)
		}
	}

	resp = doJSON(t, ts, "PUT", "/api/transactions/absent/milestones", token, map[string]string{
		"milestone": "Closing", "status": "completed",
	})
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 for unknown transaction, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Draft a document through the LLM stub
	resp = doJSON(t, ts, "POST", "/api/transactions/tx-1/documents", token, map[string]interface{}{
		"document_type": "purchase_agreement",
		"context":       map[string]string{"price": "450000"},
	})
	if resp.StatusCode != 200 {
		t.Fatalf("draft: expected 200, got %d", resp.StatusCode)
	}
	var draft agents.DraftedDocument
	decodeJSON(t, resp, &draft)
	if draft.Content != "generated text" {
		t.Errorf("draft content = %q", draft.Content)
	}
}

func TestAvailableSlotsRoute(t *testing.T) {
	ts, token := newTestHandler(t)

	resp := doJSON(t, ts, "GET", "/api/appointments/slots?day=2026-09-01&duration=60", token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("slots: expected 200, got %d", resp.StatusCode)
	}
	var slots []scheduler.TimeSlot
	decodeJSON(t, resp, &slots)
	if len(slots) == 0 {
		t.Fatal("expected open slots for a fresh day")
	}
	for _, s := range slots {
		if s.Start.Hour() < 9 || !s.Available {
			t.Errorf("bad slot %+v", s)
		}
	}

	resp = doJSON(t, ts, "GET", "/api/appointments/slots?day=bogus", token, nil)
	if resp.StatusCode != 400 {
		t.Errorf("expected 400 for bad day, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestFollowUpMessageRoute(t *testing.T) {
	ts, token := newTestHandler(t)

	// No schedule yet
	resp := doJSON(t, ts, "POST", "/api/leads/lead-9/followups/message", token, map[string]interface{}{
		"template_id": "initial_thank_you",
	})
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404 without schedule, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
