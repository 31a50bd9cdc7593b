package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/agents"
	"github.com/readyset/realtor/internal/bus"
	"github.com/readyset/realtor/internal/store"
)

func (h *Handler) createLead(w http.ResponseWriter, r *http.Request) {
	var lead store.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		badRequest(w, err.Error())
		return
	}
	if lead.FirstName == "" || lead.LastName == "" {
		badRequest(w, "first_name and last_name are required")
		return
	}

	lead.UserID = h.claims(r).UserID
	if err := h.store.CreateLead(r.Context(), &lead); err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, bus.EventLeadCreated, lead.ID, map[string]string{"source": string(lead.Source)})
	writeJSON(w, http.StatusCreated, lead)
}

func (h *Handler) listLeads(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)
	leads, err := h.store.ListLeads(r.Context(), h.claims(r).UserID, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (h *Handler) getLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.store.GetLead(r.Context(), h.claims(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (h *Handler) updateLead(w http.ResponseWriter, r *http.Request) {
	var lead store.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		badRequest(w, err.Error())
		return
	}
	lead.ID = chi.URLParam(r, "id")
	lead.UserID = h.claims(r).UserID
	if err := h.store.UpdateLead(r.Context(), &lead); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.store.GetLead(r.Context(), lead.UserID, lead.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type qualifyRequest struct {
	Criteria agents.QualificationCriteria `json:"criteria"`
	History  []string                     `json:"conversation_history"`
}

func (h *Handler) qualifyLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")
	if _, err := h.store.GetLead(r.Context(), h.claims(r).UserID, leadID); err != nil {
		writeError(w, err)
		return
	}

	var req qualifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	result, err := h.qualifier.Qualify(r.Context(), req.Criteria, req.History)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("lead qualified",
		zap.String("lead_id", leadID),
		zap.String("status", result.Status))
	h.publish(r, bus.EventLeadQualified, leadID, map[string]string{"status": result.Status})
	writeJSON(w, http.StatusOK, result)
}

type followUpScheduleRequest struct {
	Stage string `json:"stage"`
}

func (h *Handler) createFollowUpSchedule(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")
	if _, err := h.store.GetLead(r.Context(), h.claims(r).UserID, leadID); err != nil {
		writeError(w, err)
		return
	}

	var req followUpScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Stage == "" {
		badRequest(w, "stage is required")
		return
	}

	schedule := h.planner.CreateSchedule(leadID, req.Stage)
	writeJSON(w, http.StatusCreated, schedule)
}

func (h *Handler) getFollowUpSchedule(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")
	schedule, ok := h.planner.Schedule(leadID)
	if !ok {
		writeError(w, agents.ErrLeadNotScheduled)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

type followUpMessageRequest struct {
	TemplateID string            `json:"template_id"`
	Context    map[string]string `json:"context"`
}

func (h *Handler) generateFollowUpMessage(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")

	var req followUpMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	msg, err := h.planner.GenerateMessage(r.Context(), leadID, req.TemplateID, req.Context)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// pagination reads ?offset= and ?limit= query params with sane defaults.
func pagination(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return offset, limit
}
