package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/bus"
	"github.com/readyset/realtor/internal/store"
)

func (h *Handler) listCommunications(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)
	comms, err := h.store.ListCommunications(r.Context(), h.claims(r).UserID, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comms)
}

func (h *Handler) getCommunication(w http.ResponseWriter, r *http.Request) {
	comm, err := h.store.GetCommunication(r.Context(), h.claims(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comm)
}

type emailRequest struct {
	LeadID  string   `json:"lead_id"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	CC      []string `json:"cc,omitempty"`
}

func (h *Handler) sendEmail(w http.ResponseWriter, r *http.Request) {
	if h.email == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "email not configured"})
		return
	}

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	userID := h.claims(r).UserID
	lead, err := h.store.GetLead(r.Context(), userID, req.LeadID)
	if err != nil {
		writeError(w, err)
		return
	}
	if lead.Email == "" {
		badRequest(w, "lead has no email address")
		return
	}

	comm := &store.Communication{
		UserID:    userID,
		LeadID:    lead.ID,
		Type:      store.CommEmail,
		Direction: store.DirectionOutbound,
		Content:   req.Subject + "\n\n" + req.Body,
		Status:    store.CommCompleted,
	}
	if err := h.email.Send([]string{lead.Email}, req.Subject, req.Body, req.CC); err != nil {
		comm.Status = store.CommFailed
		h.logger.Error("email send failed", zap.String("lead_id", lead.ID), zap.Error(err))
	}
	now := time.Now()
	comm.SentAt = &now

	if err := h.store.CreateCommunication(r.Context(), comm); err != nil {
		writeError(w, err)
		return
	}
	if comm.Status == store.CommCompleted {
		h.recordContact(r, lead.ID, now)
		h.publish(r, bus.EventCommunicationSent, lead.ID, map[string]string{"channel": "email"})
	}
	writeJSON(w, http.StatusCreated, comm)
}

type smsRequest struct {
	LeadID  string `json:"lead_id"`
	Message string `json:"message"`
}

func (h *Handler) sendSMS(w http.ResponseWriter, r *http.Request) {
	if h.sms == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "sms not configured"})
		return
	}

	var req smsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	userID := h.claims(r).UserID
	lead, err := h.store.GetLead(r.Context(), userID, req.LeadID)
	if err != nil {
		writeError(w, err)
		return
	}
	if lead.Phone == "" {
		badRequest(w, "lead has no phone number")
		return
	}

	comm := &store.Communication{
		UserID:    userID,
		LeadID:    lead.ID,
		Type:      store.CommText,
		Direction: store.DirectionOutbound,
		Content:   req.Message,
		Status:    store.CommCompleted,
	}
	result, err := h.sms.SendSMS(r.Context(), lead.Phone, req.Message)
	if err != nil {
		comm.Status = store.CommFailed
		h.logger.Error("sms send failed", zap.String("lead_id", lead.ID), zap.Error(err))
	} else {
		comm.Metadata = map[string]string{"sid": result.SID}
	}
	now := time.Now()
	comm.SentAt = &now

	if err := h.store.CreateCommunication(r.Context(), comm); err != nil {
		writeError(w, err)
		return
	}
	if comm.Status == store.CommCompleted {
		h.recordContact(r, lead.ID, now)
		h.publish(r, bus.EventCommunicationSent, lead.ID, map[string]string{"channel": "sms"})
	}
	writeJSON(w, http.StatusCreated, comm)
}

type callRequest struct {
	LeadID         string `json:"lead_id"`
	InitialMessage string `json:"initial_message"`
}

func (h *Handler) startCall(w http.ResponseWriter, r *http.Request) {
	if h.voice == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "voice not configured"})
		return
	}

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	userID := h.claims(r).UserID
	lead, err := h.store.GetLead(r.Context(), userID, req.LeadID)
	if err != nil {
		writeError(w, err)
		return
	}
	if lead.Phone == "" {
		badRequest(w, "lead has no phone number")
		return
	}

	result, err := h.voice.CreateCall(r.Context(), lead.Phone, req.InitialMessage, map[string]string{
		"lead_id": lead.ID,
		"user_id": userID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now()
	comm := &store.Communication{
		UserID:    userID,
		LeadID:    lead.ID,
		Type:      store.CommCall,
		Direction: store.DirectionOutbound,
		Content:   req.InitialMessage,
		Status:    store.CommInProgress,
		SentAt:    &now,
		Metadata:  map[string]string{"call_id": result.ID},
	}
	if err := h.store.CreateCommunication(r.Context(), comm); err != nil {
		writeError(w, err)
		return
	}
	h.recordContact(r, lead.ID, now)
	h.publish(r, bus.EventCommunicationSent, lead.ID, map[string]string{"channel": "call", "call_id": result.ID})
	writeJSON(w, http.StatusCreated, comm)
}

// recordContact stamps the lead's last_contacted time. Failures are
// logged, not surfaced; the communication itself already committed.
func (h *Handler) recordContact(r *http.Request, leadID string, at time.Time) {
	if err := h.store.TouchLeadContact(r.Context(), h.claims(r).UserID, leadID, at); err != nil {
		h.logger.Warn("touch lead contact failed", zap.String("lead_id", leadID), zap.Error(err))
	}
}
