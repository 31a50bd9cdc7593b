package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/bus"
	"github.com/readyset/realtor/internal/scheduler"
)

func (h *Handler) availableSlots(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("day"))
	if err != nil {
		badRequest(w, "day must be formatted YYYY-MM-DD")
		return
	}
	duration := 30 * time.Minute
	if raw := r.URL.Query().Get("duration"); raw != "" {
		d, err := time.ParseDuration(raw + "m")
		if err != nil || d <= 0 {
			badRequest(w, "duration must be a positive number of minutes")
			return
		}
		duration = d
	}

	book := h.desk.Book(h.claims(r).UserID)
	writeJSON(w, http.StatusOK, book.AvailableSlots(day, duration))
}

type bookRequest struct {
	LeadID      string `json:"lead_id"`
	Start       string `json:"start"`
	DurationMin int    `json:"duration_minutes"`
	Type        string `json:"type"`
	Location    string `json:"location"`
}

func (h *Handler) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.LeadID == "" {
		badRequest(w, "lead_id is required")
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		badRequest(w, "start must be RFC3339")
		return
	}
	if req.DurationMin <= 0 {
		req.DurationMin = 30
	}
	end := start.Add(time.Duration(req.DurationMin) * time.Minute)

	userID := h.claims(r).UserID
	if _, err := h.store.GetLead(r.Context(), userID, req.LeadID); err != nil {
		writeError(w, err)
		return
	}

	appt, err := h.desk.Book(userID).Book(r.Context(), req.LeadID, start, end, req.Type, req.Location)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("lead_id", appt.LeadID),
		zap.Time("start", appt.Start))
	h.publish(r, bus.EventAppointmentBooked, appt.LeadID, map[string]string{
		"appointment_id": appt.ID,
		"start":          appt.Start.Format(time.RFC3339),
	})
	writeJSON(w, http.StatusCreated, appt)
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	book := h.desk.Book(h.claims(r).UserID)
	writeJSON(w, http.StatusOK, book.Appointments())
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	book := h.desk.Book(h.claims(r).UserID)
	appt, ok := book.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, scheduler.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type rescheduleRequest struct {
	Start       string `json:"start"`
	DurationMin int    `json:"duration_minutes"`
}

func (h *Handler) rescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		badRequest(w, "start must be RFC3339")
		return
	}
	if req.DurationMin <= 0 {
		req.DurationMin = 30
	}

	book := h.desk.Book(h.claims(r).UserID)
	appt, err := book.Reschedule(r.Context(), chi.URLParam(r, "id"), start, start.Add(time.Duration(req.DurationMin)*time.Minute))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	book := h.desk.Book(h.claims(r).UserID)
	id := chi.URLParam(r, "id")
	if err := book.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	if appt, ok := book.Get(id); ok {
		h.publish(r, bus.EventAppointmentCancelled, appt.LeadID, map[string]string{"appointment_id": id})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "appointment_id": id})
}

func (h *Handler) sendReminder(w http.ResponseWriter, r *http.Request) {
	book := h.desk.Book(h.claims(r).UserID)
	reminder, err := book.SendReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}
