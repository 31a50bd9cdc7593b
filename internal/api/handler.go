package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/agents"
	"github.com/readyset/realtor/internal/auth"
	"github.com/readyset/realtor/internal/bus"
	"github.com/readyset/realtor/internal/mcp"
	"github.com/readyset/realtor/internal/notify"
	"github.com/readyset/realtor/internal/scheduler"
	"github.com/readyset/realtor/internal/store"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store       *store.Store
	desk        *scheduler.Desk
	registry    *mcp.Registry
	qualifier   *agents.LeadQualifier
	planner     *agents.FollowUpPlanner
	coordinator *agents.TransactionCoordinator
	auth        *auth.Authenticator
	sms         *notify.TwilioClient
	voice       *notify.VapiClient
	signatures  *notify.DocuSignClient
	email       *notify.EmailSender
	events      *bus.Bus
	logger      *zap.Logger
}

// NewHandler creates a new API handler. The notify clients and the event
// bus may be nil; their routes answer 503 until configured.
func NewHandler(
	st *store.Store,
	desk *scheduler.Desk,
	registry *mcp.Registry,
	qualifier *agents.LeadQualifier,
	planner *agents.FollowUpPlanner,
	coordinator *agents.TransactionCoordinator,
	authenticator *auth.Authenticator,
	sms *notify.TwilioClient,
	voice *notify.VapiClient,
	signatures *notify.DocuSignClient,
	email *notify.EmailSender,
	events *bus.Bus,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		store:       st,
		desk:        desk,
		registry:    registry,
		qualifier:   qualifier,
		planner:     planner,
		coordinator: coordinator,
		auth:        authenticator,
		sms:         sms,
		voice:       voice,
		signatures:  signatures,
		email:       email,
		events:      events,
		logger:      logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware())

			// Lead routes
			r.Post("/leads", h.createLead)
			r.Get("/leads", h.listLeads)
			r.Get("/leads/{id}", h.getLead)
			r.Put("/leads/{id}", h.updateLead)
			r.Post("/leads/{id}/qualify", h.qualifyLead)

			// Follow-up routes
			r.Post("/leads/{id}/followups", h.createFollowUpSchedule)
			r.Get("/leads/{id}/followups", h.getFollowUpSchedule)
			r.Post("/leads/{id}/followups/message", h.generateFollowUpMessage)

			// Communication routes
			r.Get("/communications", h.listCommunications)
			r.Get("/communications/{id}", h.getCommunication)
			r.Post("/communications/email", h.sendEmail)
			r.Post("/communications/sms", h.sendSMS)
			r.Post("/communications/call", h.startCall)

			// Document routes
			r.Post("/documents", h.createDocument)
			r.Get("/documents", h.listDocuments)
			r.Get("/documents/{id}", h.getDocument)
			r.Post("/documents/{id}/signature", h.requestSignature)
			r.Get("/documents/{id}/signature", h.signatureStatus)

			// Transaction routes
			r.Post("/transactions", h.createTransaction)
			r.Get("/transactions/{id}", h.getTransaction)
			r.Put("/transactions/{id}/milestones", h.updateMilestone)
			r.Post("/transactions/{id}/documents", h.draftDocument)

			// Appointment routes
			r.Get("/appointments/slots", h.availableSlots)
			r.Get("/appointments", h.listAppointments)
			r.Post("/appointments", h.bookAppointment)
			r.Get("/appointments/{id}", h.getAppointment)
			r.Post("/appointments/{id}/reschedule", h.rescheduleAppointment)
			r.Post("/appointments/{id}/cancel", h.cancelAppointment)
			r.Post("/appointments/{id}/reminder", h.sendReminder)

			// Agent registry routes
			r.Get("/agents", h.listAgents)
			r.Post("/agents", h.createAgent)
			r.Get("/agents/{id}", h.getAgent)
			r.Put("/agents/{id}/state", h.updateAgentState)
			r.Post("/agents/{id}/tasks", h.assignTask)
			r.Get("/tasks", h.pendingTasks)
			r.Post("/teams", h.createTeam)
			r.Get("/teams", h.listTeams)
			r.Get("/teams/{id}", h.getTeam)
		})
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "realtor"})
}

// claims pulls the authenticated user out of the request context. The
// auth middleware guarantees it is present on protected routes.
func (h *Handler) claims(r *http.Request) *auth.Claims {
	c, _ := auth.FromContext(r.Context())
	return c
}

// publish emits a CRM event best-effort. Bus failures are logged, never
// surfaced to the API caller.
func (h *Handler) publish(r *http.Request, kind bus.EventKind, leadID string, payload map[string]string) {
	if h.events == nil {
		return
	}
	event := &bus.Event{Kind: kind, LeadID: leadID, Payload: payload}
	if err := h.events.Publish(r.Context(), event); err != nil {
		h.logger.Warn("event publish failed", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, scheduler.ErrNotFound),
		errors.Is(err, agents.ErrLeadNotScheduled),
		errors.Is(err, agents.ErrTemplateNotFound),
		errors.Is(err, agents.ErrTransactionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, scheduler.ErrSlotUnavailable),
		errors.Is(err, scheduler.ErrAlreadyCancelled):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
