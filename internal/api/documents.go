package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/readyset/realtor/internal/bus"
	"github.com/readyset/realtor/internal/notify"
	"github.com/readyset/realtor/internal/store"
)

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var doc store.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		badRequest(w, err.Error())
		return
	}
	if doc.LeadID == "" || doc.Title == "" {
		badRequest(w, "lead_id and title are required")
		return
	}

	userID := h.claims(r).UserID
	if _, err := h.store.GetLead(r.Context(), userID, doc.LeadID); err != nil {
		writeError(w, err)
		return
	}

	doc.UserID = userID
	if err := h.store.CreateDocument(r.Context(), &doc); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)
	docs, err := h.store.ListDocuments(r.Context(), h.claims(r).UserID, r.URL.Query().Get("lead_id"), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetDocument(r.Context(), h.claims(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type signatureRequest struct {
	Content string          `json:"content"`
	Signers []notify.Signer `json:"signers"`
}

func (h *Handler) requestSignature(w http.ResponseWriter, r *http.Request) {
	if h.signatures == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "e-signature not configured"})
		return
	}

	userID := h.claims(r).UserID
	doc, err := h.store.GetDocument(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req signatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if len(req.Signers) == 0 {
		// fall back to the lead on file
		lead, err := h.store.GetLead(r.Context(), userID, doc.LeadID)
		if err != nil {
			writeError(w, err)
			return
		}
		if lead.Email == "" {
			badRequest(w, "no signers given and lead has no email address")
			return
		}
		req.Signers = []notify.Signer{{Email: lead.Email, Name: lead.FirstName + " " + lead.LastName}}
	}

	env, err := h.signatures.CreateEnvelope(r.Context(), doc.Title, []byte(req.Content), req.Signers)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.UpdateDocumentStatus(r.Context(), userID, doc.ID, store.DocPendingSignature, env.ID); err != nil {
		writeError(w, err)
		return
	}
	doc.Status = store.DocPendingSignature
	doc.EnvelopeID = env.ID

	h.logger.Info("signature requested",
		zap.String("document_id", doc.ID),
		zap.String("envelope_id", env.ID))
	h.publish(r, bus.EventSignatureRequested, doc.LeadID, map[string]string{"document_id": doc.ID})
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) signatureStatus(w http.ResponseWriter, r *http.Request) {
	if h.signatures == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "e-signature not configured"})
		return
	}

	userID := h.claims(r).UserID
	doc, err := h.store.GetDocument(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if doc.EnvelopeID == "" {
		badRequest(w, "document has no signature request")
		return
	}

	env, err := h.signatures.EnvelopeStatus(r.Context(), doc.EnvelopeID)
	if err != nil {
		writeError(w, err)
		return
	}
	if env.Status == "completed" && doc.Status != store.DocSigned {
		if err := h.store.UpdateDocumentStatus(r.Context(), userID, doc.ID, store.DocSigned, ""); err != nil {
			writeError(w, err)
			return
		}
		doc.Status = store.DocSigned
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": doc.ID,
		"envelope_id": doc.EnvelopeID,
		"status":      doc.Status,
		"envelope":    env,
	})
}

type transactionRequest struct {
	ID   string            `json:"transaction_id"`
	Data map[string]string `json:"data"`
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.ID == "" {
		badRequest(w, "transaction_id is required")
		return
	}
	tx := h.coordinator.CreateTransaction(req.ID, req.Data)
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.coordinator.Transaction(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction not found"})
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type milestoneRequest struct {
	Name   string `json:"milestone"`
	Status string `json:"status"`
}

func (h *Handler) updateMilestone(w http.ResponseWriter, r *http.Request) {
	var req milestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Name == "" || req.Status == "" {
		badRequest(w, "milestone and status are required")
		return
	}

	tx, err := h.coordinator.UpdateMilestone(chi.URLParam(r, "id"), req.Name, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type draftRequest struct {
	DocumentType string            `json:"document_type"`
	Context      map[string]string `json:"context"`
	LeadID       string            `json:"lead_id,omitempty"`
}

func (h *Handler) draftDocument(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "id")

	var req draftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.DocumentType == "" {
		badRequest(w, "document_type is required")
		return
	}

	draft, err := h.coordinator.DraftDocument(r.Context(), txID, req.DocumentType, req.Context)
	if err != nil {
		writeError(w, err)
		return
	}

	// Persist the draft against the lead when one is named.
	if req.LeadID != "" {
		doc := &store.Document{
			UserID:      h.claims(r).UserID,
			LeadID:      req.LeadID,
			Title:       req.DocumentType,
			Type:        store.DocOther,
			StoragePath: "",
			Metadata:    map[string]string{"transaction_id": txID},
		}
		if err := h.store.CreateDocument(r.Context(), doc); err != nil {
			h.logger.Warn("persist draft failed", zap.String("transaction_id", txID), zap.Error(err))
		} else {
			h.publish(r, bus.EventDocumentDrafted, req.LeadID, map[string]string{"document_id": doc.ID})
		}
	}
	writeJSON(w, http.StatusOK, draft)
}
