package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DocumentType enumerates the standard real estate document kinds.
type DocumentType string

const (
	DocPurchaseAgreement DocumentType = "purchase_agreement"
	DocListingAgreement  DocumentType = "listing_agreement"
	DocDisclosure        DocumentType = "disclosure"
	DocAmendment         DocumentType = "amendment"
	DocAddendum          DocumentType = "addendum"
	DocOther             DocumentType = "other"
)

// DocumentStatus tracks a document through the signature flow.
type DocumentStatus string

const (
	DocDraft            DocumentStatus = "draft"
	DocPendingSignature DocumentStatus = "pending_signature"
	DocSigned           DocumentStatus = "signed"
	DocExpired          DocumentStatus = "expired"
	DocCancelled        DocumentStatus = "cancelled"
)

// Document is a transaction document attached to a lead.
type Document struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	LeadID      string            `json:"lead_id"`
	Title       string            `json:"title"`
	Type        DocumentType      `json:"type"`
	Status      DocumentStatus    `json:"status"`
	EnvelopeID  string            `json:"envelope_id,omitempty"`
	StoragePath string            `json:"storage_path,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

const documentColumns = `id, user_id, lead_id, title, type, status,
       COALESCE(envelope_id,''), COALESCE(storage_path,''), metadata, created_at, updated_at`

// CreateDocument inserts a new document, defaulting to draft status.
func (s *Store) CreateDocument(ctx context.Context, d *Document) error {
	if d.Status == "" {
		d.Status = DocDraft
	}
	meta, _ := json.Marshal(d.Metadata)
	err := s.db.QueryRow(ctx, `
		INSERT INTO documents (user_id, lead_id, title, type, status, envelope_id, storage_path, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		d.UserID, d.LeadID, d.Title, string(d.Type), string(d.Status),
		d.EnvelopeID, d.StoragePath, meta,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document scoped to its user.
func (s *Store) GetDocument(ctx context.Context, userID, id string) (*Document, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	d, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, wrapNotFound(err))
	}
	return d, nil
}

// ListDocuments returns the user's documents, optionally filtered by lead.
func (s *Store) ListDocuments(ctx context.Context, userID, leadID string, offset, limit int) ([]*Document, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1`
	args := []any{userID}
	if leadID != "" {
		query += ` AND lead_id = $2`
		args = append(args, leadID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, offset, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// UpdateDocumentStatus moves a document through the signature flow,
// recording the e-signature envelope when one is created.
func (s *Store) UpdateDocumentStatus(ctx context.Context, userID, id string, status DocumentStatus, envelopeID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE documents SET status=$1,
		       envelope_id=COALESCE(NULLIF($2,''), envelope_id),
		       updated_at=NOW()
		WHERE id=$3 AND user_id=$4`,
		string(status), envelopeID, id, userID)
	if err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update document %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanDocument(row rowScanner) (*Document, error) {
	d := &Document{}
	var meta []byte
	err := row.Scan(&d.ID, &d.UserID, &d.LeadID, &d.Title, &d.Type, &d.Status,
		&d.EnvelopeID, &d.StoragePath, &meta, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(meta, &d.Metadata)
	return d, nil
}
