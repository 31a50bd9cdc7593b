package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// LeadStatus tracks a lead through the sales pipeline.
type LeadStatus string

const (
	LeadNew            LeadStatus = "new"
	LeadContacted      LeadStatus = "contacted"
	LeadQualified      LeadStatus = "qualified"
	LeadAppointmentSet LeadStatus = "appointment_set"
	LeadNegotiating    LeadStatus = "negotiating"
	LeadClosed         LeadStatus = "closed"
	LeadLost           LeadStatus = "lost"
)

// LeadSource records where a lead came from.
type LeadSource string

const (
	SourceWebsite  LeadSource = "website"
	SourceReferral LeadSource = "referral"
	SourceZillow   LeadSource = "zillow"
	SourceRealtor  LeadSource = "realtor"
	SourceColdCall LeadSource = "cold_call"
	SourceOther    LeadSource = "other"
)

// Lead is a prospective buyer or seller owned by one user.
type Lead struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	Email         string            `json:"email,omitempty"`
	Phone         string            `json:"phone,omitempty"`
	Status        LeadStatus        `json:"status"`
	Source        LeadSource        `json:"source"`
	LastContacted *time.Time        `json:"last_contacted,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

const leadColumns = `id, user_id, first_name, last_name, COALESCE(email,''), COALESCE(phone,''),
       status, source, last_contacted, COALESCE(notes,''), metadata, created_at, updated_at`

// CreateLead inserts a new lead and fills in its id and timestamps.
func (s *Store) CreateLead(ctx context.Context, l *Lead) error {
	if l.Status == "" {
		l.Status = LeadNew
	}
	if l.Source == "" {
		l.Source = SourceOther
	}
	meta, _ := json.Marshal(l.Metadata)
	err := s.db.QueryRow(ctx, `
		INSERT INTO leads (user_id, first_name, last_name, email, phone, status, source, notes, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		l.UserID, l.FirstName, l.LastName, l.Email, l.Phone,
		string(l.Status), string(l.Source), l.Notes, meta,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

// GetLead retrieves a lead scoped to its owning user.
func (s *Store) GetLead(ctx context.Context, userID, id string) (*Lead, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1 AND user_id = $2`, id, userID)
	l, err := scanLead(row)
	if err != nil {
		return nil, fmt.Errorf("get lead %s: %w", id, wrapNotFound(err))
	}
	return l, nil
}

// ListLeads returns a page of the user's leads, newest first.
func (s *Store) ListLeads(ctx context.Context, userID string, offset, limit int) ([]*Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE user_id = $1
		 ORDER BY created_at DESC OFFSET $2 LIMIT $3`, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, nil
}

// UpdateLead overwrites a lead's mutable fields.
func (s *Store) UpdateLead(ctx context.Context, l *Lead) error {
	meta, _ := json.Marshal(l.Metadata)
	tag, err := s.db.Exec(ctx, `
		UPDATE leads SET first_name=$1, last_name=$2, email=$3, phone=$4,
		       status=$5, source=$6, last_contacted=$7, notes=$8, metadata=$9, updated_at=NOW()
		WHERE id=$10 AND user_id=$11`,
		l.FirstName, l.LastName, l.Email, l.Phone,
		string(l.Status), string(l.Source), l.LastContacted, l.Notes, meta,
		l.ID, l.UserID)
	if err != nil {
		return fmt.Errorf("update lead %s: %w", l.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update lead %s: %w", l.ID, ErrNotFound)
	}
	return nil
}

// TouchLeadContact stamps the lead's last_contacted time.
func (s *Store) TouchLeadContact(ctx context.Context, userID, id string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE leads SET last_contacted=$1, updated_at=NOW() WHERE id=$2 AND user_id=$3`,
		at, id, userID)
	if err != nil {
		return fmt.Errorf("touch lead %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*Lead, error) {
	l := &Lead{}
	var meta []byte
	err := row.Scan(&l.ID, &l.UserID, &l.FirstName, &l.LastName, &l.Email, &l.Phone,
		&l.Status, &l.Source, &l.LastContacted, &l.Notes, &meta, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(meta, &l.Metadata)
	return l, nil
}
