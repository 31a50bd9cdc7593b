package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// CommunicationType is the channel a communication went through.
type CommunicationType string

const (
	CommCall    CommunicationType = "call"
	CommEmail   CommunicationType = "email"
	CommText    CommunicationType = "text"
	CommMeeting CommunicationType = "meeting"
)

// CommunicationDirection distinguishes inbound from outbound contact.
type CommunicationDirection string

const (
	DirectionInbound  CommunicationDirection = "inbound"
	DirectionOutbound CommunicationDirection = "outbound"
)

// CommunicationStatus tracks delivery of a communication.
type CommunicationStatus string

const (
	CommScheduled  CommunicationStatus = "scheduled"
	CommInProgress CommunicationStatus = "in_progress"
	CommCompleted  CommunicationStatus = "completed"
	CommFailed     CommunicationStatus = "failed"
)

// Communication is one contact event with a lead.
type Communication struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"user_id"`
	LeadID      string                 `json:"lead_id"`
	Type        CommunicationType      `json:"type"`
	Direction   CommunicationDirection `json:"direction"`
	Content     string                 `json:"content,omitempty"`
	Status      CommunicationStatus    `json:"status"`
	ScheduledAt *time.Time             `json:"scheduled_at,omitempty"`
	SentAt      *time.Time             `json:"sent_at,omitempty"`
	Metadata    map[string]string      `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// CreateCommunication inserts a communication record.
func (s *Store) CreateCommunication(ctx context.Context, c *Communication) error {
	if c.Status == "" {
		c.Status = CommScheduled
	}
	meta, _ := json.Marshal(c.Metadata)
	err := s.db.QueryRow(ctx, `
		INSERT INTO communications (user_id, lead_id, type, direction, content, status, scheduled_at, sent_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		c.UserID, c.LeadID, string(c.Type), string(c.Direction), c.Content,
		string(c.Status), c.ScheduledAt, c.SentAt, meta,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create communication: %w", err)
	}
	return nil
}

// GetCommunication retrieves one communication scoped to its user.
func (s *Store) GetCommunication(ctx context.Context, userID, id string) (*Communication, error) {
	c := &Communication{}
	var meta []byte
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, lead_id, type, direction, COALESCE(content,''), status,
		       scheduled_at, sent_at, metadata, created_at
		FROM communications WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&c.ID, &c.UserID, &c.LeadID, &c.Type, &c.Direction, &c.Content, &c.Status,
		&c.ScheduledAt, &c.SentAt, &meta, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get communication %s: %w", id, wrapNotFound(err))
	}
	_ = json.Unmarshal(meta, &c.Metadata)
	return c, nil
}

// ListCommunications returns a page of the user's communications, newest first.
func (s *Store) ListCommunications(ctx context.Context, userID string, offset, limit int) ([]*Communication, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, lead_id, type, direction, COALESCE(content,''), status,
		       scheduled_at, sent_at, metadata, created_at
		FROM communications WHERE user_id = $1
		ORDER BY created_at DESC OFFSET $2 LIMIT $3`, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list communications: %w", err)
	}
	defer rows.Close()

	var comms []*Communication
	for rows.Next() {
		c := &Communication{}
		var meta []byte
		if err := rows.Scan(&c.ID, &c.UserID, &c.LeadID, &c.Type, &c.Direction, &c.Content,
			&c.Status, &c.ScheduledAt, &c.SentAt, &meta, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan communication: %w", err)
		}
		_ = json.Unmarshal(meta, &c.Metadata)
		comms = append(comms, c)
	}
	return comms, nil
}
