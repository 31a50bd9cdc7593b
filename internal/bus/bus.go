// Package bus publishes CRM events over Redis Streams so other
// services (analytics, mobile push, audit) can follow lead activity.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EventKind labels what happened to a lead.
type EventKind string

const (
	EventLeadCreated          EventKind = "lead.created"
	EventLeadQualified        EventKind = "lead.qualified"
	EventCommunicationSent    EventKind = "communication.sent"
	EventAppointmentBooked    EventKind = "appointment.booked"
	EventAppointmentCancelled EventKind = "appointment.cancelled"
	EventDocumentDrafted      EventKind = "document.drafted"
	EventSignatureRequested   EventKind = "signature.requested"
)

// Event is one entry on a lead's activity stream.
type Event struct {
	ID        string            `json:"id"`
	Kind      EventKind         `json:"kind"`
	LeadID    string            `json:"lead_id"`
	Payload   map[string]string `json:"payload,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

const streamKey = "realtor:events"

// Bus writes events to a single Redis stream.
type Bus struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// New connects to Redis and verifies the connection.
func New(redisURL string, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Bus{rdb: rdb, logger: logger}, nil
}

// Publish appends an event to the stream. The event gets an ID and
// timestamp if the caller left them empty.
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Kind, err)
	}

	b.logger.Debug("event published",
		zap.String("kind", string(event.Kind)),
		zap.String("lead_id", event.LeadID))
	return nil
}

// Subscribe follows the event stream from now on.
// Returns a channel that emits events. Cancel the context to stop.
func (b *Bus) Subscribe(ctx context.Context) <-chan *Event {
	ch := make(chan *Event, 16)

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{streamKey, lastID},
				Count:   10,
				Block:   time.Second * 2,
			}).Result()

			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var ev Event
					if json.Unmarshal([]byte(data), &ev) == nil {
						ch <- &ev
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
