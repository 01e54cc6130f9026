// Package messages is the per-customer interaction log. Every processed
// call appends exactly one inbound row; outbound confirmations append one
// more. Rows are immutable once written.
package messages

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Direction distinguishes who produced the row.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Channel names the medium the interaction arrived on.
type Channel string

const (
	ChannelVoice Channel = "voice"
	ChannelChat  Channel = "chat"
)

// Message is one immutable interaction row.
type Message struct {
	ID         string          `json:"id"`
	BusinessID string          `json:"business_id"`
	CustomerID string          `json:"customer_id"`
	Direction  Direction       `json:"direction"`
	Channel    Channel         `json:"channel"`
	Content    string          `json:"content"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Store persists interaction rows.
type Store struct {
	db *sql.DB
}

// NewStore creates a message store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("messages: db required")
	}
	return &Store{db: db}
}

// Append writes one row. ID and CreatedAt are filled in when empty.
func (s *Store) Append(ctx context.Context, m Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Channel == "" {
		m.Channel = ChannelVoice
	}

	query := `
		INSERT INTO messages (id, business_id, customer_id, direction, channel, content, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		m.ID,
		m.BusinessID,
		m.CustomerID,
		m.Direction,
		m.Channel,
		m.Content,
		nullJSON(m.Payload),
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("messages: append: %w", err)
	}
	return nil
}

// LogCall appends the inbound row for a processed call, carrying the raw
// provider payload for later auditing.
func (s *Store) LogCall(ctx context.Context, businessID, customerID, content string, payload []byte) error {
	return s.Append(ctx, Message{
		BusinessID: businessID,
		CustomerID: customerID,
		Direction:  DirectionInbound,
		Channel:    ChannelVoice,
		Content:    content,
		Payload:    payload,
	})
}

// LogOutbound appends a system-generated outbound row, e.g. a booking
// confirmation.
func (s *Store) LogOutbound(ctx context.Context, businessID, customerID, content string) error {
	return s.Append(ctx, Message{
		BusinessID: businessID,
		CustomerID: customerID,
		Direction:  DirectionOutbound,
		Channel:    ChannelVoice,
		Content:    content,
	})
}

// ListForCustomer returns a customer's interaction history, oldest first.
func (s *Store) ListForCustomer(ctx context.Context, businessID, customerID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, business_id, customer_id, direction, channel, content, payload, created_at
		FROM messages
		WHERE business_id = $1 AND customer_id = $2
		ORDER BY created_at ASC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, businessID, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("messages: list for customer: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var (
			m       Message
			payload []byte
		)
		if err := rows.Scan(&m.ID, &m.BusinessID, &m.CustomerID, &m.Direction,
			&m.Channel, &m.Content, &payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("messages: scan: %w", err)
		}
		if len(payload) > 0 {
			m.Payload = json.RawMessage(payload)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountForBusiness reports how many interaction rows a business has
// accumulated, split by direction.
func (s *Store) CountForBusiness(ctx context.Context, businessID string) (inbound, outbound int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE direction = 'inbound'),
			COUNT(*) FILTER (WHERE direction = 'outbound')
		FROM messages WHERE business_id = $1
	`
	if err := s.db.QueryRowContext(ctx, query, businessID).Scan(&inbound, &outbound); err != nil {
		return 0, 0, fmt.Errorf("messages: count for business: %w", err)
	}
	return inbound, outbound, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
