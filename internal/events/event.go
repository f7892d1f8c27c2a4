// Package events publishes point change notifications to a broker.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/baharkarakas/point-ledger/internal/models"
	"github.com/baharkarakas/point-ledger/internal/services"
	"github.com/google/uuid"
)

const Version = 1

// PointChanged is emitted once per applied charge or use.
type PointChanged struct {
	V          int                    `json:"v"`
	EventID    uuid.UUID              `json:"event_id"`
	UserID     int64                  `json:"user_id"`
	HistoryID  int64                  `json:"history_id"`
	Type       models.TransactionType `json:"type"`
	Amount     int64                  `json:"amount"`
	Balance    int64                  `json:"balance"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func FromChange(c services.Change) PointChanged {
	return PointChanged{
		V:          Version,
		EventID:    uuid.New(),
		UserID:     c.Entry.UserID,
		HistoryID:  c.Entry.ID,
		Type:       c.Entry.Type,
		Amount:     c.Entry.Amount,
		Balance:    c.Balance.Amount,
		OccurredAt: c.Entry.CreatedAt,
	}
}

// Key partitions events by user so a consumer sees one user's changes in order.
func (e PointChanged) Key() []byte {
	return []byte(strconv.FormatInt(e.UserID, 10))
}

func (e PointChanged) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, ev PointChanged) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, PointChanged) error { return nil }
func (Noop) Close() error                                { return nil }
