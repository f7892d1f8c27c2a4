package repository

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/point-ledger/internal/models"
)

// ErrUnavailable wraps every failed backend call (unreachable, closed, or
// rejected by the engine). Corrupt stored data is reported without it.
var ErrUnavailable = errors.New("store unavailable")

// Balances is the point-of-truth for the current balance of a user.
// Get returns a zero balance for unknown users, never an error.
type Balances interface {
	Get(ctx context.Context, userID int64) (models.Balance, error)
	Put(ctx context.Context, userID int64, amount int64) (models.Balance, error)
}

// Histories is an append-only log of point transactions.
// ListByUser returns entries in append order.
type Histories interface {
	Append(ctx context.Context, userID, amount int64, kind models.TransactionType, at time.Time) (models.HistoryEntry, error)
	ListByUser(ctx context.Context, userID int64) ([]models.HistoryEntry, error)
}
