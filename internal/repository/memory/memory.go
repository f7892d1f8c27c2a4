// Package memory holds process-local Balances and Histories implementations.
// They are safe for concurrent use but provide no atomicity across calls.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baharkarakas/point-ledger/internal/models"
	repo "github.com/baharkarakas/point-ledger/internal/repository"
)

type Repositories struct {
	Balances  *BalancesRepo
	Histories *HistoriesRepo
}

func NewRepositories() Repositories {
	return Repositories{
		Balances:  NewBalances(),
		Histories: NewHistories(),
	}
}

var (
	_ repo.Balances  = (*BalancesRepo)(nil)
	_ repo.Histories = (*HistoriesRepo)(nil)
)

type BalancesRepo struct {
	mu    sync.RWMutex
	table map[int64]models.Balance
	now   func() time.Time
}

func NewBalances() *BalancesRepo {
	return &BalancesRepo{table: map[int64]models.Balance{}, now: time.Now}
}

// Seed overwrites a balance without going through Put; used for fixtures.
func (r *BalancesRepo) Seed(b models.Balance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table[b.UserID] = b
}

func (r *BalancesRepo) Get(_ context.Context, userID int64) (models.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.table[userID]; ok {
		return b, nil
	}
	return models.EmptyBalance(userID), nil
}

func (r *BalancesRepo) Put(_ context.Context, userID int64, amount int64) (models.Balance, error) {
	b := models.Balance{UserID: userID, Amount: amount, LastUpdatedAt: r.now()}
	r.mu.Lock()
	r.table[userID] = b
	r.mu.Unlock()
	return b, nil
}

type HistoriesRepo struct {
	mu     sync.RWMutex
	table  []models.HistoryEntry
	cursor int64
}

func NewHistories() *HistoriesRepo {
	return &HistoriesRepo{cursor: 1}
}

func (r *HistoriesRepo) Append(_ context.Context, userID, amount int64, kind models.TransactionType, at time.Time) (models.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := models.HistoryEntry{
		ID:        r.cursor,
		UserID:    userID,
		Amount:    amount,
		Type:      kind,
		CreatedAt: at,
	}
	r.cursor++
	r.table = append(r.table, h)
	return h, nil
}

func (r *HistoriesRepo) ListByUser(_ context.Context, userID int64) ([]models.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.HistoryEntry{}
	for _, h := range r.table {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}
