package repository

import (
	"context"
	"math/rand"
	"time"

	"github.com/baharkarakas/point-ledger/internal/models"
)

// Delay is invoked before every decorated store call.
type Delay func(ctx context.Context) error

// RandomDelay sleeps for a uniformly random duration in [0, max).
func RandomDelay(max time.Duration) Delay {
	if max <= 0 {
		return nil
	}
	return func(ctx context.Context) error {
		return Sleep(ctx, time.Duration(rand.Int63n(int64(max))))
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type slowBalances struct {
	next  Balances
	delay Delay
}

type slowHistories struct {
	next  Histories
	delay Delay
}

// WithLatency wraps both stores so that every call first goes through delay.
// A nil delay returns the stores unchanged.
func WithLatency(b Balances, h Histories, delay Delay) (Balances, Histories) {
	if delay == nil {
		return b, h
	}
	return &slowBalances{next: b, delay: delay}, &slowHistories{next: h, delay: delay}
}

func (s *slowBalances) Get(ctx context.Context, userID int64) (models.Balance, error) {
	if err := s.delay(ctx); err != nil {
		return models.Balance{}, err
	}
	return s.next.Get(ctx, userID)
}

func (s *slowBalances) Put(ctx context.Context, userID int64, amount int64) (models.Balance, error) {
	if err := s.delay(ctx); err != nil {
		return models.Balance{}, err
	}
	return s.next.Put(ctx, userID, amount)
}

func (s *slowHistories) Append(ctx context.Context, userID, amount int64, kind models.TransactionType, at time.Time) (models.HistoryEntry, error) {
	if err := s.delay(ctx); err != nil {
		return models.HistoryEntry{}, err
	}
	return s.next.Append(ctx, userID, amount, kind, at)
}

func (s *slowHistories) ListByUser(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	if err := s.delay(ctx); err != nil {
		return nil, err
	}
	return s.next.ListByUser(ctx, userID)
}
