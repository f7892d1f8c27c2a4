package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/baharkarakas/point-ledger/internal/lock"
	"github.com/baharkarakas/point-ledger/internal/metrics"
	"github.com/baharkarakas/point-ledger/internal/models"
	repo "github.com/baharkarakas/point-ledger/internal/repository"
)

// Change describes one applied charge or use.
type Change struct {
	Entry   models.HistoryEntry
	Balance models.Balance
}

// ChangeNotifier is told about every applied change while the user's lock is
// still held, so notifications for one user arrive in application order.
// Notify must not block for long.
type ChangeNotifier interface {
	Notify(c Change)
}

type Option func(*PointService)

func WithNotifier(n ChangeNotifier) Option {
	return func(s *PointService) { s.notify = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *PointService) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *PointService) { s.now = now }
}

// PointService is the only component allowed to mutate balances and histories.
// Charge and Use serialize per user through the lock registry; the stores
// themselves offer no transactions.
type PointService struct {
	locks  *lock.Registry
	bal    repo.Balances
	hist   repo.Histories
	notify ChangeNotifier
	log    *slog.Logger
	now    func() time.Time
}

func NewPointService(locks *lock.Registry, b repo.Balances, h repo.Histories, opts ...Option) *PointService {
	s := &PointService{
		locks: locks,
		bal:   b,
		hist:  h,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ----------------- Queries -----------------

// GetBalance is a lock-free snapshot read; unknown users have a zero balance.
func (s *PointService) GetBalance(ctx context.Context, userID int64) (models.Balance, error) {
	b, err := s.bal.Get(ctx, userID)
	if err != nil {
		return models.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetHistory returns the user's entries in append order. Lock-free.
func (s *PointService) GetHistory(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	hs, err := s.hist.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if hs == nil {
		hs = []models.HistoryEntry{}
	}
	return hs, nil
}

// ----------------- Commands -----------------

// Charge credits amount to the user. Zero is accepted.
func (s *PointService) Charge(ctx context.Context, userID, amount int64) (models.Balance, error) {
	return s.apply(ctx, userID, amount, models.TxnCharge)
}

// Use debits amount from the user, failing with ErrInsufficientBalance
// (and no side effects) when the balance is too low.
func (s *PointService) Use(ctx context.Context, userID, amount int64) (models.Balance, error) {
	return s.apply(ctx, userID, amount, models.TxnUse)
}

func (s *PointService) apply(ctx context.Context, userID, amount int64, kind models.TransactionType) (out models.Balance, err error) {
	op := strings.ToLower(string(kind))
	defer func() { s.observe(op, userID, amount, err) }()

	if amount < 0 {
		return models.Balance{}, fmt.Errorf("%w: %d is negative", ErrInvalidAmount, amount)
	}

	h := s.locks.Acquire(userID)
	defer h.Release()

	cur, err := s.bal.Get(ctx, userID)
	if err != nil {
		return models.Balance{}, fmt.Errorf("read balance: %w", err)
	}

	next, err := nextAmount(cur.Amount, amount, kind)
	if err != nil {
		return models.Balance{}, err
	}

	// Balance first, history second: a failed append is undone by restoring
	// the balance, so no orphaned history entry can exist.
	updated, err := s.bal.Put(ctx, userID, next)
	if err != nil {
		return models.Balance{}, fmt.Errorf("write balance: %w", err)
	}

	entry, err := s.hist.Append(ctx, userID, amount, kind, s.now())
	if err != nil {
		appendErr := fmt.Errorf("append history: %w", err)
		if _, rbErr := s.bal.Put(context.WithoutCancel(ctx), userID, cur.Amount); rbErr != nil {
			metrics.ReconciliationRequired.Inc()
			s.log.Error("balance rollback failed",
				"user_id", userID, "op", op, "amount", amount,
				"previous", cur.Amount, "written", next,
				"append_err", err, "rollback_err", rbErr)
			return models.Balance{}, errors.Join(ErrReconciliationRequired, appendErr, fmt.Errorf("restore balance: %w", rbErr))
		}
		return models.Balance{}, appendErr
	}

	if s.notify != nil {
		s.notify.Notify(Change{Entry: entry, Balance: updated})
	}
	return updated, nil
}

func nextAmount(cur, amount int64, kind models.TransactionType) (int64, error) {
	switch kind {
	case models.TxnCharge:
		if amount > math.MaxInt64-cur {
			return 0, fmt.Errorf("%w: charge of %d overflows balance %d", ErrInvalidAmount, amount, cur)
		}
		return cur + amount, nil
	case models.TxnUse:
		if amount > cur {
			return 0, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, cur, amount)
		}
		return cur - amount, nil
	default:
		return 0, fmt.Errorf("unknown transaction type %q", kind)
	}
}

func (s *PointService) observe(op string, userID, amount int64, err error) {
	switch {
	case err == nil:
		metrics.PointOperations.WithLabelValues(op, "ok").Inc()
		s.log.Debug("point operation applied", "op", op, "user_id", userID, "amount", amount)
	case IsClientError(err):
		metrics.PointOperations.WithLabelValues(op, "rejected").Inc()
		s.log.Warn("point operation rejected", "op", op, "user_id", userID, "amount", amount, "err", err)
	default:
		metrics.PointOperations.WithLabelValues(op, "error").Inc()
		s.log.Error("point operation failed", "op", op, "user_id", userID, "amount", amount, "err", err)
	}
}
