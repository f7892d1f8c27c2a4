package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baharkarakas/point-ledger/internal/models"
	repo "github.com/baharkarakas/point-ledger/internal/repository"
	"github.com/cockroachdb/pebble"
)

var _ repo.Balances = (*BalancesStore)(nil)

type BalancesStore struct {
	s *Store
}

func (b *BalancesStore) Get(_ context.Context, userID int64) (models.Balance, error) {
	val, closer, err := b.s.db.Get(balanceKey(userID))
	if errors.Is(err, pebble.ErrNotFound) {
		return models.EmptyBalance(userID), nil
	}
	if err != nil {
		return models.Balance{}, fmt.Errorf("%w: get balance: %w", repo.ErrUnavailable, err)
	}
	defer closer.Close()

	amount, at, err := decodeBalance(val)
	if err != nil {
		return models.Balance{}, err
	}
	return models.Balance{UserID: userID, Amount: amount, LastUpdatedAt: at}, nil
}

func (b *BalancesStore) Put(_ context.Context, userID int64, amount int64) (models.Balance, error) {
	now := time.Unix(0, b.s.now().UnixNano())
	if err := b.s.db.Set(balanceKey(userID), encodeBalance(amount, now), pebble.Sync); err != nil {
		return models.Balance{}, fmt.Errorf("%w: put balance: %w", repo.ErrUnavailable, err)
	}
	return models.Balance{UserID: userID, Amount: amount, LastUpdatedAt: now}, nil
}
