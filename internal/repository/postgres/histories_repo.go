package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/baharkarakas/point-ledger/internal/models"
	repo "github.com/baharkarakas/point-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type historiesRepo struct{ pool *pgxpool.Pool }

func (r *historiesRepo) Append(ctx context.Context, userID, amount int64, kind models.TransactionType, at time.Time) (models.HistoryEntry, error) {
	h := models.HistoryEntry{UserID: userID, Amount: amount, Type: kind, CreatedAt: at}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO point_histories (user_id, amount, type, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		userID, amount, string(kind), at,
	).Scan(&h.ID)
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("%w: insert history: %w", repo.ErrUnavailable, err)
	}
	return h, nil
}

func (r *historiesRepo) ListByUser(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, amount, type, created_at
		   FROM point_histories
		  WHERE user_id = $1
		  ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: select histories: %w", repo.ErrUnavailable, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.HistoryEntry, error) {
		var h models.HistoryEntry
		var kind string
		if err := row.Scan(&h.ID, &h.UserID, &h.Amount, &kind, &h.CreatedAt); err != nil {
			return h, fmt.Errorf("%w: scan history: %w", repo.ErrUnavailable, err)
		}
		t, err := models.ParseTransactionType(kind)
		if err != nil {
			return h, fmt.Errorf("history %d: %w", h.ID, err)
		}
		h.Type = t
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
