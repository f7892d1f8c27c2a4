package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/baharkarakas/point-ledger/internal/models"
	repo "github.com/baharkarakas/point-ledger/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type balancesRepo struct{ pool *pgxpool.Pool }

func (r *balancesRepo) Get(ctx context.Context, userID int64) (models.Balance, error) {
	var b models.Balance
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, amount, last_updated_at
		   FROM point_balances
		  WHERE user_id = $1`,
		userID,
	).Scan(&b.UserID, &b.Amount, &b.LastUpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.EmptyBalance(userID), nil
		}
		return models.Balance{}, fmt.Errorf("%w: select balance: %w", repo.ErrUnavailable, err)
	}
	return b, nil
}

// Put overwrites the stored amount. The service decides the value; the
// database only enforces non-negativity.
func (r *balancesRepo) Put(ctx context.Context, userID int64, amount int64) (models.Balance, error) {
	var b models.Balance
	err := r.pool.QueryRow(ctx,
		`INSERT INTO point_balances (user_id, amount, last_updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE
		    SET amount = EXCLUDED.amount,
		        last_updated_at = EXCLUDED.last_updated_at
		 RETURNING user_id, amount, last_updated_at`,
		userID, amount,
	).Scan(&b.UserID, &b.Amount, &b.LastUpdatedAt)
	if err != nil {
		return models.Balance{}, fmt.Errorf("%w: upsert balance: %w", repo.ErrUnavailable, err)
	}
	return b, nil
}
