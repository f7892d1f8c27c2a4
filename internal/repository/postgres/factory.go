package postgres

import (
	repo "github.com/baharkarakas/point-ledger/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Balances  repo.Balances
	Histories repo.Histories
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Balances:  &balancesRepo{pool},
		Histories: &historiesRepo{pool},
	}
}
