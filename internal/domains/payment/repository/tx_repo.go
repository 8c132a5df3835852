package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-backend/pkg/database"
)

type poolTxRunner struct {
	pool *pgxpool.Pool
}

// NewPoolTxRunner wraps the pgx pool as a TxRunner.
func NewPoolTxRunner(pool *pgxpool.Pool) TxRunner {
	return &poolTxRunner{pool: pool}
}

func (r *poolTxRunner) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return database.WithTransaction(ctx, r.pool, fn)
}
