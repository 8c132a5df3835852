package database

import (
	"context"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v5"

	"ticketing-backend/pkg/logger"
)

// Ping verifies the database is alive and responsive. Used by health
// check endpoints; a 5s ceiling keeps probes from hanging.
func (db *PostgresDB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close shuts the pool down. Safe to call multiple times.
func (db *PostgresDB) Close() error {
	if db.Pool == nil {
		return nil
	}

	db.Pool.Close()
	db.Pool = nil

	logger.Info("database connection pool closed", nil)
	return nil
}

// PoolStats is a snapshot of connection pool statistics for
// monitoring and performance tuning.
type PoolStats struct {
	AcquireCount            int64
	AcquireDuration         time.Duration
	AcquiredConns           int32
	CanceledAcquireCount    int64
	ConstructingConns       int32
	EmptyAcquireCount       int64
	IdleConns               int32
	MaxConns                int32
	TotalConns              int32
	NewConnsCount           int64
	MaxLifetimeDestroyCount int64
	MaxIdleDestroyCount     int64
}

// Stats returns a consistent snapshot of the pool statistics.
func (db *PostgresDB) Stats() (*PoolStats, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	rawStats := db.Pool.Stat()

	return &PoolStats{
		AcquiredConns:     rawStats.AcquiredConns(),
		ConstructingConns: rawStats.ConstructingConns(),
		IdleConns:         rawStats.IdleConns(),
		TotalConns:        rawStats.TotalConns(),
		MaxConns:          rawStats.MaxConns(),

		AcquireCount:         rawStats.AcquireCount(),
		AcquireDuration:      rawStats.AcquireDuration(),
		CanceledAcquireCount: rawStats.CanceledAcquireCount(),
		EmptyAcquireCount:    rawStats.EmptyAcquireCount(),
		NewConnsCount:        rawStats.NewConnsCount(),

		MaxLifetimeDestroyCount: rawStats.MaxLifetimeDestroyCount(),
		MaxIdleDestroyCount:     rawStats.MaxIdleDestroyCount(),
	}, nil
}

func calculateAvgDuration(totalDuration time.Duration, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return totalDuration / time.Duration(count)
}

// TxOptions configures transaction behavior.
type TxOptions struct {
	IsoLevel       TxIsoLevel
	AccessMode     TxAccessMode
	DeferrableMode TxDeferrableMode
}

// TxIsoLevel is the transaction isolation level.
type TxIsoLevel string

const (
	ReadCommitted  TxIsoLevel = "read committed"
	RepeatableRead TxIsoLevel = "repeatable read"
	Serializable   TxIsoLevel = "serializable"
)

type TxAccessMode string

const (
	ReadWrite TxAccessMode = "read write"
	ReadOnly  TxAccessMode = "read only"
)

type TxDeferrableMode string

const (
	NotDeferrable TxDeferrableMode = "not deferrable"
	Deferrable    TxDeferrableMode = "deferrable"
)

// BeginTx starts a transaction with the given options. The caller must
// commit or roll back, otherwise locks and a pool connection are held.
func (db *PostgresDB) BeginTx(ctx context.Context, opts *TxOptions) (pgx.Tx, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	pgxOpts := pgx.TxOptions{}

	if opts != nil {
		switch opts.IsoLevel {
		case RepeatableRead:
			pgxOpts.IsoLevel = pgx.RepeatableRead
		case Serializable:
			pgxOpts.IsoLevel = pgx.Serializable
		default:
			pgxOpts.IsoLevel = pgx.ReadCommitted
		}

		switch opts.AccessMode {
		case ReadOnly:
			pgxOpts.AccessMode = pgx.ReadOnly
		default:
			pgxOpts.AccessMode = pgx.ReadWrite
		}

		switch opts.DeferrableMode {
		case Deferrable:
			pgxOpts.DeferrableMode = pgx.Deferrable
		default:
			pgxOpts.DeferrableMode = pgx.NotDeferrable
		}
	}

	tx, err := db.Pool.BeginTx(ctx, pgxOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return tx, nil
}

// ExecuteInTransaction runs fn inside a transaction with the given
// options, committing on success and rolling back on error.
func (db *PostgresDB) ExecuteInTransaction(
	ctx context.Context,
	opts *TxOptions,
	fn func(pgx.Tx) error,
) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	// Rollback after commit returns ErrTxClosed, which is expected.
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			if err != pgx.ErrTxClosed {
				logger.Error("transaction rollback error", err)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return fmt.Errorf("transaction function failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}

	return nil
}

// MonitorPoolHealth periodically inspects pool statistics and logs
// warnings on exhaustion or slow acquires. Run in its own goroutine.
func (db *PostgresDB) MonitorPoolHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := db.Stats()
			if err != nil {
				logger.Error("failed to get pool stats", err)
				continue
			}

			utilizationPct := float64(stats.AcquiredConns) / float64(stats.MaxConns) * 100
			if utilizationPct > 80 {
				logger.Warn("high pool utilization", map[string]interface{}{
					"utilization_pct": utilizationPct,
					"acquired":        stats.AcquiredConns,
					"max":             stats.MaxConns,
				})
			}

			avgAcquireDuration := calculateAvgDuration(stats.AcquireDuration, stats.AcquireCount)
			if avgAcquireDuration > 100*time.Millisecond {
				logger.Warn("high connection acquire latency", map[string]interface{}{
					"avg_acquire": avgAcquireDuration.String(),
				})
			}

			if stats.CanceledAcquireCount > 0 {
				cancelRate := float64(stats.CanceledAcquireCount) /
					float64(stats.AcquireCount) * 100
				if cancelRate > 5 {
					logger.Warn("high acquire cancel rate", map[string]interface{}{
						"cancel_rate_pct": cancelRate,
					})
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
