package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Opener returns a fresh *sql.DB. Connect calls it once per attempt.
type Opener func() (*sql.DB, error)

func PostgresOpener(dsn string) Opener {
	return func() (*sql.DB, error) {
		return sql.Open("postgres", dsn)
	}
}

// ConnectWithRetry opens and pings the database up to attempts times,
// sleeping wait between failures.
func ConnectWithRetry(ctx context.Context, open Opener, attempts int, wait time.Duration, log *logger.Logger) (*sql.DB, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, attempts))

		sqldb, err := open()
		if err != nil {
			lastErr = err
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
		} else if err = sqldb.PingContext(ctx); err != nil {
			lastErr = err
			log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
			sqldb.Close()
		} else {
			return sqldb, nil
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", attempts, lastErr)
}

// Connect opens the Postgres pool described by cfg and wraps it in bun.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	sqldb, err := ConnectWithRetry(ctx, PostgresOpener(cfg.DSN), cfg.ConnectRetries, 2*time.Second, log)
	if err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.LogDatabase("CONNECT", "postgres", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}
