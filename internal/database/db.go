// internal/database/db.go
package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// DB is the shared pool. While nil, finished rooms are not recorded.
var DB *pgxpool.Pool

//go:embed schema.sql
var schema string

// ConnectDB opens the pool and verifies it with a ping.
func ConnectDB(ctx context.Context, connStr string) error {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("db ping error: %w", err)
	}

	DB = pool
	log.WithFields(log.Fields{
		"host":     config.ConnConfig.Host,
		"database": config.ConnConfig.Database,
	}).Info("connected to database")
	return nil
}

// EnsureSchema creates the result and history tables if they do not exist.
func EnsureSchema(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	if _, err := DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

// beginTxFunc runs f in a transaction on the shared pool.
func beginTxFunc(ctx context.Context, f func(tx pgx.Tx) error) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, f)
}
