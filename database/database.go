package database

import (
	"context"
	"database/sql"
	"fmt"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// InitDB opens (and creates) the SQLite database at dbPath and applies the
// given schema statements inside a single transaction.
func InitDB(dbPath string, schema ...string) (*sql.DB, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ping the database to verify the connection.
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db, schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("Successfully connected to the database at", dbPath)
	return db, nil
}

func migrate(db *sql.DB, schema []string) error {
	if len(schema) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

// withRetry runs op up to attempts times, sleeping base*2^(n-1) between tries.
// Cancellation is never retried.
func withRetry(ctx context.Context, attempts int, base time.Duration, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0

	n := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		n++
		err := op()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			log.Printf("[DB] attempt %d/%d failed: %v; retrying in %s", n, attempts, err, delay)
		}),
	)
	return err
}
