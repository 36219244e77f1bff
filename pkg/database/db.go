package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type Config struct {
	DSN      string
	MaxConns int
	Timeout  time.Duration
}

// ConfigFromEnv reads DB config from environment variables.
// When DATABASE_URL is unset the store defaults to a local SQLite file
// so the service runs without any external infrastructure.
func ConfigFromEnv() Config {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "./library.db"
	}
	return Config{DSN: dsn, MaxConns: 5, Timeout: 5 * time.Second}
}

// Connect opens a *sqlx.DB and verifies connectivity with a ping.
// The driver is picked from the DSN: postgres:// URLs use lib/pq,
// anything else is treated as a SQLite file path.
func Connect(cfg Config) (*sqlx.DB, error) {
	driver, dsn, err := resolveDriver(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", dsn, nil
	}
	// SQLite path: ensure the parent directory exists so first-run succeeds.
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", "", fmt.Errorf("create db dir: %w", err)
		}
	}
	return "sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dsn), nil
}
