// internal/common/database/postgres.go
// PostgreSQL holds the durable entities: users, conversations,
// messages, group rosters, chat requests, settings and the audit log.

package database

import (
    "fmt"
    "time"

    "github.com/jmoiron/sqlx"
    _ "github.com/lib/pq" // PostgreSQL driver
)

// NewPostgresDBFromURL opens a pooled connection from a postgres:// URL
// and verifies it with a ping
func NewPostgresDBFromURL(databaseURL string) (*sqlx.DB, error) {
    db, err := sqlx.Open("postgres", databaseURL)
    if err != nil {
        return nil, fmt.Errorf("failed to open database: %w", err)
    }

    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(5)
    db.SetConnMaxLifetime(5 * time.Minute)

    if err := db.Ping(); err != nil {
        return nil, fmt.Errorf("failed to ping database: %w", err)
    }

    return db, nil
}
