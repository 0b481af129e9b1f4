package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/sundayezeilo/tinylink/internal/config"
)

// SQLiteDriver picks the database/sql driver for a SQLite URL.
// Remote Turso databases go through libsql, everything else through modernc.
func SQLiteDriver(dbURL string) string {
	if strings.HasPrefix(dbURL, "libsql://") || strings.HasPrefix(dbURL, "wss://") {
		return "libsql"
	}
	return "sqlite"
}

// OpenSQLite opens and pings a SQLite database.
func OpenSQLite(ctx context.Context, dbURL string) (*sql.DB, error) {
	driver := SQLiteDriver(dbURL)

	db, err := sql.Open(driver, dbURL)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// A local file or memory database takes one writer at a time.
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	return db, nil
}

// MigrateSQLite applies the embedded schema.
func MigrateSQLite(ctx context.Context, db *sql.DB) error {
	ddl, err := Schema(config.DriverSQLite)
	if err != nil {
		return err
	}
	for _, stmt := range statements(ddl) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}
