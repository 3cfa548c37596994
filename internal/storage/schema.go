package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shopsense-ai/shopsense/libs/recommender/internal/config"
)

// Open opens a database connection for the configured driver.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.SQLite.Path
		if cfg.SQLite.JournalMode != "" {
			dsn = fmt.Sprintf("%s?_journal_mode=%s", dsn, cfg.SQLite.JournalMode)
		}
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if cfg.SQLite.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.SQLite.MaxOpenConns)
		}
		return db, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.Postgres.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		}
		if cfg.Postgres.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		}
		if cfg.Postgres.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// EnsureSchema creates the recommender tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string

	switch driver {
	case "sqlite", "":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS uploaded_files (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				filename TEXT NOT NULL,
				filetype TEXT,
				filepath TEXT,
				upload_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`,
			`CREATE TABLE IF NOT EXISTS products (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT,
				brand TEXT,
				category TEXT,
				price REAL,
				description TEXT,
				rating REAL,
				source_file TEXT
			);`,
			`CREATE TABLE IF NOT EXISTS kg_triples (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				subject TEXT,
				predicate TEXT,
				object TEXT,
				confidence REAL NOT NULL DEFAULT 1.0,
				source_file TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				raw TEXT
			);`,
			`CREATE INDEX IF NOT EXISTS idx_kg_triples_subject ON kg_triples(subject);`,
			`CREATE INDEX IF NOT EXISTS idx_kg_triples_predicate ON kg_triples(predicate);`,
		}
	default:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS uploaded_files (
				id SERIAL PRIMARY KEY,
				filename TEXT NOT NULL,
				filetype TEXT,
				filepath TEXT,
				upload_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`,
			`CREATE TABLE IF NOT EXISTS products (
				id SERIAL PRIMARY KEY,
				name TEXT,
				brand TEXT,
				category TEXT,
				price DOUBLE PRECISION,
				description TEXT,
				rating DOUBLE PRECISION,
				source_file TEXT
			);`,
			`CREATE TABLE IF NOT EXISTS kg_triples (
				id SERIAL PRIMARY KEY,
				subject TEXT,
				predicate TEXT,
				object TEXT,
				confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
				source_file TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				raw TEXT
			);`,
			`CREATE INDEX IF NOT EXISTS idx_kg_triples_subject ON kg_triples(subject);`,
			`CREATE INDEX IF NOT EXISTS idx_kg_triples_predicate ON kg_triples(predicate);`,
		}
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}
