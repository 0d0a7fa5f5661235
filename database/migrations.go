package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

const migrationsTableName = "schema_migrations"

// migration именованный шаг схемы, применяется один раз
type migration struct {
	name  string
	apply func(ctx context.Context, db *sql.DB) error
}

// ordersMigrations шаги схемы хранилища заказов в порядке применения
var ordersMigrations = []migration{
	{name: "001_store_orders", apply: execStatements(`
		CREATE TABLE IF NOT EXISTS store_orders (
			store_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT 0,
			total_amount REAL NOT NULL DEFAULT 0,
			has_customer_info INTEGER NOT NULL DEFAULT 0,
			full_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (store_id, order_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_store_orders_store ON store_orders(store_id)`,
	)},
	{name: "002_customer_resolutions", apply: execStatements(`
		CREATE TABLE IF NOT EXISTS customer_resolutions (
			store_id TEXT PRIMARY KEY,
			resolved_at TIMESTAMP NOT NULL,
			merge_threshold REAL NOT NULL,
			input_orders INTEGER NOT NULL,
			aggregated_orders INTEGER NOT NULL,
			aggregates INTEGER NOT NULL,
			customers INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			stats_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS resolved_customers (
			store_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			customer_id TEXT NOT NULL,
			canonical_phone TEXT NOT NULL,
			display_name TEXT NOT NULL,
			total_orders INTEGER NOT NULL,
			total_spent REAL NOT NULL,
			data_json TEXT NOT NULL,
			PRIMARY KEY (store_id, position),
			FOREIGN KEY (store_id) REFERENCES customer_resolutions(store_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resolved_customers_phone ON resolved_customers(store_id, canonical_phone)`,
	)},
}

// execStatements возвращает миграцию, выполняющую запросы по порядку
func execStatements(statements ...string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		for _, stmt := range statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// ensureMigrationTable создает таблицу schema_migrations при необходимости.
func ensureMigrationTable(ctx context.Context, db *sql.DB) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, migrationsTableName)

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}
	return nil
}

// isMigrationApplied проверяет, была ли уже применена миграция.
func isMigrationApplied(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var appliedAt sql.NullTime
	query := fmt.Sprintf(`SELECT applied_at FROM %s WHERE name = ?`, migrationsTableName)
	err := db.QueryRowContext(ctx, query, name).Scan(&appliedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}

	return appliedAt.Valid, nil
}

// runMigrations применяет все еще не примененные миграции
func runMigrations(ctx context.Context, db *sql.DB, migrations []migration) error {
	if err := ensureMigrationTable(ctx, db); err != nil {
		return err
	}

	for _, m := range migrations {
		applied, err := isMigrationApplied(ctx, db, m.name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		if err := m.apply(ctx, db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}

		query := fmt.Sprintf(`INSERT OR REPLACE INTO %s(name, applied_at) VALUES(?, ?)`, migrationsTableName)
		if _, err := db.ExecContext(ctx, query, m.name, time.Now()); err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.name, err)
		}
		log.Printf("[Migrations] %s applied successfully", m.name)
	}
	return nil
}
