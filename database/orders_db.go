package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"customerserver/customers"
)

// ErrResolutionNotFound для магазина еще не сохранен расчет клиентов
var ErrResolutionNotFound = errors.New("customer resolution not found")

// DBConfig конфигурация пула подключений
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OrdersDB хранилище снимков заказов и рассчитанных клиентов магазинов
type OrdersDB struct {
	conn *sql.DB
}

// InsertResult итог загрузки заказов
type InsertResult struct {
	Inserted     int `json:"inserted"`
	Updated      int `json:"updated"`
	GeneratedIDs int `json:"generated_ids"` // заказы без номера, сохраненные под сгенерированным номером
}

// ResolutionInfo сводка сохраненного расчета
type ResolutionInfo struct {
	StoreID          string                    `json:"store_id"`
	ResolvedAt       time.Time                 `json:"resolved_at"`
	MergeThreshold   float64                   `json:"merge_threshold"`
	InputOrders      int                       `json:"input_orders"`
	AggregatedOrders int                       `json:"aggregated_orders"`
	Aggregates       int                       `json:"aggregates"`
	Customers        int                       `json:"customers"`
	DurationMs       int64                     `json:"duration_ms"`
	Stats            customers.ResolutionStats `json:"stats"`
}

// NewOrdersDB открывает базу заказов с настройками пула по умолчанию
func NewOrdersDB(dbPath string) (*OrdersDB, error) {
	return NewOrdersDBWithConfig(dbPath, DBConfig{})
}

// isInMemoryDB определяет, что путь относится к in-memory SQLite
func isInMemoryDB(dbPath string) bool {
	if dbPath == ":memory:" {
		return true
	}

	// Формат file:memdb?mode=memory&cache=shared также хранит БД в памяти
	return strings.HasPrefix(dbPath, "file:") && strings.Contains(dbPath, "mode=memory")
}

// NewOrdersDBWithConfig открывает базу заказов и применяет миграции
func NewOrdersDBWithConfig(dbPath string, config DBConfig) (*OrdersDB, error) {
	// Для in-memory SQLite требуется ровно одно соединение,
	// иначе каждое новое соединение получит пустую БД без таблиц.
	if isInMemoryDB(dbPath) {
		config.MaxOpenConns = 1
		config.MaxIdleConns = 1
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open orders database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		// SQLite плохо справляется с большим количеством одновременных соединений
		conn.SetMaxOpenConns(10)
	}
	if config.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		conn.SetMaxIdleConns(3)
	}
	if config.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping orders database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if !isInMemoryDB(dbPath) {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			log.Printf("[OrdersDB] Warning: Failed to enable WAL mode: %v", err)
		}
	}

	if err := runMigrations(context.Background(), conn, ordersMigrations); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize orders schema: %w", err)
	}

	return &OrdersDB{conn: conn}, nil
}

// Close закрывает подключение
func (db *OrdersDB) Close() error {
	return db.conn.Close()
}

// Ping проверяет подключение к базе данных
func (db *OrdersDB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// GetDB возвращает указатель на sql.DB для прямого доступа
func (db *OrdersDB) GetDB() *sql.DB {
	return db.conn
}

// InsertOrders добавляет заказы в снимок магазина. Заказ с уже известным номером
// перезаписывается, заказы без номера пропускаются.
func (db *OrdersDB) InsertOrders(ctx context.Context, storeID string, orders []customers.OrderRecord) (InsertResult, error) {
	var result InsertResult
	if strings.TrimSpace(storeID) == "" {
		return result, fmt.Errorf("store id is required")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existsStmt, err := tx.PrepareContext(ctx, `SELECT 1 FROM store_orders WHERE store_id = ? AND order_id = ?`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare exists statement: %w", err)
	}
	defer existsStmt.Close()

	upsertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO store_orders (store_id, order_id, created_at, total_amount,
			has_customer_info, full_name, email, phone, address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(store_id, order_id) DO UPDATE SET
			created_at = excluded.created_at,
			total_amount = excluded.total_amount,
			has_customer_info = excluded.has_customer_info,
			full_name = excluded.full_name,
			email = excluded.email,
			phone = excluded.phone,
			address = excluded.address,
			imported_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare upsert statement: %w", err)
	}
	defer upsertStmt.Close()

	for _, order := range orders {
		orderID := strings.TrimSpace(order.OrderID)
		if orderID == "" {
			orderID = "#" + uuid.NewString()
			result.GeneratedIDs++
		}

		var one int
		existed := true
		if err := existsStmt.QueryRowContext(ctx, storeID, orderID).Scan(&one); err != nil {
			if err != sql.ErrNoRows {
				return InsertResult{}, fmt.Errorf("failed to check order %s: %w", orderID, err)
			}
			existed = false
		}

		info := order.CustomerInfo
		hasInfo := info != nil
		if info == nil {
			info = &customers.CustomerInfo{}
		}

		if _, err := upsertStmt.ExecContext(ctx, storeID, orderID, order.CreatedAt, order.TotalAmount,
			hasInfo, info.FullName, info.Email, info.Phone, info.Address); err != nil {
			return InsertResult{}, fmt.Errorf("failed to save order %s: %w", orderID, err)
		}

		if existed {
			result.Updated++
		} else {
			result.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return InsertResult{}, fmt.Errorf("failed to commit orders: %w", err)
	}
	return result, nil
}

// GetOrdersSnapshot возвращает снимок заказов магазина в порядке первой загрузки
func (db *OrdersDB) GetOrdersSnapshot(ctx context.Context, storeID string) ([]customers.OrderRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT order_id, created_at, total_amount, has_customer_info, full_name, email, phone, address
		FROM store_orders
		WHERE store_id = ?
		ORDER BY rowid
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]customers.OrderRecord, 0)
	for rows.Next() {
		var order customers.OrderRecord
		var hasInfo bool
		var info customers.CustomerInfo

		if err := rows.Scan(&order.OrderID, &order.CreatedAt, &order.TotalAmount, &hasInfo,
			&info.FullName, &info.Email, &info.Phone, &info.Address); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if hasInfo {
			order.CustomerInfo = &info
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// CountOrders возвращает количество заказов в снимке магазина
func (db *OrdersDB) CountOrders(ctx context.Context, storeID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM store_orders WHERE store_id = ?`, storeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// ListStores возвращает магазины, для которых загружены заказы
func (db *OrdersDB) ListStores(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT store_id FROM store_orders ORDER BY store_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer rows.Close()

	stores := make([]string, 0)
	for rows.Next() {
		var storeID string
		if err := rows.Scan(&storeID); err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, storeID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stores: %w", err)
	}
	return stores, nil
}

// DeleteOrders удаляет снимок заказов и сохраненный расчет магазина
func (db *OrdersDB) DeleteOrders(ctx context.Context, storeID string) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM store_orders WHERE store_id = ?`, storeID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orders: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `DELETE FROM customer_resolutions WHERE store_id = ?`, storeID); err != nil {
		return 0, fmt.Errorf("failed to delete resolution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return deleted, nil
}

// SaveResolution заменяет сохраненный расчет клиентов магазина
func (db *OrdersDB) SaveResolution(ctx context.Context, storeID string, threshold float64, res *customers.Resolution) error {
	if res == nil {
		return fmt.Errorf("resolution is nil")
	}

	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal resolution stats: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Строки resolved_customers удаляются каскадно
	if _, err := tx.ExecContext(ctx, `DELETE FROM customer_resolutions WHERE store_id = ?`, storeID); err != nil {
		return fmt.Errorf("failed to delete previous resolution: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO customer_resolutions (store_id, resolved_at, merge_threshold, input_orders,
			aggregated_orders, aggregates, customers, duration_ms, stats_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, storeID, time.Now().UTC(), threshold, res.Stats.InputOrders, res.Stats.AggregatedOrders,
		res.Stats.Aggregates, len(res.Customers), res.Stats.Duration.Milliseconds(), string(statsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO resolved_customers (store_id, position, customer_id, canonical_phone,
			display_name, total_orders, total_spent, data_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare customer insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range res.Customers {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal customer %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, storeID, i, c.ID, c.CanonicalPhone, c.DisplayName,
			c.TotalOrders, c.TotalSpent, string(data)); err != nil {
			return fmt.Errorf("failed to insert customer %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit resolution: %w", err)
	}
	return nil
}

// GetResolvedCustomers возвращает клиентов из последнего сохраненного расчета
func (db *OrdersDB) GetResolvedCustomers(ctx context.Context, storeID string) ([]*customers.CustomerAggregate, error) {
	if _, err := db.GetResolutionInfo(ctx, storeID); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT data_json FROM resolved_customers
		WHERE store_id = ?
		ORDER BY position
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolved customers: %w", err)
	}
	defer rows.Close()

	result := make([]*customers.CustomerAggregate, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan resolved customer: %w", err)
		}
		var c customers.CustomerAggregate
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("failed to decode resolved customer: %w", err)
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolved customers: %w", err)
	}
	return result, nil
}

// GetResolutionInfo возвращает сводку сохраненного расчета или ErrResolutionNotFound
func (db *OrdersDB) GetResolutionInfo(ctx context.Context, storeID string) (*ResolutionInfo, error) {
	info := ResolutionInfo{StoreID: storeID}
	var statsJSON string

	err := db.conn.QueryRowContext(ctx, `
		SELECT resolved_at, merge_threshold, input_orders, aggregated_orders, aggregates,
			customers, duration_ms, stats_json
		FROM customer_resolutions WHERE store_id = ?
	`, storeID).Scan(&info.ResolvedAt, &info.MergeThreshold, &info.InputOrders, &info.AggregatedOrders,
		&info.Aggregates, &info.Customers, &info.DurationMs, &statsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store %s: %w", storeID, ErrResolutionNotFound)
		}
		return nil, fmt.Errorf("failed to get resolution info: %w", err)
	}

	if err := json.Unmarshal([]byte(statsJSON), &info.Stats); err != nil {
		return nil, fmt.Errorf("failed to decode resolution stats: %w", err)
	}
	return &info, nil
}
