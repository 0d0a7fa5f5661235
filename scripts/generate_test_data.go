//go:build ignore
// +build ignore

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"customerserver/customers"
	"customerserver/database"
)

// fakeCustomer реальный клиент, от имени которого генерируются заказы
type fakeCustomer struct {
	name    string
	email   string
	local   string // 8 цифр номера без кода страны
	address string
}

func main() {
	gofakeit.Seed(0)

	sizes := []struct {
		name      string
		customers int
		orders    int
	}{
		{"1K", 250, 1000},
		{"10K", 2500, 10000},
		{"50K", 12000, 50000},
	}

	dataDir := filepath.Join("testdata", "orders")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	for _, size := range sizes {
		fmt.Printf("Generating %s orders...\n", size.name)

		orders := generateOrders(size.customers, size.orders)
		filename := filepath.Join(dataDir, fmt.Sprintf("orders_%s.csv", size.name))
		if err := writeOrdersCSV(filename, orders); err != nil {
			log.Fatalf("Failed to write %s: %v", filename, err)
		}

		fmt.Printf("Generated %d orders of %d customers in %s\n", size.orders, size.customers, filename)
	}

	fmt.Println("\nGenerating SQLite database...")
	generateSQLiteDB(dataDir)
}

func newCustomerPool(n int) []fakeCustomer {
	pool := make([]fakeCustomer, n)
	for i := range pool {
		name := gofakeit.FirstName() + " " + gofakeit.LastName()
		pool[i] = fakeCustomer{
			name:    name,
			email:   strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@" + gofakeit.DomainName(),
			local:   gofakeit.Numerify("7#######"),
			address: gofakeit.Street() + ", " + gofakeit.City(),
		}
	}
	return pool
}

// generateOrders генерирует снимок заказов с шумом, типичным для ручного ввода продавцом
func generateOrders(customerCount, orderCount int) []customers.OrderRecord {
	pool := newCustomerPool(customerCount)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	orders := make([]customers.OrderRecord, 0, orderCount)
	for i := 0; i < orderCount; i++ {
		c := pool[gofakeit.IntRange(0, customerCount-1)]
		order := customers.OrderRecord{
			OrderID:     fmt.Sprintf("ORD-%06d", i+1),
			CreatedAt:   start.Add(time.Duration(gofakeit.IntRange(0, 365*24*60)) * time.Minute).UnixMilli(),
			TotalAmount: float64(gofakeit.IntRange(5, 2500)) * 100,
		}

		switch gofakeit.IntRange(0, 24) {
		case 0:
			// заказ без контактов
		case 1:
			order.CustomerInfo = &customers.CustomerInfo{FullName: c.name, Address: c.address}
		case 2:
			// обрезанный номер, попадает в отдельную группу
			order.CustomerInfo = &customers.CustomerInfo{FullName: c.name, Phone: c.local[:3]}
		default:
			info := &customers.CustomerInfo{
				FullName: noisyName(c.name),
				Phone:    phoneVariant(c.local),
				Address:  c.address,
			}
			if gofakeit.Bool() {
				info.Email = c.email
			}
			if gofakeit.IntRange(0, 9) == 0 {
				info.Address = strings.ToUpper(c.address)
			}
			order.CustomerInfo = info
		}
		orders = append(orders, order)
	}
	return orders
}

// phoneVariant записывает номер в одном из форматов, встречающихся у продавцов
func phoneVariant(local string) string {
	switch gofakeit.IntRange(0, 4) {
	case 0:
		return "0" + local
	case 1:
		return "00223 " + local[:2] + " " + local[2:4] + " " + local[4:6] + " " + local[6:]
	case 2:
		return "+223-" + local
	case 3:
		return "(0) " + local[:4] + "-" + local[4:]
	default:
		return "+223 " + local
	}
}

// noisyName искажает имя: регистр, лишние пробелы, опечатка, только имя
func noisyName(name string) string {
	switch gofakeit.IntRange(0, 9) {
	case 0:
		return strings.ToLower(name)
	case 1:
		return "  " + strings.ToUpper(name) + " "
	case 2:
		return name + name[len(name)-1:]
	case 3:
		return strings.Fields(name)[0]
	default:
		return name
	}
}

func writeOrdersCSV(filename string, orders []customers.OrderRecord) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"order_id", "created_at", "total_amount", "full_name", "email", "phone", "address"}); err != nil {
		return err
	}
	for _, o := range orders {
		info := o.CustomerInfo
		if info == nil {
			info = &customers.CustomerInfo{}
		}
		if err := w.Write([]string{
			o.OrderID,
			time.UnixMilli(o.CreatedAt).UTC().Format("2006-01-02 15:04:05"),
			strconv.FormatFloat(o.TotalAmount, 'f', 2, 64),
			info.FullName,
			info.Email,
			info.Phone,
			info.Address,
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// generateSQLiteDB создает базу заказов с тремя магазинами
func generateSQLiteDB(dataDir string) {
	dbPath := filepath.Join(dataDir, "orders.db")
	os.Remove(dbPath)

	db, err := database.NewOrdersDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		storeID := fmt.Sprintf("store-%d", i)
		result, err := db.InsertOrders(ctx, storeID, generateOrders(100*i, 400*i))
		if err != nil {
			log.Fatalf("Failed to insert orders of %s: %v", storeID, err)
		}
		fmt.Printf("  %s: %d orders\n", storeID, result.Inserted)
	}

	fmt.Printf("Generated SQLite database in %s\n", dbPath)
}
