//go:build ignore
// +build ignore

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"customerserver/customers"
)

// GoldenCase размеченный вручную сценарий: заказы и ожидаемое разбиение на клиентов
type GoldenCase struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Orders      []customers.OrderRecord `json:"orders"`
	// ExpectedCustomers списки order_id, по одному на клиента
	ExpectedCustomers [][]string `json:"expected_customers"`
}

// GoldenDataset структура golden dataset
type GoldenDataset struct {
	Version   string       `json:"version"`
	Timestamp string       `json:"timestamp"`
	Cases     []GoldenCase `json:"cases"`
}

// CaseResult фактический результат расчета по сценарию
type CaseResult struct {
	Name      string     `json:"name"`
	Customers [][]string `json:"customers"`
	Matches   bool       `json:"matches"`
}

// ExpectedResult результат прогона golden dataset
type ExpectedResult struct {
	Version    string       `json:"version"`
	Timestamp  string       `json:"timestamp"`
	Mismatches int          `json:"mismatches"`
	Results    []CaseResult `json:"results"`
}

func order(id string, at int64, amount float64, name, phone string) customers.OrderRecord {
	return customers.OrderRecord{
		OrderID:      id,
		CreatedAt:    at,
		TotalAmount:  amount,
		CustomerInfo: &customers.CustomerInfo{FullName: name, Phone: phone},
	}
}

func goldenCases() []GoldenCase {
	return []GoldenCase{
		{
			Name:        "A_phone_formats",
			Description: "Один номер в местном, международном и 00-формате",
			Orders: []customers.OrderRecord{
				order("A1", 1000, 5000, "Awa Diop", "070012345"),
				order("A2", 2000, 7500, "AWA DIOP", "+223 70 01 23 45"),
				order("A3", 3000, 2500, "awa diop", "00223-70-01-23-45"),
			},
			ExpectedCustomers: [][]string{{"A1", "A2", "A3"}},
		},
		{
			Name:        "B_same_name_other_phone",
			Description: "Однофамильцы с разными номерами остаются разными клиентами",
			Orders: []customers.OrderRecord{
				order("B1", 1000, 1000, "Moussa Traore", "071111111"),
				order("B2", 2000, 1000, "Moussa Traore", "072222222"),
			},
			ExpectedCustomers: [][]string{{"B1"}, {"B2"}},
		},
		{
			Name:        "C_skipped_orders",
			Description: "Заказы без контактов и с пустым телефоном не порождают клиентов",
			Orders: []customers.OrderRecord{
				{OrderID: "C1", CreatedAt: 1000, TotalAmount: 300},
				order("C2", 2000, 300, "Fatou Sow", "---"),
				order("C3", 3000, 300, "Fatou Sow", "076543210"),
			},
			ExpectedCustomers: [][]string{{"C3"}},
		},
		{
			Name:        "D_name_variations",
			Description: "Разные написания имени при одном номере",
			Orders: []customers.OrderRecord{
				order("D1", 1000, 900, "Ibrahim Keita", "+22379000001"),
				order("D2", 2000, 900, "Ibrahim", "079000001"),
				order("D3", 3000, 900, "  Ibrahim  KEITA ", "0022379000001"),
			},
			ExpectedCustomers: [][]string{{"D1", "D2", "D3"}},
		},
		{
			Name:        "E_multiple_customers",
			Description: "Несколько клиентов вперемешку",
			Orders: []customers.OrderRecord{
				order("E1", 1000, 100, "Aminata Coulibaly", "065000001"),
				order("E2", 2000, 100, "Seydou Diarra", "065000002"),
				order("E3", 3000, 100, "Aminata Coulibaly", "+223 65 00 00 01"),
				order("E4", 4000, 100, "Seydou", "0022365000002"),
			},
			ExpectedCustomers: [][]string{{"E1", "E3"}, {"E2", "E4"}},
		},
		{
			Name:        "F_duplicate_order_ids",
			Description: "Повтор order_id учитывается один раз",
			Orders: []customers.OrderRecord{
				order("F1", 1000, 100, "Oumar Sidibe", "066000001"),
				order("F1", 1000, 100, "Oumar Sidibe", "066000001"),
				order("F2", 2000, 100, "Oumar Sidibe", "066000001"),
			},
			ExpectedCustomers: [][]string{{"F1", "F2"}},
		},
	}
}

// groupKey каноничное представление разбиения для сравнения без учета порядка
func groupKey(groups [][]string) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		ids := append([]string(nil), g...)
		sort.Strings(ids)
		parts[i] = strings.Join(ids, ",")
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

func runCase(ctx context.Context, resolver *customers.Resolver, c GoldenCase) (CaseResult, error) {
	res, err := resolver.Resolve(ctx, c.Orders)
	if err != nil {
		return CaseResult{}, err
	}
	groups := make([][]string, len(res.Customers))
	for i, cust := range res.Customers {
		groups[i] = cust.OrderIDs
	}
	return CaseResult{
		Name:      c.Name,
		Customers: groups,
		Matches:   groupKey(groups) == groupKey(c.ExpectedCustomers),
	}, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func main() {
	dir := filepath.Join("testdata", "golden")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("Failed to create golden directory: %v", err)
	}

	dataset := GoldenDataset{
		Version:   "1.0.0",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Cases:     goldenCases(),
	}
	datasetPath := filepath.Join(dir, "golden_dataset.json")
	if err := writeJSON(datasetPath, dataset); err != nil {
		log.Fatalf("Failed to write golden dataset: %v", err)
	}
	fmt.Printf("Golden dataset with %d cases saved to %s\n", len(dataset.Cases), datasetPath)

	resolver := customers.NewResolver(customers.DefaultConfig())
	expected := ExpectedResult{Version: dataset.Version, Timestamp: dataset.Timestamp}
	for _, c := range dataset.Cases {
		result, err := runCase(context.Background(), resolver, c)
		if err != nil {
			log.Fatalf("Case %s failed: %v", c.Name, err)
		}
		if !result.Matches {
			expected.Mismatches++
			fmt.Printf("MISMATCH %s: expected %s, got %s\n", c.Name, groupKey(c.ExpectedCustomers), groupKey(result.Customers))
		}
		expected.Results = append(expected.Results, result)
	}

	expectedPath := filepath.Join(dir, "expected_result.json")
	if err := writeJSON(expectedPath, expected); err != nil {
		log.Fatalf("Failed to write expected results: %v", err)
	}
	fmt.Printf("Expected results saved to %s (%d mismatches)\n", expectedPath, expected.Mismatches)
}
