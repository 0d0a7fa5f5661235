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

// GoldenCase сценарий golden dataset
type GoldenCase struct {
	Name              string                  `json:"name"`
	Description       string                  `json:"description"`
	Orders            []customers.OrderRecord `json:"orders"`
	ExpectedCustomers [][]string              `json:"expected_customers"`
}

// GoldenDataset структура golden dataset
type GoldenDataset struct {
	Version   string       `json:"version"`
	Timestamp string       `json:"timestamp"`
	Cases     []GoldenCase `json:"cases"`
}

func sortedGroups(groups [][]string) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = append([]string(nil), g...)
		sort.Strings(out[i])
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Join(out[i], ",") < strings.Join(out[j], ",")
	})
	return out
}

func sameGroups(a, b [][]string) bool {
	a, b = sortedGroups(a), sortedGroups(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.Join(a[i], ",") != strings.Join(b[i], ",") {
			return false
		}
	}
	return true
}

// main перезаписывает ожидаемые разбиения текущим поведением расчета
func main() {
	path := filepath.Join("testdata", "golden", "golden_dataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		log.Fatalf("Failed to parse golden dataset: %v", err)
	}

	resolver := customers.NewResolver(customers.DefaultConfig())
	changed := 0
	for i, c := range dataset.Cases {
		res, err := resolver.Resolve(context.Background(), c.Orders)
		if err != nil {
			log.Fatalf("Case %s failed: %v", c.Name, err)
		}
		groups := make([][]string, len(res.Customers))
		for j, cust := range res.Customers {
			groups[j] = cust.OrderIDs
		}
		if !sameGroups(groups, c.ExpectedCustomers) {
			changed++
			fmt.Printf("Updated %s: %v -> %v\n", c.Name, sortedGroups(c.ExpectedCustomers), sortedGroups(groups))
		}
		dataset.Cases[i].ExpectedCustomers = sortedGroups(groups)
	}

	dataset.Timestamp = time.Now().UTC().Format(time.RFC3339)
	out, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal golden dataset: %v", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		log.Fatalf("Failed to write golden dataset: %v", err)
	}
	fmt.Printf("Golden dataset updated: %d of %d cases changed\n", changed, len(dataset.Cases))
}
