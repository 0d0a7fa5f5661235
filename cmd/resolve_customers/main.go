package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"customerserver/customers"
	"customerserver/database"
	"customerserver/exporter"
	"customerserver/importer"
	"customerserver/internal/config"
)

func main() {
	filePath := flag.String("file", "", "Orders export to import (.csv, .xlsx, .json)")
	storeID := flag.String("store", "", "Store ID the orders belong to")
	dbPath := flag.String("db", "", "Path to the orders database (DATABASE_PATH by default)")
	encoding := flag.String("encoding", "", "CSV encoding: utf-8, windows-1252, iso-8859-1, windows-1251")
	delimiter := flag.String("delimiter", ",", "CSV field delimiter")
	sheet := flag.String("sheet", "", "Excel sheet with orders (first sheet by default)")
	exportPath := flag.String("export", "", "Write resolved customers to this file")
	format := flag.String("format", "", "Export format: csv, json, xlsx (taken from -export extension by default)")
	dryRun := flag.Bool("dry-run", false, "Resolve without writing orders or customers to the database")
	allStores := flag.Bool("all-stores", false, "Rebuild customers of every store in the database")
	threshold := flag.Float64("threshold", 0, "Merge threshold override (MERGE_THRESHOLD by default)")
	country := flag.String("country", "", "Default country code override, e.g. +221")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	if *threshold > 0 {
		cfg.Resolution.MergeThreshold = *threshold
	}
	if *country != "" {
		cfg.Resolution.DefaultCountryCode = *country
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resolver := customers.NewResolver(cfg.ResolverConfig())

	if *allStores {
		if *filePath != "" || *exportPath != "" {
			log.Fatalf("-all-stores cannot be combined with -file or -export")
		}
		db := openDB(cfg)
		defer db.Close()
		rebuildAllStores(ctx, db, resolver, cfg, *dryRun)
		return
	}

	if strings.TrimSpace(*storeID) == "" {
		log.Fatalf("-store is required (or use -all-stores)")
	}

	var (
		db     *database.OrdersDB
		orders []customers.OrderRecord
	)

	if *filePath != "" {
		opts := importer.Options{Encoding: *encoding, Sheet: *sheet}
		if *delimiter != "" {
			opts.Comma, _ = utf8.DecodeRuneInString(*delimiter)
		}

		result, err := importer.ParseOrdersFile(*filePath, opts)
		if err != nil {
			log.Fatalf("failed to parse %s: %v", *filePath, err)
		}
		printImportSummary(*filePath, result)
		orders = result.Orders
	}

	// с -dry-run и файлом база не нужна
	if !*dryRun || *filePath == "" {
		db = openDB(cfg)
		defer db.Close()
	}

	if db != nil && !*dryRun && len(orders) > 0 {
		inserted, err := db.InsertOrders(ctx, *storeID, orders)
		if err != nil {
			log.Fatalf("failed to store orders: %v", err)
		}
		log.Printf("Orders stored: %d inserted, %d updated, %d with generated id", inserted.Inserted, inserted.Updated, inserted.GeneratedIDs)
	}

	if db != nil && (*filePath == "" || !*dryRun) {
		orders, err = db.GetOrdersSnapshot(ctx, *storeID)
		if err != nil {
			log.Fatalf("failed to load orders snapshot: %v", err)
		}
	}

	resolveCtx, cancel := context.WithTimeout(ctx, cfg.Resolution.Timeout)
	defer cancel()

	res, err := resolver.Resolve(resolveCtx, orders)
	if err != nil {
		log.Fatalf("failed to resolve customers: %v", err)
	}

	if !*dryRun {
		if err := db.SaveResolution(ctx, *storeID, cfg.Resolution.MergeThreshold, res); err != nil {
			log.Fatalf("failed to save resolution: %v", err)
		}
	}

	printResolutionSummary(*storeID, cfg.Resolution.MergeThreshold, *dryRun, res)

	if *exportPath != "" {
		exportCustomers(*exportPath, *format, res.Customers)
	}
}

func openDB(cfg *config.Config) *database.OrdersDB {
	db, err := database.NewOrdersDBWithConfig(cfg.DatabasePath, cfg.DBConfig())
	if err != nil {
		log.Fatalf("failed to open orders database %s: %v", cfg.DatabasePath, err)
	}
	return db
}

func rebuildAllStores(ctx context.Context, db *database.OrdersDB, resolver *customers.Resolver, cfg *config.Config, dryRun bool) {
	stores, err := db.ListStores(ctx)
	if err != nil {
		log.Fatalf("failed to list stores: %v", err)
	}
	if len(stores) == 0 {
		log.Println("No stores with orders found")
		return
	}

	snapshots := make(map[string][]customers.OrderRecord, len(stores))
	for _, id := range stores {
		orders, err := db.GetOrdersSnapshot(ctx, id)
		if err != nil {
			log.Fatalf("failed to load orders of store %s: %v", id, err)
		}
		snapshots[id] = orders
	}

	start := time.Now()
	results, err := resolver.ResolveStores(ctx, snapshots, cfg.Resolution.MaxConcurrentStores)
	if err != nil {
		log.Fatalf("failed to resolve customers: %v", err)
	}

	sort.Strings(stores)
	for _, id := range stores {
		res := results[id]
		if !dryRun {
			if err := db.SaveResolution(ctx, id, cfg.Resolution.MergeThreshold, res); err != nil {
				log.Fatalf("failed to save resolution of store %s: %v", id, err)
			}
		}
		printResolutionSummary(id, cfg.Resolution.MergeThreshold, dryRun, res)
	}
	fmt.Printf("\nStores rebuilt: %d in %s\n", len(stores), time.Since(start).Round(time.Millisecond))
}

func printImportSummary(path string, result *importer.ImportResult) {
	fmt.Println("\n--- Orders Import ---")
	fmt.Printf("File: %s\n", path)
	fmt.Printf("Rows: %d\n", result.Total)
	fmt.Printf("Imported: %d\n", result.Imported)
	fmt.Printf("Errors: %d\n", len(result.Errors))
	for i, msg := range result.Errors {
		if i == 10 {
			fmt.Printf("  ... and %d more\n", len(result.Errors)-i)
			break
		}
		fmt.Printf("  %s\n", msg)
	}
}

func printResolutionSummary(storeID string, threshold float64, dryRun bool, res *customers.Resolution) {
	stats := res.Stats
	fmt.Println("\n--- Customer Resolution ---")
	fmt.Printf("Store: %s\n", storeID)
	fmt.Printf("Dry Run: %t\n", dryRun)
	fmt.Printf("Merge Threshold: %.2f\n", threshold)
	fmt.Printf("Input Orders: %d\n", stats.InputOrders)
	fmt.Printf("Aggregated Orders: %d\n", stats.AggregatedOrders)
	fmt.Printf(" - Skipped without customer info: %d\n", stats.SkippedNoCustomerInfo)
	fmt.Printf(" - Skipped invalid phone: %d\n", stats.SkippedInvalidPhone)
	fmt.Printf(" - Skipped duplicate order id: %d\n", stats.SkippedDuplicateID)
	fmt.Printf("Phone Groups: %d\n", stats.Aggregates)
	fmt.Printf("Customers: %d\n", stats.Customers)
	fmt.Printf("Merged Groups: %d\n", stats.MergedAggregates)
	fmt.Printf("Duration: %s\n", stats.Duration.Round(time.Millisecond))
}

func exportCustomers(path, rawFormat string, list []*customers.CustomerAggregate) {
	if rawFormat == "" {
		rawFormat = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	format, err := exporter.ParseFormat(rawFormat)
	if err != nil {
		log.Fatalf("invalid export format: %v", err)
	}
	if err := exporter.ExportToFile(path, format, list); err != nil {
		log.Fatalf("failed to export customers: %v", err)
	}
	log.Printf("Customers exported to %s (%s, %d rows)", path, format, len(list))
}
