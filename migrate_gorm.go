// migrate_gorm.go - Run this file to apply the schema without starting the API
// Usage: go run migrate_gorm.go

//go:build ignore

package main

import (
	"log"

	"github.com/sahilchouksey/fee-management/config"
	"github.com/sahilchouksey/fee-management/database"
)

func main() {
	log.Println("=== GORM Migration ===")

	if err := config.LoadENV(); err != nil {
		log.Fatal("Failed to load environment variables:", err)
	}

	env, err := config.Get()
	if err != nil {
		log.Fatal("Failed to read configuration:", err)
	}

	store, err := database.StartGORM(env)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if err := store.HealthCheck(); err != nil {
		log.Fatal("Database health check failed:", err)
	}

	// Views live on the reporting connection
	reports, err := database.StartReportStore(env)
	if err != nil {
		log.Fatal("Failed to open reporting connection:", err)
	}
	defer reports.Close()

	if err := reports.Init(); err != nil {
		log.Fatal("Failed to create reporting views:", err)
	}

	log.Println("All migrations completed successfully")
	log.Println("Tables:")
	for _, m := range database.Models() {
		log.Printf("  - %T", m)
	}
	log.Println("Views:")
	log.Println("  - student_fee_ledger")
	log.Println("  - payment_daily_totals")
}
