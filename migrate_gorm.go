// migrate_gorm.go - Run this file to test GORM migrations
// Usage: go run migrate_gorm.go

//go:build ignore

package main

import (
	"log"

	"github.com/supportdesk/topup-api/config"
	"github.com/supportdesk/topup-api/database"
)

func main() {
	log.Println("=== GORM Migration Test ===")

	// Load environment variables
	if err := config.LoadENV(); err != nil {
		log.Fatal("Failed to load environment variables:", err)
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatal("Failed to read config:", err)
	}

	// Initialize GORM connection
	store, err := database.StartGORM(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer store.Close()

	// Run migrations
	if err := store.Init(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Health check
	if err := store.HealthCheck(); err != nil {
		log.Fatal("Database health check failed:", err)
	}

	log.Println("✅ All migrations completed successfully!")
	log.Println("✅ Database connection healthy!")
	log.Println("\nYou can now check your PostgreSQL database to see the new tables:")
	log.Println("  - chat_users")
	log.Println("  - chat_messages")
	log.Println("  - tickets")
	log.Println("  - ticket_messages")
	log.Println("  - payment_requests")
	log.Println("  - visitors")
	log.Println("  - presence_pings")
	log.Println("  - notification_logs")
	log.Println("  - cron_job_logs")
}
