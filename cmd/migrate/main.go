package main

import (
	"log"

	"nous-core/internal/config"
	"nous-core/internal/model"
	"nous-core/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDB(database.GormConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.Connection,
		Debug:  cfg.Database.Debug,
	})
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. Pre-Migration: Extensions (postgres only)
	if cfg.Database.Driver == database.DriverPostgres || cfg.Database.Driver == "" {
		log.Println("Step 1: Setting up Extensions...")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
			log.Printf("Warning: pgcrypto extension: %v", err)
		}
	}

	// 4. AutoMigrate the lesson archive
	log.Println("Step 2: Running AutoMigrate for the lesson archive...")

	models := []interface{}{
		&model.Course{},
		&model.Lesson{},
		&model.Media{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Migration completed")
}
