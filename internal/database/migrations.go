package database

import (
	"database/sql"
	_ "embed"
	"log"
)

//go:embed schema.sql
var schema string

// RunMigrations applies the idempotent schema. Every statement uses IF NOT EXISTS.
func RunMigrations(db *sql.DB) error {
	log.Println("Running database migrations...")

	if _, err := db.Exec(schema); err != nil {
		log.Printf("Failed to apply schema: %v", err)
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}
