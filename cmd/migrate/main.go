package main

import (
	"log"

	"ai-medchat-be/internal/config"
	"ai-medchat-be/internal/model"
	"ai-medchat-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Installing pgvector and migrating index_passages...")
	if err := database.EnsureVectorSchema(db, &model.IndexPassage{}); err != nil {
		log.Fatalf("Error: %v", err)
	}

	log.Println("✅ Success: Database migration completed.")
}
