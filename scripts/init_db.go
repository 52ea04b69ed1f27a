package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"bel-energy-engine/internal/services/database"
)

func main() {
	fmt.Println("=== Database Initialization Script ===")
	fmt.Println()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Could not load .env file: %v\n", err)
	}

	// Get database URL
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Println("DATABASE_URL environment variable not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// First connect to default 'postgres' database to create our database
	postgresURL := strings.Replace(databaseURL, "/bel_energy", "/postgres", 1)
	fmt.Println("Connecting to PostgreSQL server...")

	adminConn, err := pgx.Connect(ctx, postgresURL)
	if err != nil {
		fmt.Printf("Failed to connect to PostgreSQL: %v\n", err)
		os.Exit(1)
	}

	// Check if database exists
	var exists bool
	err = adminConn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = 'bel_energy')").Scan(&exists)
	if err != nil {
		fmt.Printf("Failed to check database existence: %v\n", err)
		adminConn.Close(ctx)
		os.Exit(1)
	}

	if !exists {
		fmt.Println("Creating 'bel_energy' database...")
		_, err = adminConn.Exec(ctx, "CREATE DATABASE bel_energy")
		if err != nil {
			fmt.Printf("Failed to create database: %v\n", err)
			adminConn.Close(ctx)
			os.Exit(1)
		}
		fmt.Println("Database 'bel_energy' created!")
	} else {
		fmt.Println("Database 'bel_energy' already exists")
	}
	adminConn.Close(ctx)

	// Now connect to the bel_energy database through the application's pool
	fmt.Println("Connecting to bel_energy database...")
	db, err := database.NewFromURL(databaseURL)
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Connected to database successfully!")
	fmt.Println()

	// Read SQL file
	fmt.Println("Reading SQL schema file...")
	sqlBytes, err := os.ReadFile("scripts/init_database.sql")
	if err != nil {
		fmt.Printf("Failed to read schema file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Applying schema...")
	if _, err := db.ExecContext(ctx, string(sqlBytes)); err != nil {
		fmt.Printf("Failed to apply schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Schema applied successfully!")
}
