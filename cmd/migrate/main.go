package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/ignite/region-insights/internal/domain"
	"github.com/ignite/region-insights/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	dir := "migrations"
	listOnly := false
	seedFile := ""
	for _, a := range os.Args[1:] {
		switch {
		case a == "--list":
			listOnly = true
		case strings.HasPrefix(a, "--seed="):
			seedFile = strings.TrimPrefix(a, "--seed=")
		default:
			dir = a
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if listOnly {
		listTables(db)
		return
	}

	files, err := migrationFiles(dir)
	if err != nil {
		log.Fatalf("read migrations dir %s: %v", dir, err)
	}

	var applied, failed int
	for _, f := range files {
		fmt.Printf("  %s ... ", f)
		skipped, err := apply(db, filepath.Join(dir, f))
		switch {
		case err != nil:
			fmt.Printf("ERROR: %v\n", err)
			failed++
		case skipped:
			fmt.Println("empty, skipped")
		default:
			fmt.Println("OK")
			applied++
		}
	}
	log.Printf("Applied %d migrations, %d failed", applied, failed)

	if seedFile != "" {
		n, err := seed(db, seedFile)
		if err != nil {
			log.Fatalf("seed %s: %v", seedFile, err)
		}
		log.Printf("Seeded %d campaign records from %s", n, seedFile)
	}

	if failed > 0 {
		os.Exit(1)
	}
	log.Println("Migrations complete")
}

// migrationFiles returns the .sql files in dir, in name order.
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// apply runs one migration file inside its own transaction. Whitespace-only
// files are reported as skipped.
func apply(db *sql.DB, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	stmt := strings.TrimSpace(string(data))
	if stmt == "" {
		return true, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.Exec(stmt); err != nil {
		_ = tx.Rollback()
		return false, err
	}
	return false, tx.Commit()
}

// seed loads a JSON array of campaign records into campaign_metrics.
func seed(db *sql.DB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var records []domain.CampaignRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("decode: %w", err)
	}
	for i := range records {
		region, err := domain.ParseRegion(string(records[i].Region))
		if err != nil {
			return 0, fmt.Errorf("record %s: %w", records[i].ID, err)
		}
		records[i].Region = region
	}
	if err := postgres.NewCampaignRepo(db).Upsert(context.Background(), records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func listTables(db *sql.DB) {
	rows, err := db.Query("SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename LIKE 'campaign_%' ORDER BY tablename")
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			log.Fatal(err)
		}
		fmt.Println(" ", t)
		n++
	}
	fmt.Printf("Total: %d tables\n", n)
}
