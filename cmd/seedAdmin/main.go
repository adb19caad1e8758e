package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"stockmaster/frontend/login"
	"stockmaster/infrastructure/config"
	"stockmaster/infrastructure/sqlite"
)

func main() {
	cfg := config.Load()

	migrationsDir, err := resolveMigrationsDir()
	if err != nil {
		log.Fatalf("resolve migrations dir: %v", err)
	}

	db, err := sqlite.OpenDB(cfg.SQLite.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	email := getenv("SEED_ADMIN_EMAIL", cfg.Auth.SupremeAdminEmail)
	name := getenv("SEED_ADMIN_NAME", cfg.Auth.SupremeAdminName)
	password := getenv("SEED_ADMIN_PASSWORD", cfg.Auth.AdminPassword)
	if password == "" {
		log.Fatalf("seed admin: set SEED_ADMIN_PASSWORD or ADMIN_PASSWORD")
	}

	protected := strings.EqualFold(email, cfg.Auth.SupremeAdminEmail)
	user, err := login.UpsertAdmin(context.Background(), db, name, email, password, protected)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	fmt.Printf("seeded admin user (id=%d email=%s protected=%t)\n", user.ID, user.Email, user.Protected)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func resolveMigrationsDir() (string, error) {
	candidates := []string{
		filepath.Join("infrastructure", "sqlite", "migrations"),
		filepath.Join("..", "..", "infrastructure", "sqlite", "migrations"),
	}

	if _, file, _, ok := runtime.Caller(0); ok {
		candidates = append(candidates, filepath.Join(filepath.Dir(file), "..", "..", "infrastructure", "sqlite", "migrations"))
	}

	tried := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		absPath, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		tried = append(tried, absPath)

		info, err := os.Stat(absPath)
		if err != nil {
			continue
		}
		if info.IsDir() {
			return absPath, nil
		}
	}

	return "", fmt.Errorf("migrations dir not found; tried: %s", strings.Join(tried, ", "))
}
