package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/haulops-platform/api/internal/auth"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	email := envOrDefault("SEED_ADMIN_EMAIL", "admin@local.haulops")
	password := envOrDefault("SEED_ADMIN_PASSWORD", "Admin12345!")
	fullName := envOrDefault("SEED_ADMIN_NAME", "Local Admin")
	tenantSlug := envOrDefault("SEED_TENANT_SLUG", "local-dev")
	tenantName := envOrDefault("SEED_TENANT_NAME", "Local Dev Carrier")
	mcNumber := envOrDefault("SEED_MC_NUMBER", "MC-000000")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback(ctx)

	var tenantID uuid.UUID
	if err := tx.QueryRow(ctx, `
		INSERT INTO tenants (slug, name)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, tenantSlug, tenantName).Scan(&tenantID); err != nil {
		log.Fatalf("upsert tenant: %v", err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	firstName, lastName := splitSeedName(fullName)
	_, err = tx.Exec(ctx, `
		INSERT INTO users (tenant_id, email, first_name, last_name, role, password_hash, is_active)
		VALUES ($1, $2, $3, $4, 'admin', $5, TRUE)
		ON CONFLICT DO NOTHING
	`, tenantID, email, firstName, lastName, passwordHash)
	if err != nil {
		log.Fatalf("insert user: %v", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO billing_entities (tenant_id, number, company_name, is_default)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (tenant_id, number) DO UPDATE SET company_name = EXCLUDED.company_name
	`, tenantID, mcNumber, tenantName); err != nil {
		log.Fatalf("upsert billing entity: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit tx: %v", err)
	}

	fmt.Printf("Seed completed. Tenant=%s, admin=%s, password=%s\n", tenantSlug, email, password)
}

func splitSeedName(full string) (string, string) {
	parts := strings.Fields(strings.TrimSpace(full))
	switch len(parts) {
	case 0:
		return "Local", "Admin"
	case 1:
		return parts[0], "Admin"
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
