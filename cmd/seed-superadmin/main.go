package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"penguinims.org/internal/users"
)

// seed-superadmin creates the bootstrap super admin account if none exists.
// Safe to run repeatedly.
func main() {
	log.SetFlags(0)
	_ = godotenv.Load()

	dsn := os.Getenv("PENGUIN_PG_DSN")
	if dsn == "" {
		log.Fatal("missing PENGUIN_PG_DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	svc, err := users.NewService(users.NewPGStore(db), nil)
	if err != nil {
		log.Fatalf("users service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	profile, created, err := svc.EnsureSuperAdmin(ctx, users.SeedConfig{
		Username: os.Getenv("PENGUIN_SUPERADMIN_USERNAME"),
		Email:    os.Getenv("PENGUIN_SUPERADMIN_EMAIL"),
		Password: os.Getenv("PENGUIN_SUPERADMIN_PASSWORD"),
		FullName: os.Getenv("PENGUIN_SUPERADMIN_FULLNAME"),
	})
	if err != nil {
		log.Fatalf("seed super admin: %v", err)
	}
	if created {
		log.Printf("super admin created: %s <%s>", profile.Username, profile.Email)
		return
	}
	log.Printf("super admin already exists: %s <%s>", profile.Username, profile.Email)
}
