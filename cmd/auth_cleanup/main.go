package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"familytree/internal/database"
	"familytree/internal/repository"
)

// Sweeps refresh tokens whose expiry has passed. Meant to run from cron;
// the API server never deletes stale rows itself.
func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	repo := repository.NewRefreshTokenRepository(db)
	ctx := context.Background()
	now := time.Now()

	expired, err := repo.FindExpired(ctx, now)
	if err != nil {
		log.Fatalf("listing expired refresh tokens failed: %v", err)
	}
	for _, t := range expired {
		log.Printf("expired refresh token: user_id=%d expired_at=%s", t.UserID, t.ExpiresAt.Format(time.RFC3339))
	}

	deleted, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		log.Fatalf("cleanup refresh_tokens failed: %v", err)
	}

	log.Printf("auth cleanup completed: refresh_tokens=%d", deleted)
}
