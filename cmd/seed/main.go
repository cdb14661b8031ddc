package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"familytree/internal/database"
	"familytree/internal/domain"
)

// Seeds a development database with an admin and a few regular accounts.
// Destructive: wipes users and refresh tokens first.
func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "familytree.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := db.AutoMigrate(&domain.User{}, &domain.RefreshToken{}); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM refresh_tokens")
	db.Exec("DELETE FROM users")

	log.Println("Creating users...")

	adminHash, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin := domain.User{
		Email:        "admin@familytree.dev",
		PasswordHash: string(adminHash),
		Role:         domain.RoleAdmin,
		Name:         "Admin",
	}
	db.Create(&admin)
	log.Println("Admin created: admin@familytree.dev / admin123")

	names := []string{"Anna Lee", "Bekzat Omarov", "Dina Park"}
	for i, name := range names {
		hash, _ := bcrypt.GenerateFromPassword([]byte("member123"), bcrypt.DefaultCost)
		user := domain.User{
			Email:        fmt.Sprintf("member%d@familytree.dev", i+1),
			PasswordHash: string(hash),
			Role:         domain.RoleUser,
			Name:         name,
		}
		db.Create(&user)
	}
	log.Printf("Created %d member accounts (password: member123)", len(names))

	log.Println("Seed completed")
}
