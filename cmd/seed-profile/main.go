package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/playmatatu/clawmachine/internal/accounts"
	"github.com/playmatatu/clawmachine/internal/config"
	"github.com/playmatatu/clawmachine/internal/database"
	"github.com/playmatatu/clawmachine/internal/prize"
	"github.com/playmatatu/clawmachine/internal/save"
)

// seed-profile creates a profile with a fresh save slot, for local testing.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL, database.Pool{MaxOpen: 2, MaxIdle: 1})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	name := os.Getenv("PROFILE_NAME")
	if name == "" {
		name = "player1"
		log.Printf("Using default profile name: %s", name)
	}
	pin := os.Getenv("PROFILE_PIN")
	if pin == "" {
		pin = "1234"
		log.Printf("WARNING: Using default PIN. Set PROFILE_PIN to choose one.")
	}

	profiles := accounts.NewSQLProfiles(db)
	p, err := accounts.Register(ctx, profiles, name, pin)
	if errors.Is(err, accounts.ErrProfileExists) {
		log.Fatalf("Profile %q already exists", name)
	}
	if err != nil {
		log.Fatalf("Failed to create profile: %v", err)
	}

	lim := save.DefaultLimits()
	st := save.NewState(time.Now(), prize.DefaultCatalog(), lim)
	if err := save.NewPostgresStore(db).Save(ctx, p.ID, st); err != nil {
		log.Fatalf("Failed to write save slot: %v", err)
	}

	log.Printf("✓ Profile created")
	log.Printf("  ID: %d", p.ID)
	log.Printf("  Name: %s", p.Name)
	log.Printf("  Coins: %d, Balls: %d, Prizes: %d", st.Coins, st.Balls, len(st.Prizes.Unwon()))
}
