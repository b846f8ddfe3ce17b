package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/playmatatu/clawmachine/internal/config"
)

// Pool sizes the connection pool shared by the save store and profiles.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// PoolFromConfig reads pool sizes from the environment. Idle connections are
// capped at the open limit.
func PoolFromConfig(cfg *config.Config) Pool {
	p := Pool{
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxLifetime: time.Duration(cfg.DBConnMaxLife) * time.Minute,
	}
	if p.MaxOpen <= 0 {
		p.MaxOpen = 25
	}
	if p.MaxIdle < 0 {
		p.MaxIdle = 0
	}
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	return p
}

// Connect opens the PostgreSQL pool and verifies it within ctx.
func Connect(ctx context.Context, databaseURL string, pool Pool) (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	if pool.MaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.MaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
