package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool
	MigrationsDir  string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxLife  int // minutes

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Security
	JWTSecret         string
	TokenTTLHours     int
	PINMaxAttempts    int
	PINLockoutMinutes int

	// Assets and local saves
	AssetDir string
	SaveDir  string

	// Machine runner
	TickRate               int
	SnapshotEveryTicks     int
	MachineIdleStopSeconds int
	AutosaveSeconds        int

	// Tuning overrides; zero means keep the built-in value
	ClawSpeed      float64
	ClawGrabRadius float64
	ClawGrabChance float64
	ClawFrameDelay int
	BallMax        int
	CoinMax        int
	Seed           int64
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/clawmachine?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "migrations"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLife:  getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTLHours:     getEnvInt("TOKEN_TTL_HOURS", 24),
		PINMaxAttempts:    getEnvInt("PIN_MAX_ATTEMPTS", 5),
		PINLockoutMinutes: getEnvInt("PIN_LOCKOUT_MINUTES", 15),

		// Assets
		AssetDir: getEnv("ASSET_DIR", ""),
		SaveDir:  getEnv("SAVE_DIR", "."),

		// Machine runner
		TickRate:               getEnvInt("TICK_RATE", 60),
		SnapshotEveryTicks:     getEnvInt("SNAPSHOT_EVERY_TICKS", 2),
		MachineIdleStopSeconds: getEnvInt("MACHINE_IDLE_STOP_SECONDS", 300),
		AutosaveSeconds:        getEnvInt("AUTOSAVE_SECONDS", 60),

		// Tuning
		ClawSpeed:      getEnvFloat("CLAW_SPEED", 0),
		ClawGrabRadius: getEnvFloat("CLAW_GRAB_RADIUS", 0),
		ClawGrabChance: getEnvFloat("CLAW_GRAB_CHANCE", 0),
		ClawFrameDelay: getEnvInt("CLAW_FRAME_DELAY", 0),
		BallMax:        getEnvInt("BALL_MAX", 0),
		CoinMax:        getEnvInt("COIN_MAX", 0),
		Seed:           int64(getEnvInt("MACHINE_SEED", 0)),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
