// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env           string // APP_ENV (dev, test, prod)
	Port          string // APP_PORT, HTTP port to listen on
	StorageDriver string // STORAGE_DRIVER, mysql or memory
	DBUser        string // DB_USER
	DBPass        string // DB_PASS, may be empty
	DBHost        string // DB_HOST
	DBPort        string // DB_PORT
	DBName        string // DB_NAME

	JWTSecret         string // JWT_SECRET, signs admin access tokens
	AccessTTLMin      int    // ACCESS_TOKEN_TTL_MIN
	BcryptCost        int    // BCRYPT_COST, used by hash-password
	AdminUsername     string // ADMIN_USERNAME
	AdminPasswordHash string // ADMIN_PASSWORD_HASH, bcrypt; empty disables login

	LogLevel  string // LOG_LEVEL
	LogFormat string // LOG_FORMAT, text or json

	AMQPURL        string // AMQP_URL; empty disables booking events
	SeedSampleData bool   // SEED_SAMPLE_DATA

	Booking BookingConfig
}

// BookingConfig groups the knobs of the booking engine.
type BookingConfig struct {
	CommitTimeout        time.Duration   // BOOKING_COMMIT_TIMEOUT
	LockWait             time.Duration   // BOOKING_LOCK_WAIT, MySQL GET_LOCK wait
	WindowDays           int             // BOOKING_WINDOW_DAYS, 0 disables the date window
	TicketPrice          decimal.Decimal // TICKET_PRICE, flat price per seat
	AvailabilityCacheTTL time.Duration   // AVAILABILITY_CACHE_TTL
}

// Load reads an optional .env file and then the environment.  Missing
// required variables are reported together in one error.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:               envStr("APP_ENV", "dev"),
		Port:              envStr("APP_PORT", "8080"),
		StorageDriver:     strings.ToLower(envStr("STORAGE_DRIVER", StorageMySQL)),
		DBPass:            os.Getenv("DB_PASS"),
		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:        envInt("BCRYPT_COST", 12),
		AdminUsername:     envStr("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		LogFormat:         envStr("LOG_FORMAT", "text"),
		AMQPURL:           os.Getenv("AMQP_URL"),
		SeedSampleData:    envBool("SEED_SAMPLE_DATA", false),
	}

	switch cfg.StorageDriver {
	case StorageMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case StorageMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	booking, err := LoadBookingConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.Booking = booking

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// LoadBookingConfig reads the booking knobs.  It is separate from Load so
// the CLI can build an engine without JWT settings.
func LoadBookingConfig() (BookingConfig, error) {
	price, err := decimal.NewFromString(envStr("TICKET_PRICE", "250.00"))
	if err != nil {
		return BookingConfig{}, fmt.Errorf("invalid TICKET_PRICE: %w", err)
	}
	if price.IsNegative() {
		return BookingConfig{}, errors.New("invalid TICKET_PRICE: must not be negative")
	}
	bc := BookingConfig{
		CommitTimeout:        envDur("BOOKING_COMMIT_TIMEOUT", 5*time.Second),
		LockWait:             envDur("BOOKING_LOCK_WAIT", 3*time.Second),
		WindowDays:           envInt("BOOKING_WINDOW_DAYS", 7),
		TicketPrice:          price,
		AvailabilityCacheTTL: envDur("AVAILABILITY_CACHE_TTL", 60*time.Second),
	}
	if bc.CommitTimeout <= 0 {
		bc.CommitTimeout = 5 * time.Second
	}
	if bc.LockWait <= 0 || bc.LockWait > bc.CommitTimeout {
		bc.LockWait = bc.CommitTimeout
	}
	if bc.WindowDays < 0 {
		bc.WindowDays = 0
	}
	return bc, nil
}

// LoadDB reads only the DB_* variables; used by CLI commands that talk
// to MySQL without running the server.
func LoadDB() (Config, error) {
	_ = godotenv.Load()
	cfg := Config{
		DBUser: os.Getenv("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: envStr("DB_HOST", "127.0.0.1"),
		DBPort: envStr("DB_PORT", "3306"),
		DBName: os.Getenv("DB_NAME"),
	}
	if cfg.DBUser == "" || cfg.DBName == "" {
		return Config{}, errors.New("DB_USER and DB_NAME must be set")
	}
	return cfg, nil
}
