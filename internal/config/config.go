// Package config resolves runtime settings from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"membuddy/internal/cache"
	"membuddy/internal/engine"
	"membuddy/internal/recordstore"
)

// DefaultSessionMaxAge is how long an idle session survives before
// cleanup removes it.
const DefaultSessionMaxAge = 30 * time.Minute

// GetStoreConfig returns the record-store configuration based on
// environment variables.
func GetStoreConfig() recordstore.Config {
	storeType := os.Getenv("MEMBUDDY_STORE_TYPE")
	if storeType == "" {
		storeType = "memory" // Default to the in-memory store
	}

	cfg := recordstore.Config{}

	switch strings.ToLower(storeType) {
	case "postgresql", "postgres", "db":
		cfg.Type = recordstore.PostgresStore
		cfg.ConnectionString = getConnectionString()
	default:
		cfg.Type = recordstore.MemoryStore
		cfg.SeedPath = os.Getenv("MEMBUDDY_SEED_PATH")
	}

	return cfg
}

// getConnectionString returns the database connection string.
func getConnectionString() string {
	connStr := os.Getenv("DB_CONN_STRING")
	if connStr == "" {
		// Default connection string for local development
		return "postgres://localhost:5432/postgres?sslmode=disable"
	}
	return connStr
}

// IsMemoryMode returns true when running without a database.
func IsMemoryMode() bool {
	return GetStoreConfig().Type == recordstore.MemoryStore
}

// GetEngineConfig returns engine tuning from the environment.
func GetEngineConfig() engine.Config {
	return engine.Config{
		ConfirmPatience: getInt("MEMBUDDY_CONFIRM_PATIENCE", engine.DefaultConfirmPatience),
	}
}

// GetCacheTTL returns the snapshot cache TTL.
func GetCacheTTL() time.Duration {
	return getSeconds("MEMBUDDY_CACHE_TTL_SECONDS", cache.DefaultTTL)
}

// GetSessionMaxAge returns the idle-session expiry window.
func GetSessionMaxAge() time.Duration {
	return getSeconds("MEMBUDDY_SESSION_MAX_AGE_SECONDS", DefaultSessionMaxAge)
}

// GetLexiconPath returns the optional lexicon overlay file path.
func GetLexiconPath() string {
	return os.Getenv("MEMBUDDY_LEXICON_PATH")
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getSeconds(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Second
}
