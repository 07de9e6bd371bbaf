package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/City-of-Helsinki/hauki-sub000/internal/logging"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence/sqlite/migration"
)

// Config captures environment driven configuration values for the opening hours service.
type Config struct {
	HTTPPort        int
	SQLitePath      string
	DefaultTimezone *time.Location
	LogLevel        slog.Level
	CacheSize       int
	RedisURL        string
	CacheTTL        time.Duration
	AMQPURL         string
	AMQPExchange    string
	ImportDir       string
	ImportCron      string
	RecomputeCron   string
	CORSOrigins     []string
	RateLimit       int
}

// Load reads an optional .env file and parses configuration values from the
// process environment. Variables already set in the environment win over
// the file.
//
// Every invalid variable is reported in a single error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv parses configuration values looked up through getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		HTTPPort:     8080,
		SQLitePath:   "hauki.db",
		LogLevel:     slog.LevelInfo,
		CacheSize:    1024,
		CacheTTL:     10 * time.Minute,
		AMQPExchange: "hauki",
		CORSOrigins:  []string{"*"},
		RateLimit:    100,
	}

	invalid := make([]string, 0, 2)
	lookup := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if portValue := lookup("HAUKI_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "HAUKI_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := lookup("HAUKI_SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	zone := lookup("HAUKI_DEFAULT_TIMEZONE")
	if zone == "" {
		zone = "Europe/Helsinki"
	}
	if loc, err := time.LoadLocation(zone); err != nil {
		invalid = append(invalid, "HAUKI_DEFAULT_TIMEZONE")
	} else {
		cfg.DefaultTimezone = loc
	}

	if levelValue := lookup("HAUKI_LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "HAUKI_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if sizeValue := lookup("HAUKI_CACHE_SIZE"); sizeValue != "" {
		size, err := strconv.Atoi(sizeValue)
		if err != nil || size < 0 {
			invalid = append(invalid, "HAUKI_CACHE_SIZE")
		} else {
			cfg.CacheSize = size
		}
	}

	cfg.RedisURL = lookup("HAUKI_REDIS_URL")

	if ttlValue := lookup("HAUKI_CACHE_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "HAUKI_CACHE_TTL")
		} else {
			cfg.CacheTTL = ttl
		}
	}

	cfg.AMQPURL = lookup("HAUKI_AMQP_URL")
	if exchange := lookup("HAUKI_AMQP_EXCHANGE"); exchange != "" {
		cfg.AMQPExchange = exchange
	}

	cfg.ImportDir = lookup("HAUKI_IMPORT_DIR")
	for key, target := range map[string]*string{
		"HAUKI_IMPORT_CRON":    &cfg.ImportCron,
		"HAUKI_RECOMPUTE_CRON": &cfg.RecomputeCron,
	} {
		spec := lookup(key)
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			invalid = append(invalid, key)
			continue
		}
		*target = spec
	}

	if originsValue := lookup("HAUKI_CORS_ORIGINS"); originsValue != "" {
		origins := make([]string, 0, 2)
		for _, origin := range strings.Split(originsValue, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) == 0 {
			invalid = append(invalid, "HAUKI_CORS_ORIGINS")
		} else {
			cfg.CORSOrigins = origins
		}
	}

	if limitValue := lookup("HAUKI_RATE_LIMIT"); limitValue != "" {
		limit, err := strconv.Atoi(limitValue)
		if err != nil || limit < 0 {
			invalid = append(invalid, "HAUKI_RATE_LIMIT")
		} else {
			cfg.RateLimit = limit
		}
	}

	if cfg.ImportCron != "" && cfg.ImportDir == "" {
		invalid = append(invalid, "HAUKI_IMPORT_DIR")
	}

	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// SQLiteConfig returns the storage configuration for SQLitePath. An
// in-memory database keeps a single connection so every query sees the
// same data.
func (c Config) SQLiteConfig() migration.SQLiteConfig {
	if c.SQLitePath == ":memory:" {
		return migration.InMemoryTestSQLiteConfig()
	}
	return migration.DefaultSQLiteConfig(c.SQLitePath)
}
