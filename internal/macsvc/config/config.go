package config

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"

	"github.com/morshedkoli/macapp/internal/macsvc/db"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"

	defaultDatabase = "macapp"
)

type Config struct {
	Port string `env:"SERVICE_PORT" envDefault:"8080"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoURI      string `env:"MONGODB_URI"`
	MongoDatabase string `env:"MONGODB_DATABASE"`
	PostgresURL   string `env:"POSTGRES_URL"`

	LockPin       string `env:"LOCK_PIN"`
	HardcorePin   string `env:"HARDCORE_PIN"`
	SessionSecret string `env:"SESSION_SECRET"`
	CookieSecure  bool   `env:"COOKIE_SECURE" envDefault:"false"`

	NatsURL   string `env:"NATS_URL"`
	NatsToken string `env:"NATS_TOKEN"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogToFile bool   `env:"LOG_TO_FILE" envDefault:"false"`
}

// Load reads the process environment. Missing PINs are not an error here;
// the service starts and reports itself as misconfigured on unlock.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case DriverMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGODB_URI is required for store driver %q", cfg.StoreDriver)
		}
		if cfg.MongoDatabase == "" {
			cfg.MongoDatabase = db.DatabaseName(cfg.MongoURI, defaultDatabase)
		}
	case DriverPostgres:
		if cfg.PostgresURL == "" {
			return Config{}, fmt.Errorf("POSTGRES_URL is required for store driver %q", cfg.StoreDriver)
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.LockPin == "" && cfg.HardcorePin == "" {
		log.Warn("neither LOCK_PIN nor HARDCORE_PIN is set, unlock will fail")
	}
	return cfg, nil
}

// SigningKey returns the session signing key. Without SESSION_SECRET a random
// key is used, so sessions do not survive a restart and are not shared
// between instances.
func (c Config) SigningKey() []byte {
	if c.SessionSecret != "" {
		return []byte(c.SessionSecret)
	}
	log.Warn("SESSION_SECRET not set, using a random per-process key")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("unable to generate session key: %v", err)
	}
	return key
}
