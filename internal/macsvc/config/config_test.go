package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/records_db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "records_db", cfg.MongoDatabase)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.CookieSecure)
}

func TestLoad_MongoDatabaseFallback(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "macapp", cfg.MongoDatabase)
}

func TestLoad_Postgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", " Postgres ")
	t.Setenv("POSTGRES_URL", "postgres://u:p@localhost:5432/macapp")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.CookieSecure)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing mongo uri", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "")
		_, err := Load()
		assert.ErrorContains(t, err, "MONGODB_URI")
	})

	t.Run("missing postgres url", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("POSTGRES_URL", "")
		_, err := Load()
		assert.ErrorContains(t, err, "POSTGRES_URL")
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "sqlite")
		_, err := Load()
		assert.ErrorContains(t, err, "unknown STORE_DRIVER")
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
		t.Setenv("COOKIE_SECURE", "maybe")
		_, err := Load()
		assert.ErrorContains(t, err, "parse env")
	})
}

func TestSigningKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte("s3cret"), Config{SessionSecret: "s3cret"}.SigningKey())

	a := Config{}.SigningKey()
	b := Config{}.SigningKey()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
