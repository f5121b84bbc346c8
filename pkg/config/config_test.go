package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("properlia")
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "properlia", cfg.DB.DBName)
	assert.Equal(t, 20, cfg.Pagination.DefaultItems)
	assert.Equal(t, 100, cfg.Pagination.MaxItems)
	assert.Equal(t, "http://localhost:3000", cfg.Storage.BaseURL)
	assert.Zero(t, cfg.Storage.URLTTL)
	assert.Equal(t, localOrigins, cfg.CORS.Origins)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, developmentSigningKey, cfg.JWT.SigningKey)
}

func TestLoadRequiresSigningKeyInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("DEVISE_JWT_SECRET_KEY", "")

	_, err := Load("properlia")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")

	t.Setenv("JWT_SIGNING_KEY", "prod-key")
	cfg, err := Load("properlia")
	require.NoError(t, err)
	assert.Equal(t, "prod-key", cfg.JWT.SigningKey)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CORS_ORIGINS", "https://properlia.mx, http://localhost:5173,")
	t.Setenv("FRONTEND_URL", "https://properlia.mx/")
	t.Setenv("STORAGE_URL_TTL", "1h")
	t.Setenv("SEED_REFERENCE_DATA", "true")
	t.Setenv("DEVISE_JWT_SECRET_KEY", "legacy-key")

	cfg, err := Load("properlia")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://properlia.mx", cfg.FrontendURL)
	assert.Equal(t, "http://localhost:8080", cfg.Storage.BaseURL)
	assert.Equal(t, time.Hour, cfg.Storage.URLTTL)
	assert.True(t, cfg.Seed.ReferenceData)
	assert.Equal(t, "legacy-key", cfg.JWT.SigningKey)
	assert.Equal(t, append(append([]string{}, localOrigins...), "https://properlia.mx"), cfg.CORS.Origins)
}

func TestLoadRejectsBadPagination(t *testing.T) {
	t.Setenv("PAGINATION_DEFAULT_ITEMS", "50")
	t.Setenv("PAGINATION_MAX_ITEMS", "10")

	_, err := Load("properlia")
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	db := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", db.GetDSN())

	db.URL = "postgres://u:p@db/n"
	assert.Equal(t, "postgres://u:p@db/n", db.GetDSN())
}
