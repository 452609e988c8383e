package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, "http://localhost:8000", cfg.FinanceApi.BaseUrl)
	assert.Equal(t, 30*time.Second, cfg.FinanceApi.Timeout)
	assert.Equal(t, "postgres", cfg.Draft.Backend)
	assert.Equal(t, "fintrack", cfg.Database.Schema)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	content := `
port: 9090
financeapi:
  baseurl: http://finance.internal:8000
  timeout: 5s
draft:
  backend: redis
  redis:
    addr: redis:6379
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "http://finance.internal:8000", cfg.FinanceApi.BaseUrl)
	assert.Equal(t, 5*time.Second, cfg.FinanceApi.Timeout)
	assert.Equal(t, "redis", cfg.Draft.Backend)
	assert.Equal(t, "redis:6379", cfg.Draft.Redis.Addr)
	// untouched defaults survive
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("draft:\n  backend: redis\n"), 0644))
	t.Setenv("FINTRACK_DRAFT_BACKEND", "memory")
	t.Setenv("FINTRACK_DRAFT_SECRET", "top-secret")
	t.Setenv("FINTRACK_AUTH_JWTSECRET", "jwt-secret")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Draft.Backend)
	assert.Equal(t, "top-secret", cfg.Draft.Secret)
	assert.Equal(t, "jwt-secret", cfg.Auth.JwtSecret)
}

func TestLoad_InvalidYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unclosed"), 0644))

	_, err := Load(path)

	assert.Error(t, err)
}
