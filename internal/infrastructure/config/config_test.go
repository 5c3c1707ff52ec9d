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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.LLM.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.Images.CacheTTL)
	assert.Empty(t, cfg.Images.APIKey)
	assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowQueryThreshold)
	assert.Equal(t, 100, cfg.Logging.SampleInitial)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  environment: production
server:
  port: 9090
llm:
  provider: ollama
  model: llama3.2:3b
`), 0o600))

	t.Setenv("MEALPLANNER_LLM_MODEL", "mistral")
	t.Setenv("MEALPLANNER_IMAGES_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "mistral", cfg.LLM.Model)
	assert.Equal(t, "from-env", cfg.Images.APIKey)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "0.0.0.0:9090", cfg.Address())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"bad provider", func(c *Config) { c.LLM.Provider = "bard" }},
		{"bad session backend", func(c *Config) { c.Session.Backend = "file" }},
		{"redis without addrs", func(c *Config) {
			c.Session.Backend = "redis"
			c.Redis.Addrs = nil
		}},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }},
		{"zero rate", func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, base().Validate())
}

func TestDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "meals", SSLMode: "disable",
	}}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=meals sslmode=disable", cfg.GetDSN())
	assert.Equal(t, "postgres://u:p@db:5432/meals?sslmode=disable", cfg.GetURL())
}
