package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points SECRETS_DIR at an empty directory and clears CI detection.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SECRETS_DIR", dir)
	t.Setenv("CI", "")
	t.Setenv("ENV", "test")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	return dir
}

func TestLoadConfig(t *testing.T) {
	isolate(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("RATE_LIMIT_BACKEND", "Redis")
	t.Setenv("GENERATION_ATTEMPT_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, Test, cfg.Environment)
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "postgres", cfg.DBPassword)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, BackendRedis, cfg.RateLimitBackend)
	assert.Equal(t, 5*time.Second, cfg.GenerationAttemptTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfigWithDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "pantrychef", cfg.DBName)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, BackendMemory, cfg.RateLimitBackend)
	assert.Equal(t, 10, cfg.AuthRateLimit)
	assert.Equal(t, time.Minute, cfg.AuthRateWindow)
	assert.Equal(t, 20*time.Second, cfg.GenerationAttemptTimeout)
	assert.Equal(t, 5, cfg.FallbackMaxRecipes)
	assert.False(t, cfg.RateLimitTestMode)
	assert.False(t, cfg.ArchiveEnabled)
}

func TestLoadConfigReadsSecrets(t *testing.T) {
	dir := isolate(t)
	for name, value := range map[string]string{
		"jwt_secret":       "from-secret-file\n",
		"db_password":      "secret-pass",
		"deepseek_api_key": "sk-test",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(value), 0o600))
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-secret-file", cfg.JWTSecret)
	assert.Equal(t, "secret-pass", cfg.DBPassword)
	assert.Equal(t, "sk-test", cfg.DeepSeekAPIKey)
}

func TestLoadConfigEnvironmentWinsOverSecrets(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_secret"), []byte("file"), 0o600))
	t.Setenv("JWT_SECRET", "env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "env", cfg.JWTSecret)
}

func TestLoadConfigAPIKeyFile(t *testing.T) {
	isolate(t)
	keyFile := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("  sk-file  \n"), 0o600))
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DEEPSEEK_API_KEY_FILE", keyFile)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.DeepSeekAPIKey)
}

func TestLoadConfigMissingJWTSecret(t *testing.T) {
	isolate(t)

	_, err := LoadConfig()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "JWT_SECRET", verrs[0].Field)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment:              Production,
			JWTSecret:                "0123456789abcdef0123456789abcdef",
			DBPassword:               "pw",
			DeepSeekAPIKey:           "sk",
			RateLimitBackend:         BackendMemory,
			AuthRateLimit:            10,
			AuthRateWindow:           time.Minute,
			GenerationAttemptTimeout: 20 * time.Second,
			FallbackMaxRecipes:       5,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"short production secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"missing api key", func(c *Config) { c.DeepSeekAPIKey = "" }, "DEEPSEEK_API_KEY"},
		{"unknown backend", func(c *Config) { c.RateLimitBackend = "memcached" }, "RATE_LIMIT_BACKEND"},
		{"redis without url", func(c *Config) { c.RateLimitBackend = BackendRedis }, "REDIS_URL"},
		{"zero auth limit", func(c *Config) { c.AuthRateLimit = 0 }, "AUTH_RATE_LIMIT"},
		{"test mode in production", func(c *Config) { c.RateLimitTestMode = true }, "RATE_LIMIT_TEST_MODE"},
		{"archive without bucket", func(c *Config) { c.ArchiveEnabled = true }, "S3_BUCKET_NAME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("CI", "true")
	t.Setenv("ENV", "production")
	assert.Equal(t, CI, GetEnvironment())

	t.Setenv("CI", "")
	assert.Equal(t, Production, GetEnvironment())

	t.Setenv("ENV", "")
	assert.Equal(t, Development, GetEnvironment())
}
