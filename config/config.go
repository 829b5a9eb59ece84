package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerHost      string
	ServerPort      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database configuration
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBMaxOpenConns int

	// Redis configuration
	RedisURL      string
	RedisPassword string

	// JWT configuration
	JWTSecret string

	// Recipe generation
	DeepSeekAPIKey           string
	DeepSeekURL              string
	DeepSeekModel            string
	GenerationAttemptTimeout time.Duration
	FallbackMaxRecipes       int

	// Rate limiting
	RateLimitTestMode bool
	RateLimitBackend  string
	AuthRateLimit     int
	AuthRateWindow    time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Consulta archive
	ArchiveEnabled bool
	S3BucketName   string
	AWSRegion      string

	CORSAllowedOrigins []string
}

// Rate limit store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// LoadConfig reads configuration from environment variables, an optional
// config file and Docker secrets. Environment variables win over the file;
// secrets fill sensitive values that are still empty.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Environment: GetEnvironment(),

		ServerHost:      v.GetString("SERVER_HOST"),
		ServerPort:      v.GetString("SERVER_PORT"),
		ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),

		DBHost:         v.GetString("DB_HOST"),
		DBPort:         v.GetString("DB_PORT"),
		DBUser:         v.GetString("DB_USER"),
		DBPassword:     v.GetString("DB_PASSWORD"),
		DBName:         v.GetString("DB_NAME"),
		DBSSLMode:      v.GetString("DB_SSL_MODE"),
		DBMaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),

		RedisURL:      v.GetString("REDIS_URL"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),

		JWTSecret: v.GetString("JWT_SECRET"),

		DeepSeekAPIKey:           v.GetString("DEEPSEEK_API_KEY"),
		DeepSeekURL:              v.GetString("DEEPSEEK_API_URL"),
		DeepSeekModel:            v.GetString("DEEPSEEK_MODEL"),
		GenerationAttemptTimeout: v.GetDuration("GENERATION_ATTEMPT_TIMEOUT"),
		FallbackMaxRecipes:       v.GetInt("FALLBACK_MAX_RECIPES"),

		RateLimitTestMode: v.GetBool("RATE_LIMIT_TEST_MODE"),
		RateLimitBackend:  strings.ToLower(v.GetString("RATE_LIMIT_BACKEND")),
		AuthRateLimit:     v.GetInt("AUTH_RATE_LIMIT"),
		AuthRateWindow:    v.GetDuration("AUTH_RATE_WINDOW"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		ArchiveEnabled: v.GetBool("ARCHIVE_ENABLED"),
		S3BucketName:   v.GetString("S3_BUCKET_NAME"),
		AWSRegion:      v.GetString("AWS_REGION"),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	// CI takes secrets from the environment only.
	if cfg.Environment != CI {
		fillFromSecrets(cfg)
	}
	if cfg.DeepSeekAPIKey == "" {
		if path := v.GetString("DEEPSEEK_API_KEY_FILE"); path != "" {
			key, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read API key file: %w", err)
			}
			cfg.DeepSeekAPIKey = strings.TrimSpace(string(key))
		}
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "90s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "pantrychef")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)

	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")

	v.SetDefault("DEEPSEEK_API_URL", "https://api.deepseek.com/v1/chat/completions")
	v.SetDefault("DEEPSEEK_MODEL", "deepseek-chat")
	v.SetDefault("GENERATION_ATTEMPT_TIMEOUT", "20s")
	v.SetDefault("FALLBACK_MAX_RECIPES", 5)

	v.SetDefault("RATE_LIMIT_TEST_MODE", false)
	v.SetDefault("RATE_LIMIT_BACKEND", BackendMemory)
	v.SetDefault("AUTH_RATE_LIMIT", 10)
	v.SetDefault("AUTH_RATE_WINDOW", "1m")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ARCHIVE_ENABLED", false)
	v.SetDefault("S3_BUCKET_NAME", "pantrychef-consultas")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
}

// fillFromSecrets reads Docker secrets for sensitive values not set in the environment.
func fillFromSecrets(cfg *Config) {
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = readSecret(name)
		}
	}
	fill(&cfg.DBUser, "db_user")
	fill(&cfg.DBPassword, "db_password")
	fill(&cfg.JWTSecret, "jwt_secret")
	fill(&cfg.RedisPassword, "redis_password")
	fill(&cfg.DeepSeekAPIKey, "deepseek_api_key")
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// DatabaseURL returns the Postgres connection string in URL form.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}
