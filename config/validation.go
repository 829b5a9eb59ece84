package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every problem found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "\n")
}

// requiredFields lists the values that must be non-empty per environment.
var requiredFields = map[Environment][]string{
	Development: {"JWT_SECRET"},
	Test:        {"JWT_SECRET"},
	CI:          {"JWT_SECRET", "DB_PASSWORD"},
	Production:  {"JWT_SECRET", "DB_PASSWORD", "DEEPSEEK_API_KEY"},
}

// minProductionSecretLen is the shortest JWT secret accepted in production.
const minProductionSecretLen = 32

// ValidateConfig checks cfg against the requirements of its environment.
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors

	values := map[string]string{
		"JWT_SECRET":       cfg.JWTSecret,
		"DB_PASSWORD":      cfg.DBPassword,
		"DEEPSEEK_API_KEY": cfg.DeepSeekAPIKey,
	}
	for _, field := range requiredFields[cfg.Environment] {
		if values[field] == "" {
			errs = append(errs, ValidationError{Field: field, Message: "is required"})
		}
	}

	if cfg.Environment == Production && cfg.JWTSecret != "" && len(cfg.JWTSecret) < minProductionSecretLen {
		errs = append(errs, ValidationError{
			Field:   "JWT_SECRET",
			Message: fmt.Sprintf("must be at least %d characters in production", minProductionSecretLen),
		})
	}

	switch cfg.RateLimitBackend {
	case BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, ValidationError{Field: "REDIS_URL", Message: "is required when RATE_LIMIT_BACKEND=redis"})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "RATE_LIMIT_BACKEND",
			Message: fmt.Sprintf("unsupported backend %q (want memory or redis)", cfg.RateLimitBackend),
		})
	}

	if cfg.AuthRateLimit <= 0 {
		errs = append(errs, ValidationError{Field: "AUTH_RATE_LIMIT", Message: "must be positive"})
	}
	if cfg.AuthRateWindow <= 0 {
		errs = append(errs, ValidationError{Field: "AUTH_RATE_WINDOW", Message: "must be positive"})
	}
	if cfg.GenerationAttemptTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "GENERATION_ATTEMPT_TIMEOUT", Message: "must be positive"})
	}
	if cfg.FallbackMaxRecipes <= 0 {
		errs = append(errs, ValidationError{Field: "FALLBACK_MAX_RECIPES", Message: "must be positive"})
	}
	if cfg.ArchiveEnabled && cfg.S3BucketName == "" {
		errs = append(errs, ValidationError{Field: "S3_BUCKET_NAME", Message: "is required when ARCHIVE_ENABLED=true"})
	}

	if cfg.Environment == Production && cfg.RateLimitTestMode {
		errs = append(errs, ValidationError{Field: "RATE_LIMIT_TEST_MODE", Message: "cannot be enabled in production"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
