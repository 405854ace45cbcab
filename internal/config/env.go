package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// RequireEnv validates and returns a required environment variable
// Returns error if not set or empty
func RequireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s is required but not set", key)
	}
	return val, nil
}

// RequireEnvWithDefault returns env var or default if not set
func RequireEnvWithDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// RequireEnvInt validates and returns a required integer environment variable
func RequireEnvInt(key string) (int, error) {
	val, err := RequireEnv(key)
	if err != nil {
		return 0, err
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got: %s", key, val)
	}
	return intVal, nil
}

// RequireEnvIntWithDefault returns env var as int or default
func RequireEnvIntWithDefault(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// RequireEnvBool validates and returns a required boolean environment variable
func RequireEnvBool(key string) (bool, error) {
	val, err := RequireEnv(key)
	if err != nil {
		return false, err
	}
	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean (true/false), got: %s", key, val)
	}
	return boolVal, nil
}

// RequireEnvBoolWithDefault returns env var as bool or default
func RequireEnvBoolWithDefault(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// RequireEnvURL validates and returns a required URL environment variable
func RequireEnvURL(key string) (string, error) {
	val, err := RequireEnv(key)
	if err != nil {
		return "", err
	}
	parsed, err := url.Parse(val)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("%s must be a valid URL (http:// or https://), got: %s", key, val)
	}
	return val, nil
}

// RequireEnvURLWithDefault returns env var as URL or default
func RequireEnvURLWithDefault(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		parsed, err := url.Parse(val)
		if err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
			return val
		}
	}
	return defaultValue
}

// RequireEnvOneOf validates that env var is one of allowed values
func RequireEnvOneOf(key string, allowed []string) (string, error) {
	val, err := RequireEnv(key)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if val == a {
			return val, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %v, got: %s", key, allowed, val)
}

// RequireEnvSecret validates that a secret env var is set and meets minimum length
func RequireEnvSecret(key string, minLength int) (string, error) {
	val, err := RequireEnv(key)
	if err != nil {
		return "", err
	}
	if len(val) < minLength {
		return "", fmt.Errorf("%s must be at least %d characters (current: %d)", key, minLength, len(val))
	}
	if strings.Contains(strings.ToLower(val), "change-me") {
		return "", fmt.Errorf("%s contains 'change-me', use a strong secret", key)
	}
	return val, nil
}

// RequireAtLeastOne validates that at least one of the provided env vars is set
func RequireAtLeastOne(keys []string) error {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return nil
		}
	}
	return fmt.Errorf("at least one of %v must be set", keys)
}

// ValidateProduction checks production-specific security requirements
func ValidateProduction() error {
	env := os.Getenv("ENVIRONMENT")
	if env != "production" {
		return nil // Skip validation in non-production
	}

	if os.Getenv("DEBUG") == "true" {
		return fmt.Errorf("DEBUG must be false in production")
	}

	if repoURL := os.Getenv("DATABASE_URL"); repoURL != "" && strings.HasPrefix(repoURL, "http://") {
		return fmt.Errorf("DATABASE_URL must use https:// in production")
	}

	return nil
}

// RequireEnvDuration validates and returns a required duration environment variable
func RequireEnvDuration(key string) (time.Duration, error) {
	val, err := RequireEnv(key)
	if err != nil {
		return 0, err
	}
	duration, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration (e.g., 30s, 5m, 1h), got: %s", key, val)
	}
	return duration, nil
}

// RequireEnvDurationWithDefault returns env var as duration or default
func RequireEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultValue
}

// RequireEnvCSV validates and returns a required CSV environment variable
func RequireEnvCSV(key string) ([]string, error) {
	val, err := RequireEnv(key)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%s CSV list cannot be empty", key)
	}
	return result, nil
}

// RequireEnvCSVWithDefault returns env var as CSV or default
func RequireEnvCSVWithDefault(key string, defaultValue []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

