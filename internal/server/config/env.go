package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "GATEKEEPER_"

// loadDotEnv loads path into the process environment without overriding
// variables that are already set. An empty path means ".env" in the working
// directory, which may be absent.
func loadDotEnv(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays GATEKEEPER_* variables onto config.
//
// Recognized variables (without the prefix): HTTP_ADDR, GRPC_ADDR, DB_DRIVER,
// DATABASE_DSN, MAX_OPEN_CONNS, SECRET_KEY, SESSION_TTL, SESSION_STORE,
// REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, COOKIE_SECURE, PASSWORD_HASHER,
// LEGACY_HMAC_KEY, LOG_FORMAT, LOG_LEVEL, CORS_ALLOWED_ORIGINS, GIN_MODE.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	strs := map[string]*string{
		"HTTP_ADDR":       &config.HTTPAddr,
		"GRPC_ADDR":       &config.GRPCAddr,
		"DB_DRIVER":       &config.DatabaseDriver,
		"DATABASE_DSN":    &config.DatabaseDSN,
		"SECRET_KEY":      &config.SecretKey,
		"SESSION_STORE":   &config.SessionStore,
		"REDIS_ADDR":      &config.RedisAddr,
		"REDIS_PASSWORD":  &config.RedisPassword,
		"PASSWORD_HASHER": &config.PasswordHasher,
		"LEGACY_HMAC_KEY": &config.LegacyHMACKey,
		"LOG_FORMAT":      &config.LogFormat,
		"LOG_LEVEL":       &config.LogLevel,
		"GIN_MODE":        &config.GinMode,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_OPEN_CONNS": &config.MaxOpenConns,
		"REDIS_DB":       &config.RedisDB,
	}
	for name, dst := range ints {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = n
		}
	}

	if v, ok := get("SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSESSION_TTL: %w", envPrefix, err)
		}
		config.SessionTTL = d
	}

	if v, ok := get("COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sCOOKIE_SECURE: %w", envPrefix, err)
		}
		config.CookieSecure = b
	}

	if v, ok := get("CORS_ALLOWED_ORIGINS"); ok {
		config.CORSAllowedOrigins = splitList(v)
	}

	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
