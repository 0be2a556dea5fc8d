package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Durations use timex.Duration so both "720h" and integer nanoseconds parse.
// Pointer fields distinguish "absent" from a zero value; only present keys
// override the running Config.
type JsonConfig struct {
	HTTPAddr           *string         `json:"http_addr"`
	GRPCAddr           *string         `json:"grpc_addr"`
	DatabaseDriver     *string         `json:"database_driver"`
	DatabaseDSN        *string         `json:"database_dsn"`
	MaxOpenConns       *int            `json:"max_open_conns"`
	SecretKey          *string         `json:"secret_key"`
	SessionTTL         *timex.Duration `json:"session_ttl"`
	SessionStore       *string         `json:"session_store"`
	RedisAddr          *string         `json:"redis_addr"`
	RedisPassword      *string         `json:"redis_password"`
	RedisDB            *int            `json:"redis_db"`
	CookieSecure       *bool           `json:"cookie_secure"`
	PasswordHasher     *string         `json:"password_hasher"`
	LegacyHMACKey      *string         `json:"legacy_hmac_key"`
	LogFormat          *string         `json:"log_format"`
	LogLevel           *string         `json:"log_level"`
	CORSAllowedOrigins []string        `json:"cors_allowed_origins"`
	GinMode            *string         `json:"gin_mode"`
}

// parseJson loads configuration values from the JSON file at path into config.
// An empty path loads nothing.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SessionStore, c.SessionStore)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setString(&config.PasswordHasher, c.PasswordHasher)
	setString(&config.LegacyHMACKey, c.LegacyHMACKey)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.GinMode, c.GinMode)

	if c.MaxOpenConns != nil {
		config.MaxOpenConns = *c.MaxOpenConns
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
