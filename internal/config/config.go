// Package config loads runtime settings from the environment. A .env file in
// the working directory, if present, is read first; variables already set in
// the real environment win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               int
	DBPath             string
	PageSize           int
	BcryptCost         int
	LogLevel           slog.Level
	CORSAllowedOrigins []string
}

// Defaults.
const (
	DefaultPort       = 8080
	DefaultDBPath     = "data/reviews.db"
	DefaultPageSize   = 10
	DefaultBcryptCost = 12
)

// Load reads the given .env files (".env" when none are named), then the
// environment. A missing .env file is not an error; a malformed value is.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:               DefaultPort,
		DBPath:             DefaultDBPath,
		PageSize:           DefaultPageSize,
		BcryptCost:         DefaultBcryptCost,
		LogLevel:           slog.LevelInfo,
		CORSAllowedOrigins: []string{"*"},
	}

	var errs []error

	if v := getenv("PORT"); v != "" {
		n, err := intInRange("PORT", v, 1, 65535)
		errs = append(errs, err)
		cfg.Port = n
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("PAGE_SIZE"); v != "" {
		n, err := intInRange("PAGE_SIZE", v, 1, 100)
		errs = append(errs, err)
		cfg.PageSize = n
	}
	if v := getenv("BCRYPT_COST"); v != "" {
		n, err := intInRange("BCRYPT_COST", v, 4, 31)
		errs = append(errs, err)
		cfg.BcryptCost = n
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("config: LOG_LEVEL: %q is not one of debug, info, warn, error", v))
		}
	}
	if v := getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func intInRange(key, raw string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("config: %s: %q is not an integer", key, raw)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("config: %s: %d is outside %d..%d", key, n, lo, hi)
	}
	return n, nil
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
