/*
Package config loads the server configuration.

SOURCES (later wins):
  1. Defaults
  2. .env file, when present (joho/godotenv, never overrides the real
     environment)
  3. Environment variables (COLLECTE_*, LOG_LEVEL, LOG_FORMAT)
  4. Command-line flags (-port, -driver, -db, -redis)

UNITS:
  COLLECTE_COLLECTEUR_SHARE and COLLECTE_TVA_RATE are fractions ("0.70",
  "0.1925"). Severity thresholds are percentages of the amount due ("20").
  COLLECTE_EPSILON is a currency amount.
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/focep/collecte-engine/commission"
	"github.com/focep/collecte-engine/generic"
	"github.com/focep/collecte-engine/versement"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port     int
	Driver   string
	DSN      string
	RedisURL string // empty disables the shared cache and lock
	CacheTTL time.Duration
	LockTTL  time.Duration

	Currency             generic.Currency
	CollecteurShare      decimal.Decimal
	TVARate              decimal.Decimal
	TierMode             commission.TierMode
	StrictTiers          bool
	PromotionGraceMonths float64

	Epsilon          decimal.Decimal
	SeverityCritical decimal.Decimal
	SeverityHigh     decimal.Decimal
	SeverityMedium   decimal.Decimal
	MaxCommentLength int

	LogLevel  slog.Level
	LogFormat string // "json" or "text"
}

// Default returns the production constants with a local SQLite file.
func Default() Config {
	split := commission.DefaultSplitPolicy()
	rc := versement.DefaultConfig()
	return Config{
		Port:             8080,
		Driver:           DriverSQLite,
		DSN:              "collecte.db",
		CacheTTL:         5 * time.Minute,
		LockTTL:          30 * time.Second,
		Currency:         generic.DefaultCurrency,
		CollecteurShare:  split.CollecteurShare,
		TVARate:          split.TVARate,
		TierMode:         commission.TierFlat,
		Epsilon:          rc.Epsilon,
		SeverityCritical: rc.CriticalAbove,
		SeverityHigh:     rc.HighAbove,
		SeverityMedium:   rc.MediumAbove,
		MaxCommentLength: rc.MaxCommentLength,
		LogLevel:         slog.LevelInfo,
		LogFormat:        "json",
	}
}

// Load reads defaults, the optional .env file, the environment and args,
// then validates the result.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	fset := flag.NewFlagSet("collecte", flag.ContinueOnError)
	fset.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fset.StringVar(&cfg.Driver, "driver", cfg.Driver, "storage driver: sqlite or postgres")
	fset.StringVar(&cfg.DSN, "db", cfg.DSN, `database path (sqlite, ":memory:" allowed) or DSN (postgres)`)
	fset.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "redis URL for the parameter cache and closing lock")
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dec := func(key string, dst *decimal.Decimal) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, parse func(string) error) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			if err := parse(strings.TrimSpace(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	num("COLLECTE_PORT", func(v string) (err error) { c.Port, err = strconv.Atoi(v); return })
	str("COLLECTE_DB_DRIVER", &c.Driver)
	str("COLLECTE_DB_DSN", &c.DSN)
	str("COLLECTE_REDIS_URL", &c.RedisURL)
	dur("COLLECTE_CACHE_TTL", &c.CacheTTL)
	dur("COLLECTE_LOCK_TTL", &c.LockTTL)

	var currency string
	str("COLLECTE_CURRENCY", &currency)
	if currency != "" {
		c.Currency = generic.Currency(strings.ToUpper(currency))
	}
	dec("COLLECTE_COLLECTEUR_SHARE", &c.CollecteurShare)
	dec("COLLECTE_TVA_RATE", &c.TVARate)
	var mode string
	str("COLLECTE_TIER_MODE", &mode)
	if mode != "" {
		c.TierMode = commission.TierMode(strings.ToLower(mode))
	}
	num("COLLECTE_STRICT_TIERS", func(v string) (err error) { c.StrictTiers, err = strconv.ParseBool(v); return })
	num("COLLECTE_PROMOTION_GRACE_MONTHS", func(v string) (err error) {
		c.PromotionGraceMonths, err = strconv.ParseFloat(v, 64)
		return
	})

	dec("COLLECTE_EPSILON", &c.Epsilon)
	dec("COLLECTE_SEVERITY_CRITICAL", &c.SeverityCritical)
	dec("COLLECTE_SEVERITY_HIGH", &c.SeverityHigh)
	dec("COLLECTE_SEVERITY_MEDIUM", &c.SeverityMedium)
	num("COLLECTE_MAX_COMMENT_LENGTH", func(v string) (err error) { c.MaxCommentLength, err = strconv.Atoi(v); return })

	num("LOG_LEVEL", func(v string) error { return c.LogLevel.UnmarshalText([]byte(v)) })
	str("LOG_FORMAT", &c.LogFormat)
	c.LogFormat = strings.ToLower(c.LogFormat)

	return errors.Join(errs...)
}

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Driver != DriverSQLite && c.Driver != DriverPostgres {
		errs = append(errs, fmt.Errorf("unknown driver %q", c.Driver))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache TTL must be positive"))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, errors.New("lock TTL must be positive"))
	}
	if !c.TierMode.Valid() {
		errs = append(errs, fmt.Errorf("unknown tier mode %q", c.TierMode))
	}
	if c.PromotionGraceMonths < 0 {
		errs = append(errs, errors.New("promotion grace must not be negative"))
	}
	if err := c.SplitPolicy().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.ReconcilerConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func (c Config) SplitPolicy() commission.SplitPolicy {
	return commission.SplitPolicy{CollecteurShare: c.CollecteurShare, TVARate: c.TVARate}
}

func (c Config) ReconcilerConfig() versement.Config {
	return versement.Config{
		Epsilon:          c.Epsilon,
		CriticalAbove:    c.SeverityCritical,
		HighAbove:        c.SeverityHigh,
		MediumAbove:      c.SeverityMedium,
		MaxCommentLength: c.MaxCommentLength,
	}
}

// Logger builds the process logger.
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
