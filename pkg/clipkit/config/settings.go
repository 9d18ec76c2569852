package config

import (
	"errors"
	"fmt"
	"time"
)

// Environment selects deployment-specific behavior.
type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentProduction  Environment = "production"
)

// CachePolicy is advisory for the fetch collaborator.
type CachePolicy string

const (
	CacheAggressive          CachePolicy = "aggressive"
	CacheNormal              CachePolicy = "normal"
	CacheReloadIgnoringCache CachePolicy = "reload-ignoring-cache"
)

// AnalyticsMode controls event verbosity and privacy filtering.
type AnalyticsMode string

const (
	AnalyticsVerbose       AnalyticsMode = "verbose"
	AnalyticsOptimized     AnalyticsMode = "optimized"
	AnalyticsStrictPrivacy AnalyticsMode = "strict-privacy"
)

// SecurityLevel controls whether session records are encrypted at rest.
type SecurityLevel string

const (
	SecurityStandard SecurityLevel = "standard"
	SecurityStrict   SecurityLevel = "strict"
)

// Keys recognized in configuration files.
const (
	KeyEnvironment     = "environment"
	KeyMaxBundleSize   = "maxBundleSize"
	KeyCachePolicy     = "cachePolicy"
	KeyAnalyticsMode   = "analyticsMode"
	KeySecurityLevel   = "securityLevel"
	KeyBatchSize       = "batchSize"
	KeyFlushInterval   = "flushInterval"
	KeyRetentionPeriod = "retentionPeriod"
	KeyAllowedKeys     = "privacyAllowList"
	KeyIdentifierKeys  = "identifierKeys"
)

// Day is the unit of retentionPeriod.
const Day = 24 * time.Hour

// MaxRetention bounds retentionPeriod so expiry times stay representable.
const MaxRetention = 100 * 365 * Day

// ErrInvalidSettings is wrapped by every validation failure from Parse and Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the typed configuration snapshot handed to every component
// when a session initializes.
type Settings struct {
	Environment   Environment
	MaxBundleSize int64 // bytes, advisory
	CachePolicy   CachePolicy
	AnalyticsMode AnalyticsMode
	SecurityLevel SecurityLevel

	// BatchSize is the buffered event count that triggers a flush.
	BatchSize int
	// FlushInterval is the longest time events wait in the buffer.
	FlushInterval time.Duration
	// RetentionPeriod is the default lifetime of stored entries.
	RetentionPeriod time.Duration

	// AllowedKeys lists the event property keys kept in strict-privacy mode.
	AllowedKeys []string
	// IdentifierKeys lists property keys that are always stripped in strict-privacy mode.
	// Nil means the analytics package defaults.
	IdentifierKeys []string
}

// Defaults returns the settings used for any key a source leaves out.
func Defaults() Settings {
	return Settings{
		Environment:     EnvironmentDevelopment,
		MaxBundleSize:   10 << 20,
		CachePolicy:     CacheNormal,
		AnalyticsMode:   AnalyticsOptimized,
		SecurityLevel:   SecurityStandard,
		BatchSize:       20,
		FlushInterval:   30 * time.Second,
		RetentionPeriod: 7 * Day,
	}
}

// Parse builds Settings from a Config, filling gaps from Defaults.
func Parse(c Config) (Settings, error) {
	d := Defaults()
	s := Settings{
		Environment:     Environment(c.String(KeyEnvironment, string(d.Environment))),
		CachePolicy:     CachePolicy(c.String(KeyCachePolicy, string(d.CachePolicy))),
		AnalyticsMode:   AnalyticsMode(c.String(KeyAnalyticsMode, string(d.AnalyticsMode))),
		SecurityLevel:   SecurityLevel(c.String(KeySecurityLevel, string(d.SecurityLevel))),
		BatchSize:       c.Int(KeyBatchSize, d.BatchSize),
		FlushInterval:   c.Duration(KeyFlushInterval, time.Second, d.FlushInterval),
		RetentionPeriod: c.Duration(KeyRetentionPeriod, Day, d.RetentionPeriod),
		AllowedKeys:     c.StringSlice(KeyAllowedKeys, nil),
		IdentifierKeys:  c.StringSlice(KeyIdentifierKeys, nil),
		MaxBundleSize:   d.MaxBundleSize,
	}
	if v, ok := c.Int64(KeyMaxBundleSize); ok {
		s.MaxBundleSize = v
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate reports the first out-of-range or unknown value.
func (s Settings) Validate() error {
	switch s.Environment {
	case EnvironmentDevelopment, EnvironmentProduction:
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidSettings, KeyEnvironment, s.Environment)
	}
	switch s.CachePolicy {
	case CacheAggressive, CacheNormal, CacheReloadIgnoringCache:
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidSettings, KeyCachePolicy, s.CachePolicy)
	}
	switch s.AnalyticsMode {
	case AnalyticsVerbose, AnalyticsOptimized, AnalyticsStrictPrivacy:
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidSettings, KeyAnalyticsMode, s.AnalyticsMode)
	}
	switch s.SecurityLevel {
	case SecurityStandard, SecurityStrict:
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidSettings, KeySecurityLevel, s.SecurityLevel)
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidSettings, KeyBatchSize, s.BatchSize)
	}
	if s.FlushInterval <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidSettings, KeyFlushInterval, s.FlushInterval)
	}
	if s.RetentionPeriod < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidSettings, KeyRetentionPeriod, s.RetentionPeriod)
	}
	if s.RetentionPeriod > MaxRetention {
		return fmt.Errorf("%w: %s must be at most %d days, got %s", ErrInvalidSettings, KeyRetentionPeriod, MaxRetention/Day, s.RetentionPeriod)
	}
	if s.MaxBundleSize < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidSettings, KeyMaxBundleSize, s.MaxBundleSize)
	}
	return nil
}

// StrictPrivacy reports whether analytics must apply the strict privacy policy.
func (s Settings) StrictPrivacy() bool {
	return s.AnalyticsMode == AnalyticsStrictPrivacy
}

// EncryptAtRest reports whether session records should be encrypted.
func (s Settings) EncryptAtRest() bool {
	return s.SecurityLevel == SecurityStrict
}
