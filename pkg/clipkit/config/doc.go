/*
Package config loads the settings a clipkit session is initialized with.

# Overview

Two layers:

  - Config wraps a map[string]any decoded from YAML or JSON and offers
    typed accessors that fall back to defaults on missing keys or type
    mismatches.
  - Settings is the validated, typed snapshot every component receives.
    Parse turns a Config into Settings; unknown enum values and
    non-positive thresholds are rejected with ErrInvalidSettings.

# Recognized Keys

	environment:      development | production
	maxBundleSize:    bytes (advisory)
	cachePolicy:      aggressive | normal | reload-ignoring-cache
	analyticsMode:    verbose | optimized | strict-privacy
	securityLevel:    standard | strict
	batchSize:        event count that triggers a flush
	flushInterval:    seconds, or a Go duration string ("45s")
	retentionPeriod:  days, or a Go duration string ("36h")
	privacyAllowList: property keys kept in strict-privacy mode
	identifierKeys:   property keys always stripped in strict-privacy mode

# Loading

A session pulls settings through a Loader:

	loader := config.File("clip.yaml")
	settings, err := loader.Load(ctx)

	// Or fixed settings, handy in tests:
	loader = config.Static(config.Defaults())

# Thread Safety

Config and Settings are values; neither is modified after creation.
*/
package config
