package config

import (
	"math"
	"time"
)

// Config wraps a map[string]any for type-safe value extraction.
// All accessor methods return default values if the key is missing
// or the value cannot be converted to the requested type.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the string value for key, or defaultVal if missing or not a string.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not convertible.
// Floats are accepted only when they have no fractional part.
func (c Config) Int(key string, defaultVal int) int {
	v, ok := c.Int64(key)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// Int64 returns the integer value for key and whether it was present and integral.
func (c Config) Int64(key string) (int64, bool) {
	switch val := c.data[key].(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case uint64:
		return int64(val), true
	case float64:
		if val == float64(int64(val)) {
			return int64(val), true
		}
	}
	return 0, false
}

// Duration returns the duration for key, or defaultVal if missing or invalid.
//
// Accepts:
//   - string: parsed with time.ParseDuration ("30s", "168h")
//   - int, int64, float64: a count of unit (seconds for flushInterval,
//     days for retentionPeriod)
//   - time.Duration: used directly
//
// Counts that overflow saturate at the int64 bounds.
func (c Config) Duration(key string, unit time.Duration, defaultVal time.Duration) time.Duration {
	switch val := c.data[key].(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		if math.IsNaN(val) {
			return defaultVal
		}
		return scaleFloat(val, unit)
	case int:
		return scaleInt(int64(val), unit)
	case int64:
		return scaleInt(val, unit)
	case time.Duration:
		return val
	}
	return defaultVal
}

// scaleInt returns n*unit, saturating at the int64 bounds instead of wrapping.
func scaleInt(n int64, unit time.Duration) time.Duration {
	if unit <= 0 {
		return time.Duration(n) * unit
	}
	limit := int64(math.MaxInt64 / unit)
	switch {
	case n > limit:
		return math.MaxInt64
	case n < -limit:
		return math.MinInt64
	}
	return time.Duration(n) * unit
}

func scaleFloat(f float64, unit time.Duration) time.Duration {
	d := f * float64(unit)
	switch {
	case d >= math.MaxInt64:
		return math.MaxInt64
	case d <= math.MinInt64:
		return math.MinInt64
	}
	return time.Duration(d)
}

// StringSlice returns the string slice for key, or defaultVal if missing or
// if any element is not a string.
func (c Config) StringSlice(key string, defaultVal []string) []string {
	switch val := c.data[key].(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			result = append(result, s)
		}
		return result
	}
	return defaultVal
}

// Has returns true if the key exists in the config.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}
