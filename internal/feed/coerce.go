package feed

import (
	"strconv"
	"strings"
	"time"
)

// updateTimeLayout is the GENERAL section UPDATE field format (yyyyMMddHHmmss)
const updateTimeLayout = "20060102150405"

// ToFloat converts a feed field to a float64, returning fallback for empty or
// malformed values
func ToFloat(s string, fallback float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

// ToInt converts a feed field to an int, returning fallback for empty or
// malformed values
func ToInt(s string, fallback int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Some feeds emit integers as "123.0"
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int(f)
		}
		return fallback
	}
	return v
}

// ToBool converts a feed field to a bool. Accepts 1/0, true/false, Y/N; any
// other value yields fallback.
func ToBool(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	default:
		return fallback
	}
}

// ParseUpdateTime parses the UPDATE timestamp field. The feed transmits it as
// yyyyMMddHHmmss in UTC.
func ParseUpdateTime(s string) (time.Time, error) {
	return time.ParseInLocation(updateTimeLayout, strings.TrimSpace(s), time.UTC)
}

// IsNumeric reports whether the field parses as a float
func IsNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
