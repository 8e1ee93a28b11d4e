package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv returns the value of an environment variable or a default value if not set.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt returns the value of an environment variable as an integer,
// or a default value if not set or if parsing fails.
func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

// GetEnvInt64 is GetEnvInt for sizes that may exceed an int on 32-bit targets.
func GetEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

// GetEnvBool returns the value of an environment variable as a boolean,
// or a default value if not set or if parsing fails.
// Accepts: 1, t, T, TRUE, true, True, 0, f, F, FALSE, false, False
func GetEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// GetEnvDuration returns the value of an environment variable as a time.Duration,
// or the parsed default if not set or if parsing fails.
// Accepts formats like: "300ms", "1.5h", "2h45m"
func GetEnvDuration(key string, defaultValue string) time.Duration {
	value := os.Getenv(key)
	if value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}

	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// GetEnvList splits a comma separated variable, dropping blank items.
func GetEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// GetEnvIntList is GetEnvList for integers. Items that do not parse are skipped.
func GetEnvIntList(key string, defaultValue []int) []int {
	items := GetEnvList(key, nil)
	if items == nil {
		return defaultValue
	}

	out := make([]int, 0, len(items))
	for _, item := range items {
		if n, err := strconv.Atoi(item); err == nil {
			out = append(out, n)
		}
	}
	return out
}
