// Package config reads the HW_* environment knobs. Every accessor runs
// env.Ensure first, which is once-guarded, so .env values are visible no
// matter which package touches configuration first.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sergeyboyko0791/hardware-wallet-api/internal/env"
)

func lookup(key string) string {
	_ = env.Ensure()
	return strings.TrimSpace(os.Getenv(key))
}

// String returns the trimmed environment variable or fallback when unset.
func String(key, fallback string) string {
	if val := lookup(key); val != "" {
		return val
	}
	return fallback
}

// Duration parses a time duration from the environment or returns fallback.
func Duration(key string, fallback time.Duration) time.Duration {
	val := lookup(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// Int returns an integer environment variable or fallback when invalid.
func Int(key string, fallback int) int {
	val := lookup(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// Bool parses a boolean environment variable, accepting 1/true/yes and
// 0/false/no.
func Bool(key string, fallback bool) bool {
	switch strings.ToLower(lookup(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}
