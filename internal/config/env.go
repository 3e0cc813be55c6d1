package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("[CONFIG] invalid %s=%q, using %t", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil || parsed.IsNegative() {
		log.Printf("[CONFIG] invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getLocationEnv(key string, defaultValue *time.Location) *time.Location {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	loc, err := time.LoadLocation(value)
	if err != nil {
		log.Printf("[CONFIG] invalid %s=%q: %v", key, value, err)
		return defaultValue
	}
	return loc
}
