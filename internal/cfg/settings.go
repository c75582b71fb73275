package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"bci-trainer/internal/common"
)

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getFloatOrDefault(key, defaultValue)
}

// getFloatsFromEnvOrConfig parses a comma separated list such as "20,10,30,60".
// A malformed env value is an error rather than a silent fallback.
func getFloatsFromEnvOrConfig(key string, configValue []float64) ([]float64, error) {
	if env := os.Getenv(key); env != "" {
		return parseFloatList(env)
	}
	if len(configValue) > 0 {
		return append([]float64(nil), configValue...), nil
	}
	return defaultFreqBands(), nil
}

func parseFloatList(v string) ([]float64, error) {
	parts := strings.Split(v, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q in list %q: %w", p, v, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func defaultFreqBands() []float64 {
	return append([]float64(nil), common.DefaultFreqBands...)
}
