package application

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	billing "condo-cloud/internal/billing/domain"
)

// Config defines billing defaults.
type Config struct {
	Currency        string  `yaml:"currency"`
	DefaultMethod   string  `yaml:"default_method"`
	LateFeePercent  float64 `yaml:"late_fee_percent"`
	GraceDays       int     `yaml:"grace_days"`
	OverdueInterval string  `yaml:"overdue_interval"`
}

// LoadConfig loads billing config from yaml or env. The yaml file pointed
// to by BILLING_CONFIG overrides env defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		Currency:        getenvDefault("CURRENCY", "IRR"),
		DefaultMethod:   getenvDefault("BILLING_DEFAULT_METHOD", string(billing.DistributionEqual)),
		LateFeePercent:  getenvFloatDefault("BILLING_LATE_FEE_PERCENT", 0),
		GraceDays:       getenvIntDefault("BILLING_GRACE_DAYS", 0),
		OverdueInterval: getenvDefault("BILLING_OVERDUE_INTERVAL", "1h"),
	}

	if path := os.Getenv("BILLING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if _, err := billing.ParseDistributionMethod(cfg.DefaultMethod); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
