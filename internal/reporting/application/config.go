package application

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config defines reporting defaults.
type Config struct {
	// OpeningBalance seeds the fund balance line of balance reports, in
	// minor currency units. Supplied externally; payments and expenses
	// before system adoption are not in the ledger.
	OpeningBalance int64 `yaml:"opening_balance"`
	// TopN caps the ranked lists in reports (top paying units, largest
	// expenses). Zero disables the cap.
	TopN int `yaml:"top_n"`
}

// LoadConfig loads reporting config from env, with an optional yaml
// override pointed to by REPORTING_CONFIG.
func LoadConfig() (Config, error) {
	cfg := Config{
		OpeningBalance: getenvInt64Default("REPORTING_OPENING_BALANCE", 0),
		TopN:           int(getenvInt64Default("REPORTING_TOP_N", 5)),
	}
	if path := os.Getenv("REPORTING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func getenvInt64Default(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
