// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Environment variables
// referenced as ${VAR} are expanded before parsing, so secrets like the
// fallback session cookie pair never live in the file itself.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}

	return LoadFromBytes(data)
}

// applyDefaults fills in default values for anything the file omits.
func applyDefaults(cfg *Config) {
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// The submission flow includes deliberate multi-second pacing
		// delays plus up to two remote fetches.
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}

	if cfg.Scrape.BaseURL == "" {
		cfg.Scrape.BaseURL = "https://www.strava.com"
	}
	if cfg.Scrape.ShortLinkHost == "" {
		cfg.Scrape.ShortLinkHost = "strava.app.link"
	}
	if cfg.Scrape.DetailSuffix == "" {
		cfg.Scrape.DetailSuffix = "overview"
	}
	if cfg.Scrape.RequestTimeout == 0 {
		cfg.Scrape.RequestTimeout = 30 * time.Second
	}
	if cfg.Scrape.RateLimit == 0 {
		cfg.Scrape.RateLimit = 1.0
	}
	if cfg.Scrape.RateBurst == 0 {
		cfg.Scrape.RateBurst = 3
	}
	if cfg.Scrape.RedirectDelay == 0 {
		cfg.Scrape.RedirectDelay = time.Second
	}
	if cfg.Scrape.SettleDelay == 0 {
		cfg.Scrape.SettleDelay = 3 * time.Second
	}
	if cfg.Scrape.Browser != nil && cfg.Scrape.Browser.Timeout == 0 {
		cfg.Scrape.Browser.Timeout = 30 * time.Second
	}

	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = "excel"
	}
	if cfg.Ledger.Quota == 0 {
		cfg.Ledger.Quota = 4
	}
	if cfg.Ledger.Excel.RegistrationsSheet == "" {
		cfg.Ledger.Excel.RegistrationsSheet = "Registrations"
	}
	if cfg.Ledger.Excel.SubmissionsSheet == "" {
		cfg.Ledger.Excel.SubmissionsSheet = "Submissions"
	}
	if cfg.Ledger.Database != nil {
		if cfg.Ledger.Database.RegistrationsTable == "" {
			cfg.Ledger.Database.RegistrationsTable = "registrations"
		}
		if cfg.Ledger.Database.SubmissionsTable == "" {
			cfg.Ledger.Database.SubmissionsTable = "submissions"
		}
	}
	if cfg.Ledger.Mongo != nil {
		if cfg.Ledger.Mongo.RegistrationsCollection == "" {
			cfg.Ledger.Mongo.RegistrationsCollection = "registrations"
		}
		if cfg.Ledger.Mongo.SubmissionsCollection == "" {
			cfg.Ledger.Mongo.SubmissionsCollection = "submissions"
		}
	}

	if cfg.Assets.PublicBaseURL == "" {
		cfg.Assets.PublicBaseURL = "/proofs"
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "runproof"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Template returns a starter configuration for the `template` subcommand.
func Template() Config {
	cfg := Config{
		Server: ServerConfig{
			Address: ":8080",
		},
		Scrape: ScrapeConfig{
			BaseURL:       "https://www.strava.com",
			ShortLinkHost: "strava.app.link",
			DetailSuffix:  "overview",
			Credentials: CredentialsConfig{
				RememberID:    "${STRAVA_REMEMBER_ID}",
				RememberToken: "${STRAVA_REMEMBER_TOKEN}",
			},
		},
		Ledger: LedgerConfig{
			Backend: "excel",
			Excel: ExcelLedger{
				Path: "data/ledger.xlsx",
			},
		},
		Assets: AssetsConfig{
			Dir:           "data/proofs",
			PublicBaseURL: "/proofs",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
	applyDefaults(&cfg)
	return cfg
}
