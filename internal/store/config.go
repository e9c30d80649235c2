package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"trade-report/internal/types"
)

const dateLayout = "2006-01-02"

type Config struct {
	Capital      float64 `yaml:"capital"`
	Currency     string  `yaml:"currency"`
	Timezone     string  `yaml:"timezone"`
	Tolerance    float64 `yaml:"tolerance"`
	DeriveAmount bool    `yaml:"derive_amount"`
	StateDir     string  `yaml:"state_dir"`
	JournalDir   string  `yaml:"journal_dir"`
	ReportDir    string  `yaml:"report_dir"`
	// RetentionDays is how long journal files stay uncompressed. Zero keeps them all.
	RetentionDays int `yaml:"retention_days"`
	Exclusions struct {
		Symbols   []string `yaml:"symbols"`
		DateRange struct {
			Start string `yaml:"start"`
			End   string `yaml:"end"`
		} `yaml:"date_range"`
	} `yaml:"exclusions"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		System      string  `yaml:"system"`
		MaxAttempts int     `yaml:"max_attempts"`
	} `yaml:"llm"`
	Broker struct {
		Source   string `yaml:"source"`
		Exchange string `yaml:"exchange"`
		Limit    int    `yaml:"limit"`
		URL      string `yaml:"url"`
	} `yaml:"broker"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Currency == "" {
		c.Currency = "USDT"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Tolerance == 0 {
		c.Tolerance = 1e-8
	}
	if c.StateDir == "" {
		c.StateDir = ".tradereport"
	}
	if c.JournalDir == "" {
		c.JournalDir = "logs"
	}
	if c.ReportDir == "" {
		c.ReportDir = "reports"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "NONE"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.LLM.MaxAttempts == 0 {
		c.LLM.MaxAttempts = 1
	}
	if c.Broker.Source == "" {
		c.Broker.Source = "FILE"
	}
	if c.Broker.Limit == 0 {
		c.Broker.Limit = 500
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	c.LLM.Provider = strings.ToUpper(c.LLM.Provider)
	c.Broker.Source = strings.ToUpper(c.Broker.Source)
}

func (c *Config) Validate() error {
	if c.Capital < 0 {
		return fmt.Errorf("capital must not be negative, got %.2f", c.Capital)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative, got %d", c.RetentionDays)
	}
	switch c.LLM.Provider {
	case "NONE", "OPENAI", "CLAUDE":
	default:
		return fmt.Errorf("llm.provider must be 'NONE', 'OPENAI' or 'CLAUDE', got '%s'", c.LLM.Provider)
	}
	switch c.Broker.Source {
	case "FILE", "ZERODHA", "ALPACA":
	case "URL":
		if c.Broker.URL == "" {
			return errors.New("broker.url is required when broker.source is 'URL'")
		}
	default:
		return fmt.Errorf("broker.source must be 'FILE', 'ZERODHA', 'ALPACA' or 'URL', got '%s'", c.Broker.Source)
	}
	if _, err := c.ExclusionSet(); err != nil {
		return err
	}
	return nil
}

// Location returns the timezone used to interpret spreadsheet dates.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ExclusionSet converts the yaml exclusions into the analyzer's structure.
// A date range needs both bounds; a half-filled range is an error.
func (c *Config) ExclusionSet() (types.Exclusions, error) {
	ex := types.Exclusions{SymbolSubstrings: append([]string(nil), c.Exclusions.Symbols...)}

	start, end := c.Exclusions.DateRange.Start, c.Exclusions.DateRange.End
	if start == "" && end == "" {
		return ex, nil
	}
	if start == "" || end == "" {
		return ex, errors.New("exclusions.date_range needs both start and end")
	}

	dr, err := ParseDateRange(start, end, c.Location())
	if err != nil {
		return ex, err
	}
	ex.DateRange = dr
	return ex, nil
}

// ParseDateRange parses two YYYY-MM-DD bounds in loc.
func ParseDateRange(start, end string, loc *time.Location) (*types.DateRange, error) {
	s, err := time.ParseInLocation(dateLayout, strings.TrimSpace(start), loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date range start '%s': %w", start, err)
	}
	e, err := time.ParseInLocation(dateLayout, strings.TrimSpace(end), loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date range end '%s': %w", end, err)
	}
	if e.Before(s) {
		return nil, fmt.Errorf("date range end %s is before start %s", end, start)
	}
	return &types.DateRange{Start: s, End: e}, nil
}

// LoadConfig reads path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
