package appconf

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// JSONConfig is the on-disk form of Config and DataConfig. Keys mirror the
// command line flags.
type JSONConfig struct {
	Port           int      `json:"port"`
	Env            string   `json:"env"`
	ApiKeys        []string `json:"api-keys"`
	ExemptApiKeys  []string `json:"exempt-api-keys"`
	RateLimit      int      `json:"rate-limit"`
	Verbose        bool     `json:"verbose"`
	RequestTimeout string   `json:"request-timeout"`
	AllowedOrigins []string `json:"allowed-origins"`

	RouteIndexPath   string `json:"route-index"`
	GtfsURL          string `json:"gtfs-url"`
	GtfsAuthKey      string `json:"gtfs-auth-header-key"`
	GtfsAuthValue    string `json:"gtfs-auth-header-value"`
	HistoryCSVPath   string `json:"history-csv"`
	HistoryDriver    string `json:"history-driver"`
	HistoryDSN       string `json:"history-dsn"`
	Estimator        string `json:"estimator"`
	PredictorURL     string `json:"predictor-url"`
	EncoderPath      string `json:"encoder-path"`
	PredictorTimeout string `json:"predictor-timeout"`
	Timezone         string `json:"timezone"`

	env              Environment
	requestTimeout   time.Duration
	predictorTimeout time.Duration
}

// LoadFromFile reads and validates a JSON config file.
func LoadFromFile(path string) (*JSONConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config file %q: %w", path, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var cfg JSONConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func parseOptionalDuration(name, s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}

func (c *JSONConfig) validate() error {
	var err error
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate-limit must not be negative")
	}
	if c.env, err = EnvFlagToEnvironment(c.Env); err != nil {
		return err
	}
	if c.requestTimeout, err = parseOptionalDuration("request-timeout", c.RequestTimeout); err != nil {
		return err
	}
	if c.predictorTimeout, err = parseOptionalDuration("predictor-timeout", c.PredictorTimeout); err != nil {
		return err
	}
	return c.ToDataConfig().Validate()
}

func (c *JSONConfig) ToAppConfig() Config {
	return Config{
		Port:           c.Port,
		Env:            c.env,
		ApiKeys:        c.ApiKeys,
		ExemptApiKeys:  c.ExemptApiKeys,
		Verbose:        c.Verbose,
		RateLimit:      c.RateLimit,
		RequestTimeout: c.requestTimeout,
		AllowedOrigins: c.AllowedOrigins,
	}
}

func (c *JSONConfig) ToDataConfig() DataConfig {
	return DataConfig{
		RouteIndexPath:      c.RouteIndexPath,
		GtfsURL:             c.GtfsURL,
		GtfsAuthHeaderKey:   c.GtfsAuthKey,
		GtfsAuthHeaderValue: c.GtfsAuthValue,
		HistoryCSVPath:      c.HistoryCSVPath,
		HistoryDriver:       c.HistoryDriver,
		HistoryDSN:          c.HistoryDSN,
		Estimator:           EstimatorKind(c.Estimator),
		PredictorURL:        c.PredictorURL,
		EncoderPath:         c.EncoderPath,
		PredictorTimeout:    c.predictorTimeout,
		Timezone:            c.Timezone,
	}
}
