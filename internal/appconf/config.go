// Package appconf holds process-wide settings shared by the HTTP layer and
// the data loaders.
package appconf

import (
	"fmt"
	"strings"
	"time"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps the -env flag to an Environment.
func EnvFlagToEnvironment(env string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "development", "dev":
		return Development, nil
	case "test":
		return Test, nil
	case "production", "prod":
		return Production, nil
	default:
		return Development, fmt.Errorf("unknown environment %q (development|test|production)", env)
	}
}

type EstimatorKind string

const (
	HistoricalEstimator EstimatorKind = "historical"
	ModelEstimator      EstimatorKind = "model"
)

// Config holds the HTTP server settings.
type Config struct {
	Port           int
	Env            Environment
	ApiKeys        []string
	ExemptApiKeys  []string
	Verbose        bool
	RateLimit      int
	RequestTimeout time.Duration
	// AllowedOrigins lists browser origins granted CORS access. "*" allows any.
	AllowedOrigins []string
}

// DataConfig describes where the static inputs come from. Exactly one
// topology source and one history source must be set.
type DataConfig struct {
	// RouteIndexPath is a JSON file mapping route key -> ordered stop list.
	RouteIndexPath string
	// GtfsURL is a static GTFS zip, either a local path or an http(s) URL.
	GtfsURL string
	// Optional header sent when downloading GtfsURL.
	GtfsAuthHeaderKey   string
	GtfsAuthHeaderValue string

	// HistoryCSVPath is the historical delay dataset in CSV form.
	HistoryCSVPath string
	// HistoryDriver is "sqlite3" or "pgx"; HistoryDSN is the matching DSN.
	HistoryDriver string
	HistoryDSN    string

	Estimator        EstimatorKind
	PredictorURL     string
	EncoderPath      string
	PredictorTimeout time.Duration

	Timezone string
}

func (c DataConfig) Validate() error {
	if c.RouteIndexPath == "" && c.GtfsURL == "" {
		return fmt.Errorf("a route index or GTFS source is required")
	}
	if c.RouteIndexPath != "" && c.GtfsURL != "" {
		return fmt.Errorf("route index and GTFS source are mutually exclusive")
	}
	switch c.Estimator {
	case HistoricalEstimator, "":
		if c.HistoryCSVPath == "" && c.HistoryDSN == "" {
			return fmt.Errorf("historical estimator requires a history CSV or database")
		}
	case ModelEstimator:
		if c.PredictorURL == "" {
			return fmt.Errorf("model estimator requires a predictor URL")
		}
	default:
		return fmt.Errorf("unknown estimator %q (historical|model)", c.Estimator)
	}
	return nil
}

// Location resolves Timezone, defaulting to the local zone.
func (c DataConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
