package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"routeeta.transit.dev/internal/appconf"
	"routeeta.transit.dev/internal/logging"
)

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	var (
		cfg            appconf.Config
		dataCfg        appconf.DataConfig
		configFile     string
		envFlag        string
		apiKeysFlag    string
		exemptKeysFlag string
		originsFlag    string
		estimatorFlag  string
	)

	flag.StringVar(&configFile, "f", "", "Path to a JSON config file (overrides all other flags)")
	flag.IntVar(&cfg.Port, "port", envIntOr("ROUTEETA_PORT", 8000), "API server port")
	flag.StringVar(&envFlag, "env", envOr("ROUTEETA_ENV", "development"), "Environment (development|test|production)")
	flag.StringVar(&apiKeysFlag, "api-keys", envOr("ROUTEETA_API_KEYS", ""), "Comma separated API keys; empty leaves the API open")
	flag.StringVar(&exemptKeysFlag, "exempt-api-keys", envOr("ROUTEETA_EXEMPT_API_KEYS", ""), "Comma separated API keys exempt from rate limiting")
	flag.IntVar(&cfg.RateLimit, "rate-limit", envIntOr("ROUTEETA_RATE_LIMIT", 100), "Requests per second per API key (0 disables)")
	flag.BoolVar(&cfg.Verbose, "verbose", os.Getenv("ROUTEETA_VERBOSE") == "true", "Enable debug logging")
	flag.DurationVar(&cfg.RequestTimeout, "request-timeout", envDurationOr("ROUTEETA_REQUEST_TIMEOUT", 8*time.Second), "Per request deadline")
	flag.StringVar(&originsFlag, "allowed-origins", envOr("ROUTEETA_ALLOWED_ORIGINS", "http://localhost:5173"), "Comma separated CORS origins, or *")

	flag.StringVar(&dataCfg.RouteIndexPath, "route-index", envOr("ROUTEETA_ROUTE_INDEX", ""), "Route index JSON file")
	flag.StringVar(&dataCfg.GtfsURL, "gtfs-url", envOr("ROUTEETA_GTFS_URL", ""), "Static GTFS zip path or URL (alternative to -route-index)")
	flag.StringVar(&dataCfg.GtfsAuthHeaderKey, "gtfs-auth-header-key", envOr("ROUTEETA_GTFS_AUTH_HEADER_KEY", ""), "Header name sent when downloading the GTFS zip")
	flag.StringVar(&dataCfg.GtfsAuthHeaderValue, "gtfs-auth-header-value", envOr("ROUTEETA_GTFS_AUTH_HEADER_VALUE", ""), "Header value sent when downloading the GTFS zip")
	flag.StringVar(&dataCfg.HistoryCSVPath, "history-csv", envOr("ROUTEETA_HISTORY_CSV", ""), "Historical delay CSV")
	flag.StringVar(&dataCfg.HistoryDriver, "history-driver", envOr("ROUTEETA_HISTORY_DRIVER", "sqlite3"), "Delay database driver (sqlite3|pgx)")
	flag.StringVar(&dataCfg.HistoryDSN, "history-dsn", envOr("ROUTEETA_HISTORY_DSN", ""), "Delay database DSN")
	flag.StringVar(&estimatorFlag, "estimator", envOr("ROUTEETA_ESTIMATOR", string(appconf.HistoricalEstimator)), "Delay estimator (historical|model)")
	flag.StringVar(&dataCfg.PredictorURL, "predictor-url", envOr("ROUTEETA_PREDICTOR_URL", ""), "Model prediction endpoint")
	flag.StringVar(&dataCfg.EncoderPath, "encoder-path", envOr("ROUTEETA_ENCODER_PATH", ""), "Route label encoder JSON")
	flag.DurationVar(&dataCfg.PredictorTimeout, "predictor-timeout", envDurationOr("ROUTEETA_PREDICTOR_TIMEOUT", 2*time.Second), "Model prediction timeout")
	flag.StringVar(&dataCfg.Timezone, "timezone", envOr("ROUTEETA_TIMEZONE", ""), "IANA timezone for naive timestamps (default local)")
	flag.Parse()

	if configFile != "" {
		jsonConfig, err := appconf.LoadFromFile(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config file: %v\n", err)
			os.Exit(1)
		}
		cfg = jsonConfig.ToAppConfig()
		dataCfg = jsonConfig.ToDataConfig()
	} else {
		env, err := appconf.EnvFlagToEnvironment(envFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.Env = env
		cfg.ApiKeys = ParseAPIKeys(apiKeysFlag)
		cfg.ExemptApiKeys = ParseAPIKeys(exemptKeysFlag)
		cfg.AllowedOrigins = ParseOrigins(originsFlag)
		dataCfg.Estimator = appconf.EstimatorKind(estimatorFlag)
	}

	coreApp, err := BuildApplication(cfg, dataCfg)
	if err != nil {
		logging.LogError(slog.Default(), "failed to build application", err)
		os.Exit(1)
	}

	srv, api, err := CreateServer(coreApp, cfg)
	if err != nil {
		logging.LogError(coreApp.Logger, "failed to create server", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, srv, coreApp, api); err != nil {
		logging.LogError(coreApp.Logger, "server stopped with error", err)
		os.Exit(1)
	}
}
