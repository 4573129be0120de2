package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"routeeta.transit.dev/delaydb"
	"routeeta.transit.dev/internal/app"
	"routeeta.transit.dev/internal/appconf"
	"routeeta.transit.dev/internal/clock"
	"routeeta.transit.dev/internal/estimator"
	"routeeta.transit.dev/internal/eta"
	"routeeta.transit.dev/internal/history"
	"routeeta.transit.dev/internal/logging"
	"routeeta.transit.dev/internal/metrics"
	"routeeta.transit.dev/internal/restapi"
	"routeeta.transit.dev/internal/topology"
	"routeeta.transit.dev/internal/webui"
)

// pinnedNowEnv overrides "now" for demo deployments replaying a fixed day.
const pinnedNowEnv = "ROUTEETA_NOW"

const dbStatsInterval = 15 * time.Second

// ParseAPIKeys splits a comma separated key list and trims each key.
func ParseAPIKeys(apiKeysFlag string) []string {
	if apiKeysFlag == "" {
		return []string{}
	}
	keys := strings.Split(apiKeysFlag, ",")
	for i := range keys {
		keys[i] = strings.TrimSpace(keys[i])
	}
	return keys
}

// ParseOrigins is ParseAPIKeys with empty entries dropped.
func ParseOrigins(originsFlag string) []string {
	origins := []string{}
	for _, o := range ParseAPIKeys(originsFlag) {
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func newLogger(cfg appconf.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	if cfg.Env == appconf.Production {
		return logging.NewStructuredLogger(os.Stdout, level)
	}
	return logging.NewTextLogger(os.Stdout, level)
}

func loadTopology(ctx context.Context, dataCfg appconf.DataConfig) (*topology.Index, error) {
	if dataCfg.RouteIndexPath != "" {
		return topology.LoadRouteIndexFile(dataCfg.RouteIndexPath)
	}
	return topology.LoadGTFS(ctx, topology.GTFSSource{
		URL:                   dataCfg.GtfsURL,
		StaticAuthHeaderKey:   dataCfg.GtfsAuthHeaderKey,
		StaticAuthHeaderValue: dataCfg.GtfsAuthHeaderValue,
	})
}

// loadHistory builds the aggregate table. With both a CSV and a database
// configured, the CSV replaces the database contents and the table is
// built from the CSV.
func loadHistory(ctx context.Context, cfg appconf.Config, dataCfg appconf.DataConfig) (*history.Table, *delaydb.Client, error) {
	var client *delaydb.Client
	if dataCfg.HistoryDSN != "" {
		var err error
		client, err = delaydb.NewClient(ctx, delaydb.NewConfig(dataCfg.HistoryDriver, dataCfg.HistoryDSN, cfg.Env, cfg.Verbose))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open delay history database: %w", err)
		}
	}

	if dataCfg.HistoryCSVPath != "" && client == nil {
		table, err := history.LoadCSVFile(dataCfg.HistoryCSVPath)
		return table, nil, err
	}

	if dataCfg.HistoryCSVPath != "" {
		table, err := seedDelayDB(ctx, client, dataCfg.HistoryCSVPath)
		if err != nil {
			closeClient(client)
			return nil, nil, err
		}
		return table, client, nil
	}

	if client != nil {
		table, err := client.LoadTable(ctx)
		if err != nil {
			closeClient(client)
			return nil, nil, err
		}
		return table, client, nil
	}
	return nil, nil, nil
}

func seedDelayDB(ctx context.Context, client *delaydb.Client, path string) (*history.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("delay history not found at %s: %w", path, err)
	}
	defer logging.SafeCloseWithLogging(f, slog.Default(), "delay_history_file")

	records, skipped, err := history.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	if err := client.ReplaceRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to import delay history: %w", err)
	}
	logging.LogOperation(slog.Default(), "delay_history_imported",
		slog.String("driver", client.Driver()),
		slog.Int("records", len(records)),
		slog.Int("skipped", skipped))
	return history.NewTable(records)
}

func closeClient(client *delaydb.Client) {
	if client != nil {
		logging.SafeCloseWithLogging(client, slog.Default(), "delay_db")
	}
}

func buildEstimator(dataCfg appconf.DataConfig, table *history.Table, m *metrics.Metrics) (estimator.Estimator, error) {
	switch dataCfg.Estimator {
	case appconf.ModelEstimator:
		var encoder *estimator.LabelEncoder
		if dataCfg.EncoderPath != "" {
			var err error
			if encoder, err = estimator.LoadLabelEncoder(dataCfg.EncoderPath); err != nil {
				return nil, err
			}
		}
		predictor := estimator.NewHTTPPredictor(dataCfg.PredictorURL, dataCfg.PredictorTimeout)
		return estimator.NewModelBacked(predictor, encoder), nil
	default:
		if table == nil {
			return nil, errors.New("historical estimator requires delay history")
		}
		return estimator.NewHistorical(table, func(tier history.Tier) { m.ObserveTier(tier.String()) }), nil
	}
}

// BuildApplication loads every static input and wires the services. It
// fails on any missing or malformed input.
func BuildApplication(cfg appconf.Config, dataCfg appconf.DataConfig) (*app.Application, error) {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := dataCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid data configuration: %w", err)
	}
	loc, err := dataCfg.Location()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	start := time.Now()

	idx, err := loadTopology(ctx, dataCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load route topology: %w", err)
	}

	m := metrics.NewWithLogger(logger)

	table, client, err := loadHistory(ctx, cfg, dataCfg)
	if err != nil {
		return nil, err
	}
	if client != nil {
		m.StartDBStatsCollector(client.DB, dbStatsInterval)
	}

	est, err := buildEstimator(dataCfg, table, m)
	if err != nil {
		closeClient(client)
		m.Shutdown()
		return nil, err
	}

	appClock := clock.LocalClock{Clock: clock.NewPinnedClock(pinnedNowEnv, loc), Location: loc}
	service := &eta.Service{
		Topology:  idx,
		Estimator: est,
		Clock:     appClock,
		Location:  loc,
		Metrics:   m,
	}
	if table != nil {
		service.Representatives = table
	}

	logging.LogOperation(logger, "application_ready",
		slog.Int("routes", len(idx.Routes())),
		slog.Int("route_stops", idx.StopCount()),
		slog.String("estimator", est.Name()),
		slog.String("timezone", loc.String()),
		slog.Duration("duration", time.Since(start)))

	return &app.Application{
		Config:     cfg,
		DataConfig: dataCfg,
		Logger:     logger,
		Topology:   idx,
		History:    table,
		Estimator:  est,
		DelayDB:    client,
		ETAService: service,
		Clock:      appClock,
		Metrics:    m,
	}, nil
}

// CreateServer builds the HTTP server. The caller must Shutdown the
// returned RestAPI.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI, error) {
	api := restapi.NewRestAPI(coreApp)

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	webUI := &webui.WebUI{Application: coreApp}
	webUI.SetWebUIRoutes(mux)

	handler, err := api.WithMiddleware(mux)
	if err != nil {
		api.Shutdown()
		return nil, nil, err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}
	return srv, api, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger
	serverErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "server_starting",
			slog.String("addr", srv.Addr),
			slog.String("env", coreApp.Config.Env.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			releaseResources(coreApp, api)
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logging.LogOperation(logger, "server_shutting_down")
	err := srv.Shutdown(shutdownCtx)
	releaseResources(coreApp, api)

	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logging.LogOperation(logger, "server_stopped")
	return nil
}

func releaseResources(coreApp *app.Application, api *restapi.RestAPI) {
	api.Shutdown()
	if coreApp.Metrics != nil {
		coreApp.Metrics.Shutdown()
	}
	closeClient(coreApp.DelayDB)
}
