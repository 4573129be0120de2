package app

import (
	"log/slog"

	"routeeta.transit.dev/delaydb"
	"routeeta.transit.dev/internal/appconf"
	"routeeta.transit.dev/internal/clock"
	"routeeta.transit.dev/internal/estimator"
	"routeeta.transit.dev/internal/eta"
	"routeeta.transit.dev/internal/history"
	"routeeta.transit.dev/internal/metrics"
	"routeeta.transit.dev/internal/topology"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware. Everything here is built once at startup and is
// read-only afterwards.
type Application struct {
	Config     appconf.Config
	DataConfig appconf.DataConfig
	Logger     *slog.Logger
	Topology   *topology.Index
	// History is nil when the estimator does not need aggregates.
	History   *history.Table
	Estimator estimator.Estimator
	// DelayDB is set when history was loaded from a database.
	DelayDB    *delaydb.Client
	ETAService *eta.Service
	Clock      clock.Clock
	Metrics    *metrics.Metrics
}

// IsReady reports whether the application can serve predictions.
func (app *Application) IsReady() bool {
	return app != nil && app.Topology != nil && app.Estimator != nil && app.ETAService != nil
}
