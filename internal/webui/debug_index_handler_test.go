package webui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"routeeta.transit.dev/internal/app"
	"routeeta.transit.dev/delaydb"
	"routeeta.transit.dev/internal/appconf"
	"routeeta.transit.dev/internal/history"
	"routeeta.transit.dev/internal/topology"
)

func testWebUI(t *testing.T, env appconf.Environment) *WebUI {
	t.Helper()
	route, err := topology.NewRoute("R142", "142", []topology.Stop{{StopID: 1}, {StopID: 2, Sequence: 1}})
	require.NoError(t, err)
	idx, err := topology.NewIndex([]*topology.Route{route})
	require.NoError(t, err)
	table, err := history.NewTable([]history.Record{{RouteID: "R142", RouteShortName: "142", StopID: 1, DelayMinutes: 2}})
	require.NoError(t, err)

	return &WebUI{Application: &app.Application{
		Config:   appconf.Config{Env: env, ApiKeys: []string{"secret-key"}},
		Topology: idx,
		History:  table,
	}}
}

func TestDebugIndexHandler_ProductionReturns404(t *testing.T) {
	webUI := testWebUI(t, appconf.Production)

	req := httptest.NewRequest(http.MethodGet, "/debug?dataType=routes", nil)
	rr := httptest.NewRecorder()

	webUI.debugIndexHandler(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code, "Should return 404 in Production")
}

func TestDebugIndexHandler_DataTypes(t *testing.T) {
	webUI := testWebUI(t, appconf.Development)

	tests := []struct {
		dataType string
		title    string
		contains string
	}{
		{"routes", "Route topology", "R142"},
		{"aggregates", "Delay aggregates", "GlobalMean"},
		{"estimator", "Estimator", "not loaded"},
		{"config", "Configuration", "***"},
		{"bogus", "Choose a data type", "Please use one of the following"},
	}

	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/debug?dataType="+tt.dataType, nil)
			rr := httptest.NewRecorder()

			webUI.debugIndexHandler(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, rr.Body.String(), tt.title)
			assert.Contains(t, rr.Body.String(), tt.contains)
			assert.NotContains(t, rr.Body.String(), "secret-key")
		})
	}
}

func TestDebugIndexHandler_AggregatesIncludeDatabaseCounts(t *testing.T) {
	webUI := testWebUI(t, appconf.Development)

	ctx := context.Background()
	client, err := delaydb.NewClient(ctx, delaydb.NewConfig(delaydb.DriverSQLite, ":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.ReplaceRecords(ctx, []history.Record{
		{RouteID: "R142", RouteShortName: "142", StopID: 1, DelayMinutes: 2},
		{RouteID: "R142", RouteShortName: "142", StopID: 2, DelayMinutes: 3},
	}))
	webUI.DelayDB = client

	rr := httptest.NewRecorder()
	webUI.debugIndexHandler(rr, httptest.NewRequest(http.MethodGet, "/debug?dataType=aggregates", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "delay_observations")
	assert.Contains(t, rr.Body.String(), "sqlite3")
}

func TestDebugIndexHandler_RoutesIncludeBounds(t *testing.T) {
	webUI := testWebUI(t, appconf.Development)

	rr := httptest.NewRecorder()
	webUI.debugIndexHandler(rr, httptest.NewRequest(http.MethodGet, "/debug?dataType=routes", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "MinLat")
}

func TestSetWebUIRoutes(t *testing.T) {
	webUI := testWebUI(t, appconf.Test)
	mux := http.NewServeMux()
	webUI.SetWebUIRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/debug?dataType=routes", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}
