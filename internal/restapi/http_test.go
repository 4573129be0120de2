package restapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"routeeta.transit.dev/internal/app"
	"routeeta.transit.dev/internal/appconf"
	"routeeta.transit.dev/internal/clock"
	"routeeta.transit.dev/internal/estimator"
	"routeeta.transit.dev/internal/eta"
	"routeeta.transit.dev/internal/history"
	"routeeta.transit.dev/internal/logging"
	"routeeta.transit.dev/internal/metrics"
	"routeeta.transit.dev/internal/models"
	"routeeta.transit.dev/internal/topology"
)

// testNow is a Monday, so day_of_week is 0.
var testNow = time.Date(2024, 1, 1, 7, 45, 0, 0, time.UTC)

func testTopology(t *testing.T) *topology.Index {
	t.Helper()
	at := func(s string) topology.TimeOfDay {
		v, err := topology.ParseTimeOfDay(s)
		require.NoError(t, err)
		return v
	}
	first, second, third := "First Ave", "Second Ave", "Third Ave"
	route, err := topology.NewRoute("R142", "142", []topology.Stop{
		{StopID: 1, Name: &first, Sequence: 0, Lat: 0, Lon: 0, ScheduledTime: at("08:00:00")},
		{StopID: 2, Name: &second, Sequence: 1, Lat: 0.01, Lon: 0.01, ScheduledTime: at("08:10:00")},
		{StopID: 3, Name: &third, Sequence: 2, Lat: 0.02, Lon: 0.02, ScheduledTime: at("08:20:00")},
	})
	require.NoError(t, err)
	far, err := topology.NewRoute("R9", "9", []topology.Stop{
		{StopID: 90, Sequence: 0, Lat: 0.03, Lon: 0.03, ScheduledTime: at("09:00:00")},
	})
	require.NoError(t, err)

	idx, err := topology.NewIndex([]*topology.Route{route, far})
	require.NoError(t, err)
	return idx
}

func testHistory(t *testing.T) *history.Table {
	t.Helper()
	table, err := history.NewTable([]history.Record{
		{RouteID: "R142", RouteShortName: "142", StopID: 1, DayOfWeek: 0, HourOfDay: 7, DelayMinutes: 2},
		{RouteID: "R142", RouteShortName: "142", StopID: 2, DayOfWeek: 0, HourOfDay: 7, DelayMinutes: 5},
		{RouteID: "R142", RouteShortName: "142", StopID: 3, DayOfWeek: 0, HourOfDay: 7, DelayMinutes: 2},
	})
	require.NoError(t, err)
	return table
}

func createTestApplication(t *testing.T, c clock.Clock) *app.Application {
	t.Helper()
	m := metrics.New()
	idx := testTopology(t)
	table := testHistory(t)
	est := estimator.NewHistorical(table, func(tier history.Tier) { m.ObserveTier(tier.String()) })

	return &app.Application{
		Config: appconf.Config{
			Env:       appconf.Test,
			ApiKeys:   []string{"TEST"},
			RateLimit: 100,
		},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Topology:  idx,
		History:   table,
		Estimator: est,
		ETAService: &eta.Service{
			Topology:        idx,
			Estimator:       est,
			Representatives: table,
			Clock:           c,
			Location:        time.UTC,
			Metrics:         m,
		},
		Clock:   c,
		Metrics: m,
	}
}

// createTestApi creates a RestAPI over a single three-stop route.
func createTestApi(t *testing.T) *RestAPI {
	return createTestApiWithClock(t, clock.NewMockClock(testNow))
}

func createTestApiWithClock(t *testing.T, c clock.Clock) *RestAPI {
	api := NewRestAPI(createTestApplication(t, c))
	t.Cleanup(api.Shutdown)
	return api
}

func newTestServer(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	handler, err := api.WithMiddleware(mux)
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func decodeResponse(t *testing.T, resp *http.Response) models.ResponseModel {
	t.Helper()
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "test")),
		"http_response_body")

	var response models.ResponseModel
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	return response
}

// serveAndRetrieveEndpoint sets up a test server, makes a request to the specified endpoint, and returns the response
// and decoded model.
func serveAndRetrieveEndpoint(t *testing.T, endpoint string) (*RestAPI, *http.Response, models.ResponseModel) {
	api := createTestApi(t)
	resp, model := serveApiAndRetrieveEndpoint(t, api, endpoint)
	return api, resp, model
}

func serveApiAndRetrieveEndpoint(t *testing.T, api *RestAPI, endpoint string) (*http.Response, models.ResponseModel) {
	server := newTestServer(t, api)
	resp, err := http.Get(server.URL + endpoint)
	require.NoError(t, err)
	return resp, decodeResponse(t, resp)
}

func postJSON(t *testing.T, api *RestAPI, endpoint string, body string) (*http.Response, models.ResponseModel) {
	server := newTestServer(t, api)
	resp, err := http.Post(server.URL+endpoint, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp, decodeResponse(t, resp)
}
