package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"routeeta.transit.dev/internal/app"
	"routeeta.transit.dev/internal/appconf"
)

func TestParseAPIKeys(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Single key",
			input:    "test-key",
			expected: []string{"test-key"},
		},
		{
			name:     "Multiple keys",
			input:    "key1,key2,key3",
			expected: []string{"key1", "key2", "key3"},
		},
		{
			name:     "Keys with spaces",
			input:    " key1 , key2 , key3 ",
			expected: []string{"key1", "key2", "key3"},
		},
		{
			name:     "Empty string",
			input:    "",
			expected: []string{},
		},
		{
			name:     "Only commas",
			input:    ",,,",
			expected: []string{"", "", "", ""},
		},
		{
			name:     "Trailing comma",
			input:    "key1,",
			expected: []string{"key1", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseAPIKeys(tt.input))
		})
	}
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{}, ParseOrigins(""))
	assert.Equal(t, []string{"*"}, ParseOrigins(" * "))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, ParseOrigins("http://a.test,, http://b.test ,"))
}

func testConfig(port int) appconf.Config {
	return appconf.Config{
		Port:      port,
		Env:       appconf.Test,
		ApiKeys:   []string{"test"},
		RateLimit: 100,
	}
}

func testDataConfig() appconf.DataConfig {
	return appconf.DataConfig{
		RouteIndexPath: filepath.Join("testdata", "route_index.json"),
		HistoryCSVPath: filepath.Join("testdata", "history.csv"),
		Estimator:      appconf.HistoricalEstimator,
		Timezone:       "UTC",
	}
}

func buildTestApplication(t *testing.T, cfg appconf.Config, dataCfg appconf.DataConfig) *app.Application {
	t.Helper()
	coreApp, err := BuildApplication(cfg, dataCfg)
	require.NoError(t, err, "BuildApplication should not return an error")
	t.Cleanup(func() {
		coreApp.Metrics.Shutdown()
		if coreApp.DelayDB != nil {
			_ = coreApp.DelayDB.Close()
		}
	})
	return coreApp
}

func TestBuildApplicationWithRouteIndex(t *testing.T) {
	cfg := testConfig(4000)
	dataCfg := testDataConfig()

	coreApp := buildTestApplication(t, cfg, dataCfg)

	assert.NotNil(t, coreApp.Logger, "Logger should be initialized")
	assert.Equal(t, cfg, coreApp.Config, "Config should match input")
	assert.Equal(t, dataCfg, coreApp.DataConfig, "DataConfig should match input")
	assert.True(t, coreApp.IsReady())
	assert.Len(t, coreApp.Topology.Routes(), 1)
	assert.Equal(t, 3, coreApp.Topology.StopCount())
	require.NotNil(t, coreApp.History)
	assert.Equal(t, "historical", coreApp.Estimator.Name())
	assert.NotNil(t, coreApp.ETAService.Representatives)
	assert.Nil(t, coreApp.DelayDB)
}

func TestBuildApplicationSeedsDelayDatabase(t *testing.T) {
	dataCfg := testDataConfig()
	dataCfg.HistoryDriver = "sqlite3"
	dataCfg.HistoryDSN = ":memory:"

	coreApp := buildTestApplication(t, testConfig(4000), dataCfg)

	require.NotNil(t, coreApp.DelayDB)
	records, err := coreApp.DelayDB.LoadRecords(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestBuildApplicationModelEstimator(t *testing.T) {
	dataCfg := testDataConfig()
	dataCfg.HistoryCSVPath = ""
	dataCfg.Estimator = appconf.ModelEstimator
	dataCfg.PredictorURL = "http://127.0.0.1:1/predict"
	dataCfg.PredictorTimeout = time.Second

	coreApp := buildTestApplication(t, testConfig(4000), dataCfg)

	assert.Equal(t, "model", coreApp.Estimator.Name())
	assert.Nil(t, coreApp.History)
	assert.Nil(t, coreApp.ETAService.Representatives, "no history means no representative lookup")
}

func TestBuildApplicationErrorHandling(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*appconf.DataConfig)
		wantErr string
	}{
		{
			name:    "missing route index",
			mutate:  func(c *appconf.DataConfig) { c.RouteIndexPath = "/nonexistent/route_index.json" },
			wantErr: "failed to load route topology",
		},
		{
			name:    "missing history",
			mutate:  func(c *appconf.DataConfig) { c.HistoryCSVPath = "/nonexistent/history.csv" },
			wantErr: "delay history not found",
		},
		{
			name:    "no topology source",
			mutate:  func(c *appconf.DataConfig) { c.RouteIndexPath = "" },
			wantErr: "invalid data configuration",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *appconf.DataConfig) { c.Timezone = "Mars/Olympus" },
			wantErr: "invalid timezone",
		},
		{
			name: "missing encoder",
			mutate: func(c *appconf.DataConfig) {
				c.Estimator = appconf.ModelEstimator
				c.PredictorURL = "http://127.0.0.1:1/predict"
				c.EncoderPath = "/nonexistent/encoder.json"
			},
			wantErr: "encoder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataCfg := testDataConfig()
			tt.mutate(&dataCfg)
			_, err := BuildApplication(testConfig(4000), dataCfg)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.wantErr)
		})
	}
}

func TestCreateServer(t *testing.T) {
	cfg := testConfig(8080)
	coreApp := buildTestApplication(t, cfg, testDataConfig())

	srv, api, err := CreateServer(coreApp, cfg)
	require.NoError(t, err)
	defer api.Shutdown()

	assert.Equal(t, ":8080", srv.Addr, "Server address should match port")
	assert.NotNil(t, srv.Handler, "Server handler should be set")
	assert.NotNil(t, srv.ErrorLog)
	assert.Equal(t, time.Minute, srv.IdleTimeout, "IdleTimeout should be 1 minute")
	assert.Equal(t, 5*time.Second, srv.ReadTimeout, "ReadTimeout should be 5 seconds")
	assert.Equal(t, 10*time.Second, srv.WriteTimeout, "WriteTimeout should be 10 seconds")
}

func TestCreateServerHandlerResponds(t *testing.T) {
	cfg := testConfig(8080)
	coreApp := buildTestApplication(t, cfg, testDataConfig())

	srv, api, err := CreateServer(coreApp, cfg)
	require.NoError(t, err)
	defer api.Shutdown()

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"routes", http.MethodGet, "/api/routes?key=test", "", http.StatusOK},
		{"routes without key", http.MethodGet, "/api/routes", "", http.StatusUnauthorized},
		{"route eta", http.MethodPost, "/api/predictions/route_eta?key=test",
			`{"route_short_name":"142","from_stop_id":1,"to_stop_id":3,"timestamp_iso":"2024-01-01T07:45:00Z"}`, http.StatusOK},
		{"unknown route", http.MethodPost, "/api/predictions/route_eta?key=test",
			`{"route_short_name":"999"}`, http.StatusNotFound},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"debug", http.MethodGet, "/debug", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

func TestRunWithPortZeroAndImmediateShutdown(t *testing.T) {
	cfg := testConfig(0)
	coreApp, err := BuildApplication(cfg, testDataConfig())
	require.NoError(t, err)

	srv, api, err := CreateServer(coreApp, cfg)
	require.NoError(t, err)
	srv.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, coreApp, api) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "Server should shutdown cleanly")
	case <-time.After(10 * time.Second):
		t.Fatal("Test timeout - server did not shutdown")
	}
}

func TestConfigFileLoading(t *testing.T) {
	jsonConfig, err := appconf.LoadFromFile(filepath.Join("testdata", "config_valid.json"))
	require.NoError(t, err)

	appCfg := jsonConfig.ToAppConfig()
	assert.Equal(t, 3000, appCfg.Port)
	assert.Equal(t, appconf.Test, appCfg.Env)
	assert.Equal(t, []string{"test"}, appCfg.ApiKeys)

	coreApp := buildTestApplication(t, appCfg, jsonConfig.ToDataConfig())
	assert.True(t, coreApp.IsReady())
}
