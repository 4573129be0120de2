package restapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheControlHeaders(t *testing.T) {
	api := createTestApi(t)
	server := newTestServer(t, api)

	tests := []struct {
		name           string
		method         string
		endpoint       string
		body           string
		expectedHeader string
	}{
		{
			name:           "Route Topology (Long Cache)",
			method:         http.MethodGet,
			endpoint:       "/api/routes?key=TEST",
			expectedHeader: "public, max-age=300",
		},
		{
			name:           "Current Time (No Cache)",
			method:         http.MethodGet,
			endpoint:       "/api/current-time?key=TEST",
			expectedHeader: "no-cache, no-store, must-revalidate",
		},
		{
			name:           "Predictions (No Cache)",
			method:         http.MethodPost,
			endpoint:       "/api/predictions/route_eta?key=TEST",
			body:           `{"route_short_name":"142","from_stop_id":1,"to_stop_id":2}`,
			expectedHeader: "no-cache, no-store, must-revalidate",
		},
		{
			name:           "Error Response (No Cache on 404)",
			method:         http.MethodGet,
			endpoint:       "/api/routes/missing/stops?key=TEST",
			expectedHeader: "no-cache, no-store, must-revalidate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, server.URL+tt.endpoint, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedHeader, resp.Header.Get("Cache-Control"), "Cache-Control header mismatch for %s", tt.endpoint)
		})
	}
}

func TestCacheControlImplicitStatus(t *testing.T) {
	handler := CacheControlMiddleware(60, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
}
