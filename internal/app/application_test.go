package app

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"routeeta.transit.dev/internal/appconf"
	"routeeta.transit.dev/internal/eta"
	"routeeta.transit.dev/internal/estimator"
	"routeeta.transit.dev/internal/topology"
)

func TestIsReady(t *testing.T) {
	var nilApp *Application
	assert.False(t, nilApp.IsReady())
	assert.False(t, (&Application{}).IsReady())

	route, err := topology.NewRoute("R1", "1", []topology.Stop{{StopID: 1}})
	require.NoError(t, err)
	idx, err := topology.NewIndex([]*topology.Route{route})
	require.NoError(t, err)
	est := estimator.NewHistorical(nil, nil)
	ready := &Application{Topology: idx, Estimator: est, ETAService: &eta.Service{Topology: idx, Estimator: est}}
	assert.True(t, ready.IsReady())
}

func TestIsInvalidAPIKey(t *testing.T) {
	app := &Application{Config: appconf.Config{ApiKeys: []string{"test", "other"}}}

	tests := []struct {
		key     string
		invalid bool
	}{
		{"", true},
		{"test", false},
		{"other", false},
		{"tes", true},
		{"TEST", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.invalid, app.IsInvalidAPIKey(tt.key))
		})
	}
}

func TestRequestHasInvalidAPIKey(t *testing.T) {
	app := &Application{Config: appconf.Config{ApiKeys: []string{"test"}}}

	assert.False(t, app.RequestHasInvalidAPIKey(httptest.NewRequest("GET", "/api/routes?key=test", nil)))
	assert.True(t, app.RequestHasInvalidAPIKey(httptest.NewRequest("GET", "/api/routes", nil)))
}

func TestOpenAPIWithoutKeys(t *testing.T) {
	app := &Application{}

	assert.False(t, app.IsInvalidAPIKey(""))
	assert.False(t, app.IsInvalidAPIKey("anything"))
}
