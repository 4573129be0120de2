package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"routeeta.transit.dev/internal/appconf"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

type debugData struct {
	Title string
	Pre   string
}

var dumper = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true, MaxDepth: 6}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	err := debugTemplate.Execute(w, debugData{Title: title, Pre: dumper.Sdump(data)})
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// redactedConfig is the server config with API keys masked.
func redactedConfig(c appconf.Config) appconf.Config {
	mask := func(keys []string) []string {
		out := make([]string, len(keys))
		for i := range keys {
			out[i] = "***"
		}
		return out
	}
	c.ApiKeys = mask(c.ApiKeys)
	c.ExemptApiKeys = mask(c.ExemptApiKeys)
	return c
}

func redactedDataConfig(c appconf.DataConfig) appconf.DataConfig {
	if c.GtfsAuthHeaderValue != "" {
		c.GtfsAuthHeaderValue = "***"
	}
	return c
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Application == nil || webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	var data interface{}
	var title string

	switch r.URL.Query().Get("dataType") {
	case "routes":
		title = "Route topology"
		if webUI.Topology != nil {
			routes := make(map[string]interface{})
			for _, route := range webUI.Topology.Routes() {
				routes[route.Key()] = struct {
					ID        string
					ShortName string
					Stops     interface{}
				}{route.ID, route.ShortName, route.Stops()}
			}
			data = struct {
				Bounds interface{}
				Routes interface{}
			}{webUI.Topology.Bounds(), routes}
		}
	case "aggregates":
		title = "Delay aggregates"
		if webUI.History != nil {
			aggregates := struct {
				Stats    interface{}
				Routes   interface{}
				Database interface{}
			}{Stats: webUI.History.Stats(), Routes: webUI.History.RouteKeys()}
			if webUI.DelayDB != nil {
				counts, err := webUI.DelayDB.TableCounts(r.Context())
				if err != nil {
					slog.Error("failed to count delay observations", "error", err)
				} else {
					aggregates.Database = struct {
						Driver string
						Counts map[string]int64
					}{webUI.DelayDB.Driver(), counts}
				}
			}
			data = aggregates
		}
	case "estimator":
		title = "Estimator"
		if webUI.Estimator != nil {
			data = map[string]string{"name": webUI.Estimator.Name()}
		}
	case "config":
		title = "Configuration"
		data = struct {
			Server appconf.Config
			Data   appconf.DataConfig
		}{redactedConfig(webUI.Config), redactedDataConfig(webUI.DataConfig)}
	default:
		data = map[string]string{
			"error": "Please use one of the following: routes, aggregates, estimator, config.",
		}
		title = "Choose a data type"
	}

	if data == nil {
		data = map[string]string{"error": "not loaded"}
	}
	writeDebugData(w, title, data)
}
