package topology

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"routeeta.transit.dev/internal/logging"
)

const maxStaticSize = 200 * 1024 * 1024

// GTFSSource is a static GTFS zip, read from disk or downloaded.
type GTFSSource struct {
	URL                   string
	StaticAuthHeaderKey   string
	StaticAuthHeaderValue string
}

func (src GTFSSource) isLocalFile() bool {
	return !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://")
}

func (src GTFSSource) raw(ctx context.Context) ([]byte, error) {
	if src.isLocalFile() {
		b, err := os.ReadFile(src.URL)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GTFS request: %w", err)
	}
	if src.StaticAuthHeaderKey != "" && src.StaticAuthHeaderValue != "" {
		req.Header.Set(src.StaticAuthHeaderKey, src.StaticAuthHeaderValue)
	}

	client := &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "gtfs_downloader")),
		"http_response_body")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download GTFS data: received HTTP status %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	if int64(len(b)) > maxStaticSize {
		return nil, fmt.Errorf("static GTFS response exceeds size limit of %d bytes", maxStaticSize)
	}
	return b, nil
}

// LoadGTFS builds an Index from a static GTFS feed.
func LoadGTFS(ctx context.Context, src GTFSSource) (*Index, error) {
	logger := slog.Default().With(slog.String("component", "gtfs_loader"))
	start := time.Now()

	b, err := src.raw(ctx)
	if err != nil {
		return nil, err
	}
	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("error parsing GTFS data: %w", err)
	}

	idx, err := IndexFromStatic(staticData)
	if err != nil {
		return nil, err
	}

	logging.LogOperation(logger, "gtfs_topology_loaded",
		slog.String("source", src.URL),
		slog.Int("routes", len(idx.routes)),
		slog.Int("route_stops", idx.StopCount()),
		slog.Int("parse_warnings", len(staticData.Warnings)),
		slog.Duration("duration", time.Since(start)))
	return idx, nil
}

// IndexFromStatic turns parsed GTFS into topologies. Each route is
// represented by its longest trip (ties go to the lowest trip id); the
// feed's stop ids must be integers.
func IndexFromStatic(staticData *gtfs.Static) (*Index, error) {
	representative := make(map[string]*gtfs.ScheduledTrip)
	for i := range staticData.Trips {
		trip := &staticData.Trips[i]
		if trip.Route == nil {
			continue
		}
		current, ok := representative[trip.Route.Id]
		if !ok || len(trip.StopTimes) > len(current.StopTimes) ||
			(len(trip.StopTimes) == len(current.StopTimes) && trip.ID < current.ID) {
			representative[trip.Route.Id] = trip
		}
	}

	routes := make([]*Route, 0, len(staticData.Routes))
	for i := range staticData.Routes {
		gtfsRoute := &staticData.Routes[i]
		trip, ok := representative[gtfsRoute.Id]
		if !ok || len(trip.StopTimes) == 0 {
			continue
		}

		stops := make([]Stop, 0, len(trip.StopTimes))
		for _, st := range trip.StopTimes {
			stop, err := stopFromStopTime(gtfsRoute.Id, st)
			if err != nil {
				return nil, err
			}
			stops = append(stops, stop)
		}

		route, err := NewRoute(gtfsRoute.Id, gtfsRoute.ShortName, stops)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}

	return NewIndex(routes)
}

func stopFromStopTime(routeID string, st gtfs.ScheduledStopTime) (Stop, error) {
	if st.Stop == nil {
		return Stop{}, fmt.Errorf("route %q: stop time %d has no stop", routeID, st.StopSequence)
	}
	stopID, err := strconv.Atoi(st.Stop.Id)
	if err != nil {
		return Stop{}, fmt.Errorf("route %q: stop id %q is not an integer: %w", routeID, st.Stop.Id, err)
	}
	if st.Stop.Latitude == nil || st.Stop.Longitude == nil {
		return Stop{}, fmt.Errorf("route %q: stop %d has no coordinates", routeID, stopID)
	}

	var name *string
	if st.Stop.Name != "" {
		n := st.Stop.Name
		name = &n
	}

	arrival := st.ArrivalTime
	if arrival == 0 {
		arrival = st.DepartureTime
	}

	return Stop{
		StopID:        stopID,
		Name:          name,
		Sequence:      st.StopSequence,
		Lat:           *st.Stop.Latitude,
		Lon:           *st.Stop.Longitude,
		ScheduledTime: TimeOfDayFromDuration(arrival),
	}, nil
}
