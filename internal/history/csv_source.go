package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"routeeta.transit.dev/internal/logging"
)

var requiredColumns = []string{
	"route_id",
	"route_short_name",
	"stop_id",
	"day_of_week",
	"hour_of_day",
	"delay_minutes",
}

func parseHeader(r *csv.Reader) (map[string]int, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read delay history header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("delay history is missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// parseInt accepts integers written as floats ("12.0"), which is how
// spreadsheet exports tend to store ids.
func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// ReadCSV parses delay observations. Rows whose stop id, calendar context or
// delay cannot be parsed are skipped and counted, as are NaN and infinite
// delays. trip_id and holiday_flag are optional; an unreadable holiday
// flag reads as 0.
func ReadCSV(r io.Reader) ([]Record, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	idx, err := parseHeader(cr)
	if err != nil {
		return nil, 0, err
	}

	var (
		records []Record
		skipped int
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("read delay history row %d: %w", line, err)
		}
		field := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		stopID, ok1 := parseInt(field("stop_id"))
		dow, ok2 := parseInt(field("day_of_week"))
		hour, ok3 := parseInt(field("hour_of_day"))
		delay, err := strconv.ParseFloat(field("delay_minutes"), 64)
		if !ok1 || !ok2 || !ok3 || err != nil || math.IsNaN(delay) || math.IsInf(delay, 0) {
			skipped++
			continue
		}
		holiday, _ := parseInt(field("holiday_flag"))
		if holiday != 1 {
			holiday = 0
		}
		records = append(records, Record{
			TripID:         field("trip_id"),
			RouteID:        field("route_id"),
			RouteShortName: field("route_short_name"),
			StopID:         stopID,
			DayOfWeek:      dow,
			HourOfDay:      hour,
			HolidayFlag:    holiday,
			DelayMinutes:   delay,
		})
	}
	return records, skipped, nil
}

// LoadCSVFile reads path and builds a Table.
func LoadCSVFile(path string) (*Table, error) {
	logger := slog.Default().With(slog.String("component", "history_loader"))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("delay history not found at %s: %w", path, err)
	}
	defer logging.SafeCloseWithLogging(f, logger, "delay_history_file")

	records, skipped, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	table, err := NewTable(records)
	if err != nil {
		return nil, fmt.Errorf("delay history at %s: %w", path, err)
	}

	stats := table.Stats()
	logging.LogOperation(logger, "delay_history_loaded",
		slog.String("source", path),
		slog.Int("records", stats.Records),
		slog.Int("skipped_rows", skipped),
		slog.Int("routes", stats.Routes))
	return table, nil
}
