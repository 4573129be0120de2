package delaydb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db     DBTX
	driver string
}

func New(db DBTX, driver string) *Queries {
	return &Queries{db: db, driver: driver}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, driver: q.driver}
}

// rebind rewrites ? placeholders to $n for postgres.
func (q *Queries) rebind(query string) string {
	if q.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type Observation struct {
	TripID         sql.NullString
	RouteID        string
	RouteShortName string
	StopID         int64
	DayOfWeek      int64
	HourOfDay      int64
	HolidayFlag    int64
	DelayMinutes   float64
}

const createObservation = `
INSERT INTO delay_observations (
    trip_id, route_id, route_short_name, stop_id, day_of_week, hour_of_day, holiday_flag, delay_minutes
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateObservation(ctx context.Context, arg Observation) error {
	_, err := q.db.ExecContext(ctx, q.rebind(createObservation),
		arg.TripID,
		arg.RouteID,
		arg.RouteShortName,
		arg.StopID,
		arg.DayOfWeek,
		arg.HourOfDay,
		arg.HolidayFlag,
		arg.DelayMinutes,
	)
	return err
}

const listObservations = `
SELECT
    trip_id,
    route_id,
    route_short_name,
    stop_id,
    day_of_week,
    hour_of_day,
    holiday_flag,
    delay_minutes
FROM
    delay_observations
ORDER BY
    route_id,
    stop_id
`

func (q *Queries) ListObservations(ctx context.Context) ([]Observation, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(listObservations))
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Observation
	for rows.Next() {
		var i Observation
		if err := rows.Scan(
			&i.TripID,
			&i.RouteID,
			&i.RouteShortName,
			&i.StopID,
			&i.DayOfWeek,
			&i.HourOfDay,
			&i.HolidayFlag,
			&i.DelayMinutes,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countObservations = `SELECT COUNT(*) FROM delay_observations`

func (q *Queries) CountObservations(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countObservations).Scan(&count)
	return count, err
}

const clearObservations = `DELETE FROM delay_observations`

func (q *Queries) ClearObservations(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, clearObservations)
	return err
}
