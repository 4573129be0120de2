// Package delaydb stores delay observations in SQLite or Postgres and
// rebuilds the historical aggregate table from them.
package delaydb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver registered as "pgx"
	_ "github.com/mattn/go-sqlite3"    // CGo-based SQLite driver
	"routeeta.transit.dev/internal/history"
	"routeeta.transit.dev/internal/logging"
)

//go:embed schema.sql
var ddl string

// Client is the entry point for the delay observation store.
type Client struct {
	config  Config
	DB      *sql.DB
	Queries *Queries
}

// NewClient opens the database and applies the schema.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	db, err := createDB(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	}
	if config.verbose {
		logging.LogOperation(slog.Default().With(slog.String("component", "delaydb")),
			"delay_tables_ready", slog.String("driver", config.Driver))
	}
	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db, config.Driver),
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) Driver() string {
	return c.config.Driver
}

func createDB(ctx context.Context, config Config) (*sql.DB, error) {
	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, err
	}
	configureConnectionPool(db, config)

	if config.Driver == DriverSQLite {
		if err := configureSQLitePerformance(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("error configuring SQLite performance: %w", err)
		}
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("error connecting to history database: %w", err)
		}
	}

	if err := performDatabaseMigration(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}
	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}

func configureSQLitePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		name        string
		description string
	}{
		{"PRAGMA cache_size=-64000", "Set cache size to 64MB"},
		{"PRAGMA temp_store=MEMORY", "Store temporary data in memory"},
	}

	logger := slog.Default().With(slog.String("component", "sqlite_performance"))
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma.name); err != nil {
			logging.LogError(logger, fmt.Sprintf("Failed to set %s", pragma.description), err)
			return fmt.Errorf("failed to execute %s: %w", pragma.name, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// configureConnectionPool limits :memory: databases to one connection,
// since every connection would otherwise see its own empty database.
func configureConnectionPool(db *sql.DB, config Config) {
	switch {
	case config.Driver == DriverSQLite && config.DSN == ":memory:":
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case config.Driver == DriverPostgres:
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
}

// ReplaceRecords clears the store and inserts records in one transaction.
func (c *Client) ReplaceRecords(ctx context.Context, records []history.Record) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "bulk_insert_observations")

	qtx := c.Queries.WithTx(tx)
	if err := qtx.ClearObservations(ctx); err != nil {
		return fmt.Errorf("error clearing delay observations: %w", err)
	}
	for _, r := range records {
		err := qtx.CreateObservation(ctx, Observation{
			TripID:         sql.NullString{String: r.TripID, Valid: r.TripID != ""},
			RouteID:        r.RouteID,
			RouteShortName: r.RouteShortName,
			StopID:         int64(r.StopID),
			DayOfWeek:      int64(r.DayOfWeek),
			HourOfDay:      int64(r.HourOfDay),
			HolidayFlag:    int64(r.HolidayFlag),
			DelayMinutes:   r.DelayMinutes,
		})
		if err != nil {
			return fmt.Errorf("unable to insert observation: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logging.LogOperation(logger, "observations_replaced",
		slog.Int("count", len(records)))
	return nil
}

// LoadRecords reads every stored observation.
func (c *Client) LoadRecords(ctx context.Context) ([]history.Record, error) {
	rows, err := c.Queries.ListObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing delay observations: %w", err)
	}
	records := make([]history.Record, 0, len(rows))
	for _, o := range rows {
		records = append(records, history.Record{
			TripID:         o.TripID.String,
			RouteID:        o.RouteID,
			RouteShortName: o.RouteShortName,
			StopID:         int(o.StopID),
			DayOfWeek:      int(o.DayOfWeek),
			HourOfDay:      int(o.HourOfDay),
			HolidayFlag:    int(o.HolidayFlag),
			DelayMinutes:   o.DelayMinutes,
		})
	}
	return records, nil
}

// LoadTable aggregates the stored observations.
func (c *Client) LoadTable(ctx context.Context) (*history.Table, error) {
	logger := slog.Default().With(slog.String("component", "history_loader"))
	start := time.Now()

	records, err := c.LoadRecords(ctx)
	if err != nil {
		return nil, err
	}
	table, err := history.NewTable(records)
	if err != nil {
		return nil, fmt.Errorf("delay history in %s database: %w", c.config.Driver, err)
	}

	logging.LogOperation(logger, "delay_history_loaded",
		slog.String("driver", c.config.Driver),
		slog.Int("records", len(records)),
		slog.Duration("duration", time.Since(start)))
	return table, nil
}

// TableCounts reports row counts for diagnostics.
func (c *Client) TableCounts(ctx context.Context) (map[string]int64, error) {
	n, err := c.Queries.CountObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count delay observations: %w", err)
	}
	return map[string]int64{"delay_observations": n}, nil
}
