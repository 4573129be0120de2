package delaydb

import (
	"fmt"

	"routeeta.transit.dev/internal/appconf"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config selects the database holding delay observations.
type Config struct {
	Driver  string
	DSN     string
	Env     appconf.Environment
	verbose bool
}

func NewConfig(driver, dsn string, env appconf.Environment, verbose bool) Config {
	if driver == "" {
		driver = DriverSQLite
	}
	return Config{
		Driver:  driver,
		DSN:     dsn,
		Env:     env,
		verbose: verbose,
	}
}

func (c Config) validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported history database driver %q (%s|%s)", c.Driver, DriverSQLite, DriverPostgres)
	}
	if c.DSN == "" {
		return fmt.Errorf("history database DSN is required")
	}
	if c.Env == appconf.Test && c.Driver == DriverSQLite && c.DSN != ":memory:" {
		return fmt.Errorf("test database must use in-memory storage, got path: %s", c.DSN)
	}
	return nil
}
