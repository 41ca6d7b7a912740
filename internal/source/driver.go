package source

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
	DriverPgx    = "pgx"
)

// Descriptor locates the dossier database.
type Descriptor struct {
	// Driver is one of DriverSQLite, DriverDuckDB or DriverPgx. Empty means infer
	// from Path.
	Driver string
	// Path is a database file for the file drivers, a connection URL for pgx.
	Path string
	// ConnectTimeout bounds the initial connection check. Zero waits for the driver.
	ConnectTimeout time.Duration
}

// ResolveDriver returns the driver for d, inferring it from the path when unset.
func (d Descriptor) ResolveDriver() (string, error) {
	if d.Driver != "" {
		switch d.Driver {
		case DriverSQLite, DriverDuckDB, DriverPgx:
			return d.Driver, nil
		case "postgres", "postgresql":
			return DriverPgx, nil
		}
		return "", unavailable("unsupported driver %q (supported: sqlite, duckdb, pgx)", d.Driver)
	}

	lower := strings.ToLower(d.Path)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPgx, nil
	}
	switch filepath.Ext(lower) {
	case ".duckdb", ".ddb":
		return DriverDuckDB, nil
	case ".mdb", ".accdb":
		return "", unavailable("%s is a Microsoft Access file; no Access driver is built in, export it to SQLite or DuckDB", d.Path)
	}
	return DriverSQLite, nil
}

// isFileDriver reports whether the driver addresses a local file that must exist.
func isFileDriver(driver string) bool {
	return driver == DriverSQLite || driver == DriverDuckDB
}

// rebind rewrites '?' placeholders to the positional form pgx expects.
func rebind(driver, query string) string {
	if driver != DriverPgx || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
