// Package source reads dossiers from the external dossier database and writes the
// clerk's annotations back to it on a best-effort basis.
//
// The database belongs to the diagnostics software the business runs, so the table
// and column names used here are an external contract and must not change. Queries go
// through database/sql; the driver is chosen from the configured descriptor:
//
//   - sqlite (modernc.org/sqlite): a local database file, the default
//   - duckdb (github.com/marcboeker/go-duckdb/v2): a DuckDB export of the database
//   - pgx (github.com/jackc/pgx/v5/stdlib): a PostgreSQL mirror, addressed by URL
//
// Every row is decoded once, right after the query, into a typed Record or ClientCard;
// nothing downstream reads columns by name.
package source
