// Package logging provides structured logging utilities for suiviclientpro.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "source.fetch_all")
//	logger.Warn("row skipped",
//	    logging.Dossier(id),
//	    logging.Err(err))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("scan started",
//	    logging.UserHash(email))
//
// Client e-mail addresses read from the dossier database are never logged in clear.
package logging
