// Package common provides shared utilities for MCP tool implementations: the
// instrumentation wrapper, argument helpers and JSON results.
package common
