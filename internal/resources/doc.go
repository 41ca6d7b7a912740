// Package resources exposes the documents of the tool as read-only MCP resources:
// the effective configuration, the annotation document and the DDT scan history.
package resources
