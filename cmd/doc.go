// Package cmd implements the command-line interface for suiviclientpro.
//
// This package provides the following commands:
//   - list: Show the dossier table with search, type, payment and sort options
//   - filters: Show the mission types and payment statuses available as filters
//   - show: Show the client card of a dossier
//   - annotate: Set sanitation, case status, comment or DDT-sent flag of a dossier
//   - configure: Show or change the configuration document
//   - folders: Show the client-folder table, or reconcile folders with the database
//   - scan-ddt: Scan the Gmail SENT folder for DDT attachments
//   - repair: Recover entries from a damaged annotation document
//   - auth: Authorize Gmail access
//   - export-pdf: Export the client card (not implemented)
//   - serve: Start the MCP server to provide tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The list command is the default command when no subcommand is specified.
package cmd
