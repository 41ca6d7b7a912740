// Package dossier_tools provides MCP tools to list, inspect and annotate dossiers and
// to map client folders to the record source.
//
// Available Tools:
//   - dossier_list: List dossiers with search, type and payment filters
//   - dossier_filter_options: List the mission type and payment filter choices
//   - dossier_get: Show the client card of a dossier
//   - dossier_client_folders: List dossiers whose client folder exists on disk
//   - dossier_annotate: Set sanitation, case status or comment of one or more dossiers
//   - dossier_set_ddt_sent: Set or clear the DDT-sent flag of one or more dossiers
//   - dossier_reconcile_folders: Map client folders on disk to the record source
//
// The write tools are not registered in read-only mode.
package dossier_tools
