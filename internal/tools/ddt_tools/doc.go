// Package ddt_tools provides the MCP tool scanning the Gmail SENT folder for DDT
// attachments.
//
// Available Tools:
//   - ddt_scan: Resume the attachment scan and optionally flag the matching dossiers
package ddt_tools
