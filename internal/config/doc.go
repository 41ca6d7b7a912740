// Package config loads the configuration document and resolves the locations of the
// files the tool reads and writes.
//
// Settings come from, in increasing precedence: the JSON document
// (config_suiviclientpro.json), SUIVI_* environment variables (optionally loaded from a
// .env file) and command line flags applied by the caller.
package config
