// Package folders reconciles the client folders found on disk with the dossier
// identifiers of the record source.
//
// Folder names and identifiers are typed by hand in two different programs, so both
// sides are reduced to a canonical comparison key with Normalize before they are
// intersected. The eligible set is cached in the configuration document and gates
// which dossiers the client-folder table shows.
package folders
