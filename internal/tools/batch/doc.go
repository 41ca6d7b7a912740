// Package batch applies one operation to several dossiers and reports partial
// failures per dossier.
package batch
