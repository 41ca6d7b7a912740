// Package projection turns dossier records and their annotations into the rows shown
// by the list views.
//
// Filtering is a conjunction of independent predicates over source fields only.
// Sorting is stable and compares the rendered display string of a column. Date
// columns therefore sort lexicographically on their DD/MM/YYYY rendering, day first,
// which is not chronological across months or years.
//
// Table holds the last projection and routes cell edits to the annotation store. Cells
// written while the table is being populated are never treated as edits.
package projection
