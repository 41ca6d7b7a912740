package projection

import (
	"sort"

	"github.com/diagimmo/suiviclientpro/internal/annotations"
	"github.com/diagimmo/suiviclientpro/internal/source"
)

// Annotations provides the overlay of a dossier. *annotations.Store satisfies it.
type Annotations interface {
	Get(id string) annotations.Entry
}

// Sort orders rows by one column. The zero value keeps source order.
type Sort struct {
	Column     Column
	Descending bool
	Enabled    bool
}

// Project filters records, merges their annotations and sorts the result.
func Project(records []source.Record, notes Annotations, f Filter, s Sort) []Row {
	kept := Apply(records, f.Predicates()...)
	rows := make([]Row, len(kept))
	for i, r := range kept {
		rows[i] = Row{
			ID:            r.ID,
			MissionType:   r.MissionType,
			Schedule:      r.Schedule,
			PaymentStatus: r.PaymentStatus,
			Path:          r.Path,
		}
		if notes != nil {
			rows[i].apply(notes.Get(r.ID))
		}
	}
	SortRows(rows, s)
	return rows
}

// SortRows sorts rows in place by the display string of s.Column. Equal keys keep
// their relative order in both directions.
func SortRows(rows []Row, s Sort) {
	if !s.Enabled {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Cell(s.Column), rows[j].Cell(s.Column)
		if s.Descending {
			return a > b
		}
		return a < b
	})
}
