package projection

import (
	"errors"
	"fmt"

	"github.com/diagimmo/suiviclientpro/internal/annotations"
	"github.com/diagimmo/suiviclientpro/internal/source"
)

var (
	// ErrReadOnlyColumn is returned when an edit targets a column holding source data.
	ErrReadOnlyColumn = errors.New("column is read-only")

	// ErrUnknownDossier is returned when an edit targets an identifier not shown by the table.
	ErrUnknownDossier = errors.New("dossier not in table")
)

// Store is the annotation store behind a Table. *annotations.Store satisfies it.
type Store interface {
	Annotations
	SetField(id string, f annotations.Field, value string) error
}

// Renderer receives every cell while the table is populated. A renderer that echoes
// cells back through CellChanged does not trigger writes.
type Renderer interface {
	SetCell(row int, col Column, value string)
}

// EditHook runs after an edit has been persisted to the store.
type EditHook func(id string, f annotations.Field, row Row)

// Table is the editable dossier view.
type Table struct {
	store      Store
	rows       []Row
	populating bool
	hooks      []EditHook
}

// NewTable returns an empty table backed by store.
func NewTable(store Store) *Table {
	return &Table{store: store}
}

// OnEdit registers a hook run after every persisted edit.
func (t *Table) OnEdit(h EditHook) {
	t.hooks = append(t.hooks, h)
}

// Rows returns the rows of the last Populate.
func (t *Table) Rows() []Row {
	return t.rows
}

// Populating reports whether the table is being filled.
func (t *Table) Populating() bool {
	return t.populating
}

// Populate projects records and hands every cell to r, which may be nil.
func (t *Table) Populate(records []source.Record, f Filter, s Sort, r Renderer) []Row {
	t.populating = true
	defer func() { t.populating = false }()

	t.rows = Project(records, t.store, f, s)
	if r != nil {
		for i, row := range t.rows {
			for _, c := range Columns {
				r.SetCell(i, c, row.Cell(c))
			}
		}
	}
	return t.rows
}

// CellChanged handles a cell edit of the row at index row.
// It reports whether the edit was persisted; edits received while populating are
// ignored.
func (t *Table) CellChanged(row int, col Column, value string) (bool, error) {
	if t.populating {
		return false, nil
	}
	if row < 0 || row >= len(t.rows) {
		return false, fmt.Errorf("row %d out of range (%d rows)", row, len(t.rows))
	}
	field, ok := col.Field()
	if !ok {
		return false, fmt.Errorf("%s: %w", col, ErrReadOnlyColumn)
	}

	id := t.rows[row].ID
	if err := t.store.SetField(id, field, value); err != nil {
		return false, fmt.Errorf("failed to save %s of %s: %w", field, id, err)
	}
	t.rows[row].apply(t.store.Get(id))
	for _, h := range t.hooks {
		h(id, field, t.rows[row])
	}
	return true, nil
}

// Edit applies an edit to the row showing dossier id.
func (t *Table) Edit(id string, col Column, value string) (Row, error) {
	for i := range t.rows {
		if t.rows[i].ID != id {
			continue
		}
		if _, err := t.CellChanged(i, col, value); err != nil {
			return Row{}, err
		}
		return t.rows[i], nil
	}
	return Row{}, fmt.Errorf("%w: %s", ErrUnknownDossier, id)
}
