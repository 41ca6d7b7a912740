package projection

import (
	"fmt"
	"strings"

	"github.com/diagimmo/suiviclientpro/internal/annotations"
)

// Column addresses a cell of a Row.
type Column int

const (
	ColumnID Column = iota
	ColumnType
	ColumnSchedule
	ColumnPayment
	ColumnSanitation
	ColumnCaseStatus
	ColumnComment
)

// Columns lists every column in display order.
var Columns = []Column{
	ColumnID, ColumnType, ColumnSchedule, ColumnPayment,
	ColumnSanitation, ColumnCaseStatus, ColumnComment,
}

var columnNames = map[Column]string{
	ColumnID:         "id",
	ColumnType:       "type",
	ColumnSchedule:   "date",
	ColumnPayment:    "paiement",
	ColumnSanitation: "assainissement",
	ColumnCaseStatus: "statut",
	ColumnComment:    "commentaire",
}

var columnTitles = map[Column]string{
	ColumnID:         "N° dossier",
	ColumnType:       "Type",
	ColumnSchedule:   "Date & heure",
	ColumnPayment:    "Paiement",
	ColumnSanitation: "Assainissement",
	ColumnCaseStatus: "Statut dossier",
	ColumnComment:    "Commentaire",
}

// String returns the short name used on the command line.
func (c Column) String() string {
	if n, ok := columnNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Column(%d)", int(c))
}

// Title returns the column header.
func (c Column) Title() string {
	return columnTitles[c]
}

// Field returns the annotation field edited through c, if any.
func (c Column) Field() (annotations.Field, bool) {
	switch c {
	case ColumnSanitation:
		return annotations.FieldSanitation, true
	case ColumnCaseStatus:
		return annotations.FieldCaseStatus, true
	case ColumnComment:
		return annotations.FieldComment, true
	}
	return "", false
}

// ParseColumn resolves a column from its short name or its header, ignoring case.
// Annotation field names are accepted for the editable columns.
func ParseColumn(name string) (Column, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, c := range Columns {
		if n == c.String() || n == strings.ToLower(c.Title()) {
			return c, nil
		}
	}
	if f, err := annotations.ParseField(n); err == nil {
		for _, c := range Columns {
			if cf, ok := c.Field(); ok && cf == f {
				return c, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown column %q", name)
}

// Row is a projected line of the dossier table.
type Row struct {
	ID            string `json:"id"`
	MissionType   string `json:"type"`
	Schedule      string `json:"date"`
	PaymentStatus string `json:"paiement"`
	Sanitation    string `json:"assainissement"`
	CaseStatus    string `json:"dossier"`
	Comment       string `json:"commentaire"`
	DDTSent       bool   `json:"ddt_envoye"`
	Path          string `json:"chemin,omitempty"`
}

// Cell returns the display value of column c.
func (r Row) Cell(c Column) string {
	switch c {
	case ColumnID:
		return r.ID
	case ColumnType:
		return r.MissionType
	case ColumnSchedule:
		return r.Schedule
	case ColumnPayment:
		return r.PaymentStatus
	case ColumnSanitation:
		return r.Sanitation
	case ColumnCaseStatus:
		return r.CaseStatus
	case ColumnComment:
		return r.Comment
	}
	return ""
}

// Cells returns the display values of every column.
func (r Row) Cells() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = r.Cell(c)
	}
	return out
}

func (r *Row) apply(e annotations.Entry) {
	r.Sanitation = e.Sanitation
	r.CaseStatus = e.CaseStatus
	r.Comment = e.Comment
	r.DDTSent = e.DDTSent
}
