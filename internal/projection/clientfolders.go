package projection

import (
	"github.com/diagimmo/suiviclientpro/internal/folders"
	"github.com/diagimmo/suiviclientpro/internal/source"
)

// Marks shown in the DDT column of the client-folder table.
const (
	MarkSent    = "✅"
	MarkNotSent = "❌"
)

// ClientFolderRow is a line of the client-folder table.
type ClientFolderRow struct {
	ID            string `json:"id"`
	MissionType   string `json:"type"`
	Date          string `json:"date"`
	PaymentStatus string `json:"paiement"`
	Comment       string `json:"commentaire"`
	DDTSent       bool   `json:"ddt_envoye"`
}

// Mark returns the DDT column mark.
func (r ClientFolderRow) Mark() string {
	if r.DDTSent {
		return MarkSent
	}
	return MarkNotSent
}

// ClientFolderRows keeps the records whose normalised identifier is in eligible.
// Annotations are looked up by raw identifier first, then by normalised identifier.
func ClientFolderRows(records []source.FolderRecord, eligible map[string]struct{}, notes Annotations) []ClientFolderRow {
	var rows []ClientFolderRow
	for _, r := range records {
		norm := folders.Normalize(r.ID)
		if _, ok := eligible[norm]; !ok {
			continue
		}
		row := ClientFolderRow{
			ID:            r.ID,
			MissionType:   r.MissionType,
			Date:          r.Date,
			PaymentStatus: r.PaymentStatus,
		}
		if notes != nil {
			e := notes.Get(r.ID)
			if e.IsZero() {
				e = notes.Get(norm)
			}
			row.Comment = e.Comment
			row.DDTSent = e.DDTSent
		}
		rows = append(rows, row)
	}
	return rows
}
