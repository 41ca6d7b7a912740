package annotations

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field names the independently settable parts of an Entry. The values are the keys
// used in the persisted document.
type Field string

const (
	FieldSanitation Field = "assainissement"
	FieldCaseStatus Field = "dossier"
	FieldComment    Field = "commentaire"
	FieldDDTSent    Field = "ddt_envoye"
)

// Fields lists every Field in display order.
var Fields = []Field{FieldSanitation, FieldCaseStatus, FieldComment, FieldDDTSent}

// ParseField resolves a field name, accepting the persisted key or a short English alias.
func ParseField(name string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(FieldSanitation), "sanitation":
		return FieldSanitation, nil
	case string(FieldCaseStatus), "status", "case_status":
		return FieldCaseStatus, nil
	case string(FieldComment), "commentaires", "comment":
		return FieldComment, nil
	case string(FieldDDTSent), "ddt", "ddt_sent":
		return FieldDDTSent, nil
	}
	return "", fmt.Errorf("unknown annotation field %q", name)
}

// Entry is the annotation overlay of one dossier. The zero value is the entry of a
// dossier that was never annotated.
type Entry struct {
	Sanitation string `json:"assainissement,omitempty"`
	CaseStatus string `json:"dossier,omitempty"`
	Comment    string `json:"commentaire,omitempty"`
	DDTSent    bool   `json:"ddt_envoye,omitempty"`
}

// IsZero reports whether no field of e is set.
func (e Entry) IsZero() bool {
	return e == Entry{}
}

// Value returns the display value of field f.
func (e Entry) Value(f Field) string {
	switch f {
	case FieldSanitation:
		return e.Sanitation
	case FieldCaseStatus:
		return e.CaseStatus
	case FieldComment:
		return e.Comment
	case FieldDDTSent:
		if e.DDTSent {
			return "true"
		}
		return "false"
	}
	return ""
}

// with returns a copy of e with field f set from its textual value.
func (e Entry) with(f Field, value string) (Entry, error) {
	switch f {
	case FieldSanitation:
		e.Sanitation = value
	case FieldCaseStatus:
		e.CaseStatus = value
	case FieldComment:
		e.Comment = value
	case FieldDDTSent:
		b, err := ParseFlag(value)
		if err != nil {
			return e, err
		}
		e.DDTSent = b
	default:
		return e, fmt.Errorf("unknown annotation field %q", f)
	}
	return e, nil
}

// ParseFlag parses the textual value of the DDT-sent flag: true/false, oui/non, 1/0 or
// the ✅ and ❌ marks. Empty is false.
func ParseFlag(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false", "non", "no", "❌":
		return false, nil
	case "1", "true", "oui", "yes", "✅":
		return true, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value %q for %s", value, FieldDDTSent)
	}
	return b, nil
}

// UnmarshalJSON accepts the legacy "commentaires" key written by the client-folder
// screen of the previous tool.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Sanitation  string `json:"assainissement"`
		CaseStatus  string `json:"dossier"`
		Comment     string `json:"commentaire"`
		LegacyNotes string `json:"commentaires"`
		DDTSent     bool   `json:"ddt_envoye"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry{
		Sanitation: raw.Sanitation,
		CaseStatus: raw.CaseStatus,
		Comment:    raw.Comment,
		DDTSent:    raw.DDTSent,
	}
	if e.Comment == "" {
		e.Comment = raw.LegacyNotes
	}
	return nil
}
