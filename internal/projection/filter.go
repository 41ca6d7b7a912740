package projection

import (
	"sort"
	"strings"

	"github.com/diagimmo/suiviclientpro/internal/source"
)

// Sentinel choices that disable the type and payment predicates.
const (
	AllTypes    = "Tous les types"
	AllPayments = "Tous les paiements"
)

// PaymentOptions are the payment choices offered after AllPayments.
var PaymentOptions = []string{"Payé", "En attente"}

// Filter selects records. The zero value and the sentinels match everything.
type Filter struct {
	// Search is a case-insensitive substring of the identifier.
	Search  string
	Type    string
	Payment string
}

// Predicate reports whether a record is kept.
type Predicate func(source.Record) bool

// MatchSearch keeps records whose identifier contains s, ignoring case.
func MatchSearch(s string) Predicate {
	needle := strings.ToLower(s)
	return func(r source.Record) bool {
		return needle == "" || strings.Contains(strings.ToLower(r.ID), needle)
	}
}

// MatchType keeps records of mission type t, or every record for AllTypes.
func MatchType(t string) Predicate {
	return func(r source.Record) bool {
		return t == "" || t == AllTypes || r.MissionType == t
	}
}

// MatchPayment keeps records with payment status p, or every record for AllPayments.
func MatchPayment(p string) Predicate {
	return func(r source.Record) bool {
		return p == "" || p == AllPayments || r.PaymentStatus == p
	}
}

// Predicates returns the predicates of f.
func (f Filter) Predicates() []Predicate {
	return []Predicate{MatchSearch(f.Search), MatchType(f.Type), MatchPayment(f.Payment)}
}

// Match reports whether r satisfies every predicate of f.
func (f Filter) Match(r source.Record) bool {
	for _, p := range f.Predicates() {
		if !p(r) {
			return false
		}
	}
	return true
}

// Apply keeps the records satisfying every predicate, preserving their order.
func Apply(records []source.Record, preds ...Predicate) []source.Record {
	out := make([]source.Record, 0, len(records))
next:
	for _, r := range records {
		for _, p := range preds {
			if !p(r) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

// TypeOptions returns AllTypes followed by the sorted distinct mission types of records.
func TypeOptions(records []source.Record) []string {
	seen := make(map[string]struct{})
	var types []string
	for _, r := range records {
		t := strings.TrimSpace(r.MissionType)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	sort.Strings(types)
	return append([]string{AllTypes}, types...)
}

// PaymentChoices returns AllPayments followed by PaymentOptions.
func PaymentChoices() []string {
	return append([]string{AllPayments}, PaymentOptions...)
}
