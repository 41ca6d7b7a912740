package folders

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPrefix is the case-insensitive name prefix of the yearly folders that hold
// client folders, e.g. "Dossiers_2023".
const DefaultPrefix = "dossiers_"

// ErrSourceUnreadable is returned when the identifiers cannot be read from the record source.
var ErrSourceUnreadable = errors.New("record source unreadable")

// IdentifierLister provides the dossier identifiers known to the record source.
type IdentifierLister interface {
	Identifiers(ctx context.Context) ([]string, error)
}

// Result is the outcome of a reconciliation.
type Result struct {
	// Eligible holds the sorted, de-duplicated normalised names present on both sides.
	Eligible []string `json:"eligible"`
	// Matched holds the raw on-disk folder names that matched, sorted.
	Matched []string `json:"matched"`
	// Message explains an empty result to the operator.
	Message string `json:"message,omitempty"`
	// Walked is false when the parent could not be listed. Eligible is then
	// meaningless and must not replace a cached mapping.
	Walked bool `json:"walked"`
}

// Candidates lists the client folder names two levels below parent: every
// subdirectory of a first-level directory whose name starts with prefix.
func Candidates(parent, prefix string) ([]string, error) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", parent, err)
	}

	prefix = strings.ToLower(prefix)
	var names []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(strings.ToLower(e.Name()), prefix) {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(parent, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		for _, s := range sub {
			if s.IsDir() {
				names = append(names, s.Name())
			}
		}
	}
	return names, nil
}

// ComputeEligible intersects the client folders found under parent with the
// identifiers of the source, both normalised.
//
// A missing or non-directory parent is not an error: the returned Result carries an
// explanatory Message. A lister failure is reported as ErrSourceUnreadable.
func ComputeEligible(ctx context.Context, parent string, lister IdentifierLister) (Result, error) {
	if parent == "" {
		return Result{Message: "no valid parent folder selected"}, nil
	}
	info, err := os.Stat(parent)
	if err != nil || !info.IsDir() {
		return Result{Message: "no valid parent folder selected"}, nil
	}

	candidates, err := Candidates(parent, DefaultPrefix)
	if err != nil {
		return Result{Message: fmt.Sprintf("error: %v", err)}, nil
	}

	ids, err := lister.Identifiers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}

	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[Normalize(id)] = struct{}{}
	}

	eligible := make(map[string]struct{})
	var matched []string
	for _, name := range candidates {
		key := Normalize(name)
		if _, ok := known[key]; !ok {
			continue
		}
		matched = append(matched, name)
		eligible[key] = struct{}{}
	}

	res := Result{Matched: matched, Eligible: make([]string, 0, len(eligible)), Walked: true}
	for key := range eligible {
		res.Eligible = append(res.Eligible, key)
	}
	sort.Strings(res.Eligible)
	sort.Strings(res.Matched)
	if len(res.Matched) == 0 {
		res.Message = "no match between the folders on disk and the record source"
	}
	return res, nil
}

// Set turns a cached list of normalised names into a lookup set.
func Set(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
