package ddtscan

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/diagimmo/suiviclientpro/internal/folders"
)

// InferSent returns the identifiers whose normalised form occurs in the normalised
// form of at least one filename, sorted and without duplicates.
func InferSent(filenames, identifiers []string) []string {
	names := make([]string, 0, len(filenames))
	for _, f := range filenames {
		if n := folders.Normalize(strings.TrimSuffix(f, filepath.Ext(f))); n != "" {
			names = append(names, n)
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, id := range identifiers {
		norm := folders.Normalize(id)
		if norm == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		for _, n := range names {
			if strings.Contains(n, norm) {
				seen[id] = struct{}{}
				out = append(out, id)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
