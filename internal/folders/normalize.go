package folders

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var notKeyChar = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// Normalize maps a folder name or dossier identifier to its comparison key.
//
// Path separators become underscores, colons are dropped, whitespace runs collapse to
// a single underscore, accents are folded to their base letter, any other non
// alphanumeric character is removed and the result is lower-cased.
// Normalize(Normalize(x)) == Normalize(x) for every x.
func Normalize(name string) string {
	name = strings.NewReplacer("/", "_", "\\", "_", ":", "").Replace(name)
	name = collapseSpace(name)
	name = foldDiacritics(name)
	name = notKeyChar.ReplaceAllString(name, "")
	return strings.ToLower(strings.TrimSpace(name))
}

// isSpace matches Unicode white space, NBSP and thin spaces included, plus the ASCII
// information separators U+001C to U+001F.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// collapseSpace replaces every run of white space with a single underscore. It runs
// before foldDiacritics, which would otherwise drop non-ASCII spaces entirely.
func collapseSpace(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	inRun := false
	for _, r := range name {
		if isSpace(r) {
			if !inRun {
				b.WriteByte('_')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// foldDiacritics decomposes name and drops everything outside ASCII, which removes
// combining marks as well as characters that have no ASCII base letter.
func foldDiacritics(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, name)
	if err != nil {
		return name
	}
	return out
}
