package annotations

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/diagimmo/suiviclientpro/internal/jsonfile"
	"github.com/diagimmo/suiviclientpro/internal/logging"
)

// DefaultPath is the document name used when no path is configured.
const DefaultPath = "manual_states.json"

// ErrPersistenceDecode is matched by the error Open returns for an unparseable document.
var ErrPersistenceDecode = jsonfile.ErrPersistenceDecode

// DecodeError reports an unparseable annotation document.
type DecodeError = jsonfile.DecodeError

// Store is the annotation overlay, loaded from and flushed to a JSON document.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
	logger  *slog.Logger

	// corrupt is set when the document on disk could not be decoded; it is
	// copied aside before the first rewrite.
	corrupt bool
}

// Open loads the document at path.
//
// The returned store is never nil. A missing document yields an empty store and a nil
// error; an unparseable one yields an empty store and a *DecodeError the caller should
// surface to the operator before carrying on.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:    path,
		entries: map[string]Entry{},
		logger:  logging.WithOperation(logger, "annotations"),
	}

	var loaded map[string]Entry
	found, err := jsonfile.Read(path, &loaded)
	if err != nil {
		if errors.Is(err, ErrPersistenceDecode) {
			s.corrupt = true
			s.logger.Warn("annotation document unparseable, starting empty",
				logging.Path(path), logging.Err(err))
		}
		return s, err
	}
	if found && loaded != nil {
		s.entries = loaded
	}
	s.logger.Debug("annotations loaded", logging.Path(path), logging.Count(len(s.entries)))
	return s, nil
}

// Path returns the location of the persisted document.
func (s *Store) Path() string {
	return s.path
}

// Get returns the entry of id, or the zero Entry when id was never annotated.
func (s *Store) Get(id string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[id]
}

// Lookup returns the entry of id and whether the store holds one.
func (s *Store) Lookup(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// SetField sets one field of id and rewrites the document.
// The ddt_envoye field accepts boolean spellings ("true", "oui", "1", ...).
func (s *Store) SetField(id string, f Field, value string) error {
	return s.Update(id, func(e Entry) (Entry, error) {
		return e.with(f, value)
	})
}

// SetDDTSent sets the DDT-sent flag of id and rewrites the document.
func (s *Store) SetDDTSent(id string, sent bool) error {
	return s.Update(id, func(e Entry) (Entry, error) {
		e.DDTSent = sent
		return e, nil
	})
}

// Update applies fn to the entry of id and rewrites the document once.
// If fn fails nothing changes. If the rewrite fails the in-memory edit is kept and
// the previous document stays on disk.
func (s *Store) Update(id string, fn func(Entry) (Entry, error)) error {
	if id == "" {
		return fmt.Errorf("dossier identifier is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.entries[id])
	if err != nil {
		return err
	}
	s.entries[id] = next
	return s.flushLocked()
}

// Flush rewrites the complete document.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	data, err := jsonfile.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to encode annotations: %w", err)
	}

	if s.corrupt {
		if err := jsonfile.Preserve(s.path); err != nil {
			return err
		}
		s.logger.Warn("unparseable annotation document kept aside",
			logging.Path(s.path+CorruptSuffix))
		s.corrupt = false
	}

	if err := jsonfile.WriteBytes(s.path, data); err != nil {
		s.logger.Error("annotation flush failed", logging.Path(s.path), logging.Err(err))
		return err
	}
	return nil
}

// CorruptSuffix is appended to the document name when an unparseable document is kept aside.
const CorruptSuffix = jsonfile.CorruptSuffix

// IDs returns the annotated identifiers in sorted order, including identifiers no
// longer present in the record source.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a copy of every entry.
func (s *Store) Snapshot() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		out[id] = e
	}
	return out
}

// Stale returns the annotated identifiers absent from current, sorted.
// Entries are never deleted, so this is how drift is reported.
func (s *Store) Stale(current []string) []string {
	known := make(map[string]struct{}, len(current))
	for _, id := range current {
		known[id] = struct{}{}
	}
	var stale []string
	for _, id := range s.IDs() {
		if _, ok := known[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale
}
