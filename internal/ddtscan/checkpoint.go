package ddtscan

import (
	"github.com/diagimmo/suiviclientpro/internal/jsonfile"
)

// DefaultCheckpointPath is the checkpoint location relative to the working directory.
const DefaultCheckpointPath = "historique_scan.json"

// Checkpoint records what earlier scans already processed. Both lists are append-only.
type Checkpoint struct {
	Messages []string `json:"messages"`
	Files    []string `json:"fichiers"`

	seenMessages map[string]struct{}
	seenFiles    map[string]struct{}
}

// NewCheckpoint returns an empty checkpoint.
func NewCheckpoint() *Checkpoint {
	c := &Checkpoint{Messages: []string{}, Files: []string{}}
	c.index()
	return c
}

// LoadCheckpoint reads the checkpoint at path.
// The returned checkpoint is never nil: a missing document yields an empty checkpoint
// and a nil error, an unparseable one an empty checkpoint and a *jsonfile.DecodeError.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	c := NewCheckpoint()
	var doc Checkpoint
	if _, err := jsonfile.Read(path, &doc); err != nil {
		return c, err
	}
	for _, id := range doc.Messages {
		c.AddMessage(id)
	}
	for _, f := range doc.Files {
		c.AddFile(f)
	}
	return c, nil
}

// Save writes the checkpoint atomically.
func (c *Checkpoint) Save(path string) error {
	return jsonfile.Write(path, c)
}

func (c *Checkpoint) index() {
	c.seenMessages = make(map[string]struct{}, len(c.Messages))
	for _, id := range c.Messages {
		c.seenMessages[id] = struct{}{}
	}
	c.seenFiles = make(map[string]struct{}, len(c.Files))
	for _, f := range c.Files {
		c.seenFiles[f] = struct{}{}
	}
}

// HasMessage reports whether message id was processed.
func (c *Checkpoint) HasMessage(id string) bool {
	_, ok := c.seenMessages[id]
	return ok
}

// HasFile reports whether filename was recorded.
func (c *Checkpoint) HasFile(name string) bool {
	_, ok := c.seenFiles[name]
	return ok
}

// AddMessage records message id. It reports false when id was already recorded.
func (c *Checkpoint) AddMessage(id string) bool {
	if c.HasMessage(id) {
		return false
	}
	c.seenMessages[id] = struct{}{}
	c.Messages = append(c.Messages, id)
	return true
}

// AddFile records filename. It reports false when the name was already recorded.
func (c *Checkpoint) AddFile(name string) bool {
	if c.HasFile(name) {
		return false
	}
	c.seenFiles[name] = struct{}{}
	c.Files = append(c.Files, name)
	return true
}
