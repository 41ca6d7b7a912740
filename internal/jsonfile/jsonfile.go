// Package jsonfile reads and atomically rewrites the small JSON documents the tool
// keeps next to the dossier database: configuration, annotations and the scan
// checkpoint.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrPersistenceDecode is matched by every *DecodeError.
var ErrPersistenceDecode = errors.New("persisted document unparseable")

// DecodeError reports a document that exists but is not valid JSON for its shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrPersistenceDecode, e.Err}
}

// Read decodes the document at path into v.
// It returns found=false and a nil error when the file does not exist.
// A document that cannot be decoded yields a *DecodeError.
func Read(path string, v any) (found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return true, &DecodeError{Path: path, Err: io.ErrUnexpectedEOF}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, &DecodeError{Path: path, Err: err}
	}
	return true, nil
}

// Marshal encodes v the way every document is stored: two-space indentation,
// non-ASCII and HTML characters left unescaped, trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write replaces the document at path with the encoding of v.
//
// The complete document is serialised before anything touches the disk, then written
// to a temporary file in the same directory, synced and renamed over path. On any
// failure the previous document is left as it was.
func Write(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return WriteBytes(path, data)
}

// WriteBytes atomically replaces the file at path with data.
func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// CorruptSuffix is appended to the document name when an unparseable document is kept aside.
const CorruptSuffix = ".corrupt"

// Preserve copies the document at path to path+CorruptSuffix before it is
// overwritten. A missing document is not an error.
func Preserve(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read unparseable document %s: %w", path, err)
	}
	if err := WriteBytes(path+CorruptSuffix, data); err != nil {
		return fmt.Errorf("failed to keep unparseable document aside: %w", err)
	}
	return nil
}
