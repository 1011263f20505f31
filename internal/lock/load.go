package lock

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/bianoble/kunai/internal/jsonpos"
)

// Sentinel errors for source file access.
var (
	// ErrNotFound means the source file does not exist.
	ErrNotFound = errors.New("source file does not exist")
	// ErrPermission means the source file could not be read or written.
	ErrPermission = errors.New("permission denied")
	// ErrExists means Init was asked to create a file that already exists.
	ErrExists = errors.New("source file already exists")
)

// SyntaxError reports malformed JSON in the source file. Positions are
// 1-based.
type SyntaxError struct {
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("source file JSON is malformed at line %d, column %d", e.Line, e.Column)
}

// SchemaError reports well-formed JSON that does not conform to the lockfile
// schema. Line and Column are zero when the position is unknown.
type SchemaError struct {
	Line   int
	Column int
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("source file does not conform to the kunai schema at line %d, column %d: %s", e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("source file does not conform to the kunai schema: %s", e.Reason)
}

// Load reads and validates a source file. JSON syntax errors and schema
// mismatches are reported with line/column; the document is never coerced
// or repaired.
func Load(path string) (SourceMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("reading %s: %w", path, ErrPermission)
		}
		return nil, fmt.Errorf("reading source file %s: %w", path, err)
	}

	sources, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sources, nil
}

// Parse decodes a source file document from raw bytes.
func Parse(data []byte) (SourceMap, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var sources SourceMap
	if err := dec.Decode(&sources); err != nil {
		return nil, classifyDecodeError(data, err)
	}
	if sources == nil {
		return nil, &SchemaError{Reason: "document must be a JSON object of sources"}
	}

	// A second top-level value is as malformed as a syntax error inside the
	// first.
	if dec.More() {
		return nil, &SchemaError{Reason: "trailing data after source map"}
	}

	for name, src := range sources {
		if name == "" {
			return nil, &SchemaError{Reason: "source names must be non-empty"}
		}
		if src == nil {
			return nil, &SchemaError{Reason: fmt.Sprintf("source %q is null", name)}
		}
	}
	return sources, nil
}

func classifyDecodeError(data []byte, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		line, col := jsonpos.Position(data, int64(len(data)))
		return &SyntaxError{Line: line, Column: col}
	}

	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		line, col := jsonpos.Position(data, syn.Offset)
		return &SyntaxError{Line: line, Column: col}
	}

	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		line, col := jsonpos.Position(data, typ.Offset)
		return &SchemaError{Line: line, Column: col, Reason: err.Error()}
	}

	// Unknown fields and update-scheme validation failures arrive as plain
	// errors without an offset.
	return &SchemaError{Reason: err.Error()}
}

// Save serializes the whole source map and writes it atomically using a temp
// file and rename. The output is byte-stable: saving an unchanged map yields
// an identical file.
func Save(path string, sources SourceMap) error {
	data, err := Marshal(sources)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("writing %s: %w", path, ErrPermission)
		}
		return fmt.Errorf("writing temp source file %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp source file to %s: %w", path, err)
	}

	return nil
}

// Marshal renders the source map in its canonical persisted form: two-space
// indent, sorted names, trailing newline.
func Marshal(sources SourceMap) ([]byte, error) {
	data, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling source file: %w", err)
	}
	return append(data, '\n'), nil
}

// Init creates a new empty source file. It refuses to overwrite an existing
// file.
func Init(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrExist):
			return fmt.Errorf("%s: %w", path, ErrExists)
		case errors.Is(err, fs.ErrPermission):
			return fmt.Errorf("creating %s: %w", path, ErrPermission)
		}
		return fmt.Errorf("creating source file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("{}\n")); err != nil {
		return fmt.Errorf("writing source file %s: %w", path, err)
	}
	return nil
}
