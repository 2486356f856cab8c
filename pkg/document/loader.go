package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies the on-disk encoding of a configuration document.
// Formats are always explicit: callers either pass one directly or go
// through the declared extension mapping in FormatForPath. Nothing is
// sniffed from file contents.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatCUE  Format = "cue"
)

// FormatForPath maps a file extension to its document format.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("no format registered for file extension of %q", path)
	}
}

// ParseError reports a malformed configuration document. It is fatal to the
// run: an unparseable document makes every rule that references it
// meaningless.
type ParseError struct {
	// Source is the document name or file path.
	Source string

	// Format is the format that was being parsed.
	Format Format

	// Err is the decoder error.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s document %s: %v", e.Format, e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Document is one loaded configuration source: an identifier plus an
// immutable value tree. It is owned by the validation run that loaded it.
type Document struct {
	name string
	root *Value
}

// Name returns the document identifier (ref name or file path).
func (d *Document) Name() string { return d.name }

// Root returns the root of the value tree.
func (d *Document) Root() *Value { return d.root }

// New builds a document directly from a value tree. Used by tests and by
// callers that already hold normalized data.
func New(name string, root *Value) *Document {
	return &Document{name: name, root: root}
}

// Load parses raw bytes in the given format into a Document. The returned
// error is a *ParseError when the bytes are malformed.
func Load(sourceName string, raw []byte, format Format) (*Document, error) {
	var decoded interface{}

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, &ParseError{Source: sourceName, Format: format, Err: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &decoded); err != nil {
			return nil, &ParseError{Source: sourceName, Format: format, Err: err}
		}
	case FormatTOML:
		var table map[string]interface{}
		if err := toml.Unmarshal(raw, &table); err != nil {
			return nil, &ParseError{Source: sourceName, Format: format, Err: err}
		}
		decoded = table
	case FormatCUE:
		var err error
		decoded, err = decodeCUE(raw)
		if err != nil {
			return nil, &ParseError{Source: sourceName, Format: format, Err: err}
		}
	default:
		return nil, &ParseError{Source: sourceName, Format: format, Err: fmt.Errorf("unknown format")}
	}

	root, err := FromGo(decoded)
	if err != nil {
		return nil, &ParseError{Source: sourceName, Format: format, Err: err}
	}

	return &Document{name: sourceName, root: root}, nil
}

// LoadFile reads and parses a file, deriving the format from its extension.
// The document is registered under the given ref name.
func LoadFile(name, path string) (*Document, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, &ParseError{Source: path, Err: err}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Source: path, Format: format, Err: err}
	}

	return Load(name, raw, format)
}

// decodeCUE evaluates a CUE source and exports it as plain Go values. The
// value must be concrete: unresolved references are a parse error.
func decodeCUE(raw []byte) (interface{}, error) {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(raw)
	if err := val.Err(); err != nil {
		return nil, err
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return nil, err
	}

	var decoded interface{}
	if err := val.Decode(&decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
