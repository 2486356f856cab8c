package keypath

import (
	"fmt"
	"strconv"
	"strings"
)

// InvalidPathError reports a path that is structurally disallowed, such as
// one containing more than one wildcard segment.
type InvalidPathError struct {
	// Spec is the original path text.
	Spec string

	// Reason describes what is wrong with it.
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid key path %q: %s", e.Spec, e.Reason)
}

type segmentKind int

const (
	segmentField segmentKind = iota
	segmentIndex
	segmentWildcard
)

// Segment is one step of a key path: a field name, a numeric sequence
// index, or a wildcard.
type Segment struct {
	kind  segmentKind
	field string
	index int
}

// IsWildcard reports whether the segment fans out.
func (s Segment) IsWildcard() bool { return s.kind == segmentWildcard }

// String renders the segment as it appears inside a path.
func (s Segment) String() string {
	switch s.kind {
	case segmentIndex:
		return "[" + strconv.Itoa(s.index) + "]"
	case segmentWildcard:
		return "[*]"
	default:
		return s.field
	}
}

// Path is a parsed key path: an ordered sequence of segments. Path is a
// stateless value type and is safe to copy.
type Path struct {
	spec     string
	segments []Segment
	wildcard bool
}

// String returns the original path text.
func (p Path) String() string { return p.spec }

// Segments returns the parsed segments in order.
func (p Path) Segments() []Segment { return p.segments }

// HasWildcard reports whether the path contains a wildcard segment.
func (p Path) HasWildcard() bool { return p.wildcard }

// Parse parses a dotted path specification. Supported segment forms are
// plain field names, bracketed numeric indices (`[3]`), and a wildcard as
// either `[*]` or a bare `*` between dots. At most one wildcard is allowed;
// a second one returns *InvalidPathError.
func Parse(spec string) (Path, error) {
	if strings.TrimSpace(spec) == "" {
		return Path{}, &InvalidPathError{Spec: spec, Reason: "empty path"}
	}

	var segments []Segment
	wildcards := 0
	rest := spec

	appendField := func(name string) error {
		if name == "" {
			return &InvalidPathError{Spec: spec, Reason: "empty segment"}
		}
		if name == "*" {
			segments = append(segments, Segment{kind: segmentWildcard})
			wildcards++
			return nil
		}
		segments = append(segments, Segment{kind: segmentField, field: name})
		return nil
	}

	for rest != "" {
		switch {
		case rest[0] == '.':
			if len(segments) == 0 {
				return Path{}, &InvalidPathError{Spec: spec, Reason: "leading dot"}
			}
			rest = rest[1:]
			if rest == "" {
				return Path{}, &InvalidPathError{Spec: spec, Reason: "trailing dot"}
			}
		case rest[0] == '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return Path{}, &InvalidPathError{Spec: spec, Reason: "unclosed bracket"}
			}
			inner := rest[1:end]
			if inner == "*" {
				segments = append(segments, Segment{kind: segmentWildcard})
				wildcards++
			} else {
				idx, err := strconv.Atoi(inner)
				if err != nil || idx < 0 {
					return Path{}, &InvalidPathError{Spec: spec, Reason: fmt.Sprintf("bad index %q", inner)}
				}
				segments = append(segments, Segment{kind: segmentIndex, index: idx})
			}
			rest = rest[end+1:]
		default:
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			if err := appendField(rest[:end]); err != nil {
				return Path{}, err
			}
			rest = rest[end:]
		}
	}

	if len(segments) == 0 {
		return Path{}, &InvalidPathError{Spec: spec, Reason: "empty path"}
	}
	if wildcards > 1 {
		return Path{}, &InvalidPathError{Spec: spec, Reason: "at most one wildcard segment is allowed"}
	}

	return Path{spec: spec, segments: segments, wildcard: wildcards == 1}, nil
}

// MustParse parses a path and panics on error. Intended for tests and
// compile-time-constant paths.
func MustParse(spec string) Path {
	p, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return p
}
