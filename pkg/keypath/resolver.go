package keypath

import (
	"strconv"

	"github.com/confrel/confrel/pkg/document"
)

// Resolved is one value found by resolving a path, tagged with the concrete
// path it was found at. The concrete path is what makes findings traceable
// when a wildcard fans out.
type Resolved struct {
	// Value is the node found at the path.
	Value *document.Value

	// Path is the fully concrete path, with the wildcard replaced by the
	// actual index or key.
	Path string
}

// Resolve walks the path against the document root and returns every value
// it addresses. Missing intermediate segments yield an empty result, not an
// error. Wildcard fan-out is deterministic: sequence elements in index
// order, mapping entries in sorted key order.
func Resolve(doc *document.Document, p Path) []Resolved {
	if doc == nil || doc.Root() == nil {
		return nil
	}
	return walk(doc.Root(), p.segments, "")
}

func walk(v *document.Value, segments []Segment, at string) []Resolved {
	if v == nil {
		return nil
	}
	if len(segments) == 0 {
		return []Resolved{{Value: v, Path: at}}
	}

	seg := segments[0]
	rest := segments[1:]

	switch seg.kind {
	case segmentField:
		child, ok := v.Key(seg.field)
		if !ok {
			return nil
		}
		return walk(child, rest, join(at, seg.field))

	case segmentIndex:
		child := v.Index(seg.index)
		if child == nil {
			return nil
		}
		return walk(child, rest, at+"["+strconv.Itoa(seg.index)+"]")

	case segmentWildcard:
		switch v.Kind() {
		case document.KindSequence:
			var out []Resolved
			for i, elem := range v.Elems() {
				out = append(out, walk(elem, rest, at+"["+strconv.Itoa(i)+"]")...)
			}
			return out
		case document.KindMapping:
			var out []Resolved
			for _, key := range v.Keys() {
				child, _ := v.Key(key)
				out = append(out, walk(child, rest, join(at, key))...)
			}
			return out
		default:
			return nil
		}

	default:
		return nil
	}
}

func join(at, field string) string {
	if at == "" {
		return field
	}
	return at + "." + field
}
