package engine

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/confrel/confrel/pkg/document"
	"github.com/confrel/confrel/pkg/rules"
)

// typeMismatchError marks operand types incompatible with the comparator.
// The evaluator turns it into a type_mismatch finding at error severity.
type typeMismatchError struct {
	cmp   rules.Comparator
	left  document.Kind
	right document.Kind
}

func (e *typeMismatchError) Error() string {
	return fmt.Sprintf("comparator %s cannot compare %s to %s", e.cmp, e.left, e.right)
}

// compare applies the rule's comparator to a value pair. It returns a
// *typeMismatchError for incompatible operand types and a plain error for
// other per-pair evaluation problems (e.g. a document-supplied regex that
// does not compile).
func compare(rule rules.Rule, left, right *document.Value) (bool, error) {
	switch rule.Comparator {
	case rules.ComparatorEqual:
		return left.Equal(right), nil

	case rules.ComparatorNotEqual:
		return !left.Equal(right), nil

	case rules.ComparatorLessThan, rules.ComparatorGreaterThan,
		rules.ComparatorLessOrEqual, rules.ComparatorGreaterOrEqual:
		return compareNumeric(rule.Comparator, left, right)

	case rules.ComparatorSubsetOf:
		return subsetOf(left, right)

	case rules.ComparatorMatches:
		return matches(rule, left, right)

	default:
		return false, fmt.Errorf("unknown comparator %q", rule.Comparator)
	}
}

// compareNumeric requires both operands numeric.
func compareNumeric(cmp rules.Comparator, left, right *document.Value) (bool, error) {
	if left.Kind() != document.KindNumber || right.Kind() != document.KindNumber {
		return false, &typeMismatchError{cmp: cmp, left: left.Kind(), right: right.Kind()}
	}

	l, r := left.NumberValue(), right.NumberValue()
	switch cmp {
	case rules.ComparatorLessThan:
		return l < r, nil
	case rules.ComparatorGreaterThan:
		return l > r, nil
	case rules.ComparatorLessOrEqual:
		return l <= r, nil
	default:
		return l >= r, nil
	}
}

// subsetOf holds when both operands are sequences and every left element is
// deep-equal to some right element, or when both are mappings and the left
// key set is contained in the right key set.
func subsetOf(left, right *document.Value) (bool, error) {
	switch {
	case left.Kind() == document.KindSequence && right.Kind() == document.KindSequence:
		for _, l := range left.Elems() {
			found := false
			for _, r := range right.Elems() {
				if l.Equal(r) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		}
		return true, nil

	case left.Kind() == document.KindMapping && right.Kind() == document.KindMapping:
		for _, key := range left.Keys() {
			if _, ok := right.Key(key); !ok {
				return false, nil
			}
		}
		return true, nil

	default:
		return false, &typeMismatchError{cmp: rules.ComparatorSubsetOf, left: left.Kind(), right: right.Kind()}
	}
}

// matches requires a string-coercible left operand and a regex on the
// right. The regex is the precompiled literal when the rule declared one;
// otherwise the right operand must be a string holding a valid pattern.
func matches(rule rules.Rule, left, right *document.Value) (bool, error) {
	subject, ok := coerceString(left)
	if !ok {
		return false, &typeMismatchError{cmp: rules.ComparatorMatches, left: left.Kind(), right: right.Kind()}
	}

	re := rule.Right.Regex
	if re == nil {
		if right.Kind() != document.KindString {
			return false, &typeMismatchError{cmp: rules.ComparatorMatches, left: left.Kind(), right: right.Kind()}
		}
		var err error
		re, err = regexp.Compile(right.StringValue())
		if err != nil {
			return false, fmt.Errorf("invalid regex pattern %q: %w", right.StringValue(), err)
		}
	}

	return re.MatchString(subject), nil
}

// coerceString renders scalar operands for regex matching. Containers and
// null are not coercible.
func coerceString(v *document.Value) (string, bool) {
	switch v.Kind() {
	case document.KindString:
		return v.StringValue(), true
	case document.KindNumber:
		n := v.NumberValue()
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10), true
		}
		return strconv.FormatFloat(n, 'g', -1, 64), true
	case document.KindBool:
		return strconv.FormatBool(v.BoolValue()), true
	default:
		return "", false
	}
}
