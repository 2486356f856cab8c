package rules

import (
	"fmt"
	"regexp"

	"github.com/confrel/confrel/pkg/keypath"
)

// Severity is the weight of a rule violation.
type Severity string

const (
	// SeverityWarning marks advisory rules; warnings never affect the exit
	// code.
	SeverityWarning Severity = "warning"

	// SeverityError marks rules whose failure makes the run fail.
	SeverityError Severity = "error"
)

// Comparator is the predicate applied between the two resolved operands.
// The set is closed: rule files are declarative data, not code.
type Comparator string

const (
	ComparatorEqual          Comparator = "equal"
	ComparatorNotEqual       Comparator = "not_equal"
	ComparatorLessThan       Comparator = "less_than"
	ComparatorGreaterThan    Comparator = "greater_than"
	ComparatorLessOrEqual    Comparator = "less_or_equal"
	ComparatorGreaterOrEqual Comparator = "greater_or_equal"
	ComparatorSubsetOf       Comparator = "subset_of"
	ComparatorMatches        Comparator = "matches"
)

// Operand is one side of a rule: a document ref plus a key path, or, for
// the matches comparator only, a literal regex pattern.
type Operand struct {
	// Document is the ref name of the document to resolve against.
	Document string `json:"document,omitempty" yaml:"document,omitempty"`

	// Path is the key path within the document.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Pattern is a literal regex, valid only as the right operand of a
	// matches rule.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Key is the parsed form of Path, populated by the loader.
	Key keypath.Path `json:"-" yaml:"-"`

	// Regex is the compiled form of Pattern, populated by the loader.
	Regex *regexp.Regexp `json:"-" yaml:"-"`
}

// IsPattern reports whether the operand is a literal pattern rather than a
// document reference.
func (o Operand) IsPattern() bool { return o.Pattern != "" }

// Rule is one declarative relationship assertion.
type Rule struct {
	// ID uniquely identifies the rule within its file.
	ID string `json:"id" yaml:"id" validate:"required"`

	// Description is free-form human context for reports.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Left is the left operand.
	Left Operand `json:"left" yaml:"left"`

	// Right is the right operand.
	Right Operand `json:"right" yaml:"right"`

	// Comparator is the predicate between the operands.
	Comparator Comparator `json:"comparator" yaml:"comparator" validate:"required"`

	// Severity defaults to error when omitted.
	Severity Severity `json:"severity,omitempty" yaml:"severity,omitempty"`

	// Optional makes an unresolved operand vacuously satisfy the rule
	// instead of producing a missing-value finding.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// File is the top-level shape of a rule definition file.
type File struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

// DefinitionError reports a malformed or ambiguous rule file. It is fatal:
// an invalid rule set makes all findings meaningless, so it surfaces before
// any evaluation starts.
type DefinitionError struct {
	// Source is the rule file path or logical name.
	Source string

	// RuleID identifies the offending rule when known.
	RuleID string

	// Reason describes the problem.
	Reason string

	// Err is the underlying error, if any.
	Err error
}

func (e *DefinitionError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("rule definition %s: rule %q: %s", e.Source, e.RuleID, e.Reason)
	}
	return fmt.Sprintf("rule definition %s: %s", e.Source, e.Reason)
}

func (e *DefinitionError) Unwrap() error { return e.Err }
