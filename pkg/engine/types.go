package engine

import (
	"github.com/confrel/confrel/pkg/document"
	"github.com/confrel/confrel/pkg/rules"
)

// Outcome classifies one rule evaluation.
type Outcome string

const (
	// OutcomePass means the comparator held (or the rule was optional and
	// vacuously satisfied).
	OutcomePass Outcome = "pass"

	// OutcomeFail means the comparator did not hold.
	OutcomeFail Outcome = "fail"

	// OutcomeMissingLeft means the left path resolved to no value.
	OutcomeMissingLeft Outcome = "missing_left"

	// OutcomeMissingRight means the right path resolved to no value.
	OutcomeMissingRight Outcome = "missing_right"

	// OutcomeTypeMismatch means the operand types are incompatible with the
	// comparator. Always reported at error severity: type errors are
	// rule-authoring bugs, not environment misconfigurations.
	OutcomeTypeMismatch Outcome = "type_mismatch"

	// OutcomeError covers per-rule evaluation errors such as wildcard arity
	// mismatches. These never abort the run; they are recorded as findings.
	OutcomeError Outcome = "error"
)

// Failed reports whether the outcome represents an unsatisfied rule.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeFail, OutcomeMissingLeft, OutcomeMissingRight, OutcomeTypeMismatch, OutcomeError:
		return true
	default:
		return false
	}
}

// Finding is one evaluated outcome of a single rule, or of one
// wildcard-expanded instance of it. Findings are immutable once created.
type Finding struct {
	// RuleID identifies the rule that produced the finding.
	RuleID string `json:"rule_id"`

	// Severity is the finding severity. Usually the rule's declared
	// severity; type mismatches are always error.
	Severity rules.Severity `json:"severity"`

	// Outcome classifies the evaluation.
	Outcome Outcome `json:"outcome"`

	// Message is a human-readable explanation, empty on pass.
	Message string `json:"message,omitempty"`

	// LeftValue and RightValue are the compared values, when both resolved.
	LeftValue  *document.Value `json:"left_value,omitempty"`
	RightValue *document.Value `json:"right_value,omitempty"`

	// LeftPath and RightPath are the concrete resolved paths (provenance).
	LeftPath  string `json:"left_path,omitempty"`
	RightPath string `json:"right_path,omitempty"`
}

// Blocks reports whether the finding makes the run exit nonzero: an
// error-severity finding with a failed outcome. Warnings never block, so
// advisory rules can fail without breaking CI.
func (f Finding) Blocks() bool {
	return f.Severity == rules.SeverityError && f.Outcome.Failed()
}
