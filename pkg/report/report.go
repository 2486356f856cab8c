package report

import (
	"github.com/confrel/confrel/pkg/engine"
	"github.com/confrel/confrel/pkg/rules"
)

// Summary aggregates finding counts for one run.
type Summary struct {
	// Total is the number of findings (rule instances after wildcard
	// expansion), not the number of rules.
	Total int `json:"total"`

	// Passed counts findings whose comparator held, including optional
	// rules satisfied vacuously.
	Passed int `json:"passed"`

	// Failed counts findings whose comparator did not hold.
	Failed int `json:"failed"`

	// Missing counts findings where an operand path resolved to no value.
	Missing int `json:"missing"`

	// TypeMismatch counts operand type incompatibilities.
	TypeMismatch int `json:"type_mismatch"`

	// Errors counts per-rule evaluation errors (arity mismatches, bad
	// document-supplied regex patterns).
	Errors int `json:"errors"`

	// Blocking counts error-severity findings with a failed outcome; a
	// nonzero count makes the run exit nonzero.
	Blocking int `json:"blocking"`

	// Warnings counts warning-severity findings with a failed outcome.
	// Warnings never affect the exit code.
	Warnings int `json:"warnings"`
}

// Report is the aggregated result of one evaluation run. It carries no
// timestamps or run identifiers so that identical inputs produce
// byte-identical reports.
type Report struct {
	Findings []engine.Finding `json:"findings"`
	Summary  Summary          `json:"summary"`
}

// Build assembles a report from findings, preserving their canonical
// order.
func Build(findings []engine.Finding) Report {
	r := Report{Findings: findings}
	r.Summary.Total = len(findings)

	for _, f := range findings {
		switch f.Outcome {
		case engine.OutcomePass:
			r.Summary.Passed++
		case engine.OutcomeFail:
			r.Summary.Failed++
		case engine.OutcomeMissingLeft, engine.OutcomeMissingRight:
			r.Summary.Missing++
		case engine.OutcomeTypeMismatch:
			r.Summary.TypeMismatch++
		case engine.OutcomeError:
			r.Summary.Errors++
		}

		if f.Outcome.Failed() {
			if f.Severity == rules.SeverityError {
				r.Summary.Blocking++
			} else {
				r.Summary.Warnings++
			}
		}
	}

	return r
}

// HasBlocking reports whether any finding blocks the run.
func (r Report) HasBlocking() bool {
	return r.Summary.Blocking > 0
}

// ExitCode maps the report to the process exit code: 0 when no
// error-severity finding failed, 1 otherwise. Warning-only failures
// still exit 0 so advisory rules cannot break CI.
func (r Report) ExitCode() int {
	if r.HasBlocking() {
		return 1
	}
	return 0
}
