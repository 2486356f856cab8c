package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/confrel/confrel/pkg/document"
	"github.com/confrel/confrel/pkg/keypath"
	"github.com/confrel/confrel/pkg/rules"
	"github.com/rs/zerolog"
)

// Evaluator evaluates relationship rules against a fixed set of loaded
// documents. The document set is immutable for the lifetime of the
// evaluator, so one evaluator may be shared across goroutines.
type Evaluator struct {
	docs   map[string]*document.Document
	logger zerolog.Logger
}

// NewEvaluator creates an evaluator over the given documents, keyed by
// their ref names.
func NewEvaluator(docs map[string]*document.Document, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		docs:   docs,
		logger: logger.With().Str("component", "evaluator").Logger(),
	}
}

// Evaluate evaluates every rule in order and returns the findings in
// canonical order: rule file order, then resolution order within a rule.
// A cancelled context stops evaluation early; findings already produced are
// a valid prefix of the canonical order.
func (e *Evaluator) Evaluate(ctx context.Context, ruleSet []rules.Rule) []Finding {
	findings := make([]Finding, 0, len(ruleSet))

	for i := range ruleSet {
		if ctx.Err() != nil {
			e.logger.Warn().Int("evaluated", i).Int("total", len(ruleSet)).
				Msg("Evaluation cancelled, returning partial findings")
			return findings
		}
		findings = append(findings, e.evaluateRule(ruleSet[i])...)
	}

	return findings
}

// evaluateRule produces the findings for one rule: usually one, but one per
// resolved pair when a wildcard fans out.
func (e *Evaluator) evaluateRule(rule rules.Rule) []Finding {
	lefts := e.resolveOperand(rule.Left)
	rights := e.resolveOperand(rule.Right)

	e.logger.Debug().
		Str("rule", rule.ID).
		Int("left_values", len(lefts)).
		Int("right_values", len(rights)).
		Msg("Rule operands resolved")

	if len(lefts) == 0 || len(rights) == 0 {
		if rule.Optional {
			return []Finding{{
				RuleID:   rule.ID,
				Severity: rule.Severity,
				Outcome:  OutcomePass,
			}}
		}
		outcome := OutcomeMissingLeft
		missing := rule.Left
		if len(lefts) != 0 {
			outcome = OutcomeMissingRight
			missing = rule.Right
		}
		return []Finding{{
			RuleID:   rule.ID,
			Severity: rule.Severity,
			Outcome:  outcome,
			Message: fmt.Sprintf("path %q resolved to no value in document %q",
				missing.Path, missing.Document),
		}}
	}

	if len(lefts) != len(rights) {
		return []Finding{{
			RuleID:   rule.ID,
			Severity: rule.Severity,
			Outcome:  OutcomeError,
			Message: fmt.Sprintf("arity mismatch: left resolved %d values, right resolved %d",
				len(lefts), len(rights)),
		}}
	}

	// Positional pairing: the i-th left value is compared against the i-th
	// right value, in resolution order.
	findings := make([]Finding, 0, len(lefts))
	for i := range lefts {
		findings = append(findings, e.comparePair(rule, lefts[i], rights[i]))
	}
	return findings
}

// resolveOperand resolves one operand. A literal pattern operand resolves
// to a single synthetic string value carrying the pattern.
func (e *Evaluator) resolveOperand(op rules.Operand) []keypath.Resolved {
	if op.IsPattern() {
		return []keypath.Resolved{{Value: document.String(op.Pattern)}}
	}
	doc, ok := e.docs[op.Document]
	if !ok {
		// Unknown refs are rejected at rule load time; an empty result here
		// only happens if the evaluator was constructed with a narrower
		// document set.
		return nil
	}
	return keypath.Resolve(doc, op.Key)
}

// comparePair applies the rule's comparator to one resolved value pair.
func (e *Evaluator) comparePair(rule rules.Rule, left, right keypath.Resolved) Finding {
	finding := Finding{
		RuleID:     rule.ID,
		Severity:   rule.Severity,
		LeftValue:  left.Value,
		RightValue: right.Value,
		LeftPath:   left.Path,
		RightPath:  right.Path,
	}

	ok, err := compare(rule, left.Value, right.Value)
	switch {
	case err != nil:
		var mismatch *typeMismatchError
		if errors.As(err, &mismatch) {
			finding.Outcome = OutcomeTypeMismatch
			finding.Severity = rules.SeverityError
			finding.Message = mismatch.Error()
		} else {
			finding.Outcome = OutcomeError
			finding.Message = err.Error()
		}
	case ok:
		finding.Outcome = OutcomePass
	default:
		finding.Outcome = OutcomeFail
		finding.Message = failMessage(rule.Comparator, left.Value, right.Value)
	}

	return finding
}

func failMessage(cmp rules.Comparator, left, right *document.Value) string {
	switch cmp {
	case rules.ComparatorEqual:
		return fmt.Sprintf("%s is not equal to %s", left, right)
	case rules.ComparatorNotEqual:
		return fmt.Sprintf("%s is equal to %s", left, right)
	case rules.ComparatorLessThan:
		return fmt.Sprintf("%s is not less than %s", left, right)
	case rules.ComparatorGreaterThan:
		return fmt.Sprintf("%s is not greater than %s", left, right)
	case rules.ComparatorLessOrEqual:
		return fmt.Sprintf("%s is greater than %s", left, right)
	case rules.ComparatorGreaterOrEqual:
		return fmt.Sprintf("%s is less than %s", left, right)
	case rules.ComparatorSubsetOf:
		return fmt.Sprintf("%s is not a subset of %s", left, right)
	case rules.ComparatorMatches:
		return fmt.Sprintf("%s does not match pattern %s", left, right)
	default:
		return fmt.Sprintf("%s does not satisfy %s against %s", left, cmp, right)
	}
}
