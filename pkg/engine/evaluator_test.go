package engine

import (
	"context"
	"regexp"
	"testing"

	"github.com/confrel/confrel/pkg/document"
	"github.com/confrel/confrel/pkg/keypath"
	"github.com/confrel/confrel/pkg/rules"
	"github.com/rs/zerolog"
)

func loadDoc(t *testing.T, raw string) *document.Document {
	t.Helper()
	doc, err := document.Load("test", []byte(raw), document.FormatJSON)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

func testEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	docs := map[string]*document.Document{
		"service_a": loadDoc(t, `{
			"network": {"port": 8080, "host": "svc-a"},
			"name": "frontend",
			"features": ["gzip", "tls"],
			"endpoints": [{"port": 80}, {"port": 81}],
			"limits": {"cpu": 2, "mem": 512}
		}`),
		"service_b": loadDoc(t, `{
			"network": {"listening_port": 8080, "allowed": ["gzip", "tls", "http2"]},
			"endpoints": [{"port": 80}, {"port": 81}],
			"pattern": "^[a-z]+$",
			"limits": {"cpu": 4, "mem": 1024, "disk": 10}
		}`),
	}
	return NewEvaluator(docs, zerolog.Nop())
}

func newRule(t *testing.T, id string, cmp rules.Comparator, leftDoc, leftPath, rightDoc, rightPath string) rules.Rule {
	t.Helper()
	return rules.Rule{
		ID:         id,
		Comparator: cmp,
		Severity:   rules.SeverityError,
		Left:       rules.Operand{Document: leftDoc, Path: leftPath, Key: keypath.MustParse(leftPath)},
		Right:      rules.Operand{Document: rightDoc, Path: rightPath, Key: keypath.MustParse(rightPath)},
	}
}

func TestEvaluateSingleValuePairs(t *testing.T) {
	e := testEvaluator(t)

	tests := []struct {
		name    string
		rule    rules.Rule
		outcome Outcome
	}{
		{
			name:    "equal values pass",
			rule:    newRule(t, "port-match", rules.ComparatorEqual, "service_a", "network.port", "service_b", "network.listening_port"),
			outcome: OutcomePass,
		},
		{
			name:    "not equal fails when equal",
			rule:    newRule(t, "ports-differ", rules.ComparatorNotEqual, "service_a", "network.port", "service_b", "network.listening_port"),
			outcome: OutcomeFail,
		},
		{
			name:    "numeric less than",
			rule:    newRule(t, "cpu-bounded", rules.ComparatorLessThan, "service_a", "limits.cpu", "service_b", "limits.cpu"),
			outcome: OutcomePass,
		},
		{
			name:    "numeric greater than fails",
			rule:    newRule(t, "cpu-over", rules.ComparatorGreaterThan, "service_a", "limits.cpu", "service_b", "limits.cpu"),
			outcome: OutcomeFail,
		},
		{
			name:    "less or equal on equal values",
			rule:    newRule(t, "port-le", rules.ComparatorLessOrEqual, "service_a", "network.port", "service_b", "network.listening_port"),
			outcome: OutcomePass,
		},
		{
			name:    "ordering comparator on string operand is a type mismatch",
			rule:    newRule(t, "host-lt", rules.ComparatorLessThan, "service_a", "network.host", "service_b", "network.listening_port"),
			outcome: OutcomeTypeMismatch,
		},
		{
			name:    "sequence subset",
			rule:    newRule(t, "features-allowed", rules.ComparatorSubsetOf, "service_a", "features", "service_b", "network.allowed"),
			outcome: OutcomePass,
		},
		{
			name:    "mapping key subset",
			rule:    newRule(t, "limit-keys", rules.ComparatorSubsetOf, "service_a", "limits", "service_b", "limits"),
			outcome: OutcomePass,
		},
		{
			name:    "subset on scalar is a type mismatch",
			rule:    newRule(t, "subset-scalar", rules.ComparatorSubsetOf, "service_a", "network.port", "service_b", "limits"),
			outcome: OutcomeTypeMismatch,
		},
		{
			name:    "matches against document-supplied pattern",
			rule:    newRule(t, "name-format", rules.ComparatorMatches, "service_a", "name", "service_b", "pattern"),
			outcome: OutcomePass,
		},
		{
			name:    "matches against non-string right is a type mismatch",
			rule:    newRule(t, "name-vs-number", rules.ComparatorMatches, "service_a", "name", "service_b", "limits.cpu"),
			outcome: OutcomeTypeMismatch,
		},
		{
			name:    "matches with container left is a type mismatch",
			rule:    newRule(t, "seq-matches", rules.ComparatorMatches, "service_a", "features", "service_b", "pattern"),
			outcome: OutcomeTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := e.Evaluate(context.Background(), []rules.Rule{tt.rule})
			if len(findings) != 1 {
				t.Fatalf("got %d findings, want 1: %+v", len(findings), findings)
			}
			if findings[0].Outcome != tt.outcome {
				t.Errorf("outcome = %s, want %s (message: %s)",
					findings[0].Outcome, tt.outcome, findings[0].Message)
			}
			if findings[0].RuleID != tt.rule.ID {
				t.Errorf("rule id = %q, want %q", findings[0].RuleID, tt.rule.ID)
			}
		})
	}
}

// Type mismatches are always error severity, even on warning rules: they
// are rule-authoring bugs and must not be silenceable.
func TestTypeMismatchSeverityNotSilenceable(t *testing.T) {
	e := testEvaluator(t)

	rule := newRule(t, "host-lt", rules.ComparatorLessThan, "service_a", "network.host", "service_b", "network.listening_port")
	rule.Severity = rules.SeverityWarning

	findings := e.Evaluate(context.Background(), []rules.Rule{rule})
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(findings))
	}
	if findings[0].Outcome != OutcomeTypeMismatch {
		t.Fatalf("outcome = %s, want type_mismatch", findings[0].Outcome)
	}
	if findings[0].Severity != rules.SeverityError {
		t.Errorf("severity = %s, want error regardless of rule severity", findings[0].Severity)
	}
	if !findings[0].Blocks() {
		t.Error("type mismatch finding must block the run")
	}
}

func TestMissingOperands(t *testing.T) {
	e := testEvaluator(t)

	t.Run("missing left", func(t *testing.T) {
		rule := newRule(t, "r", rules.ComparatorEqual, "service_a", "nope.gone", "service_b", "network.listening_port")
		findings := e.Evaluate(context.Background(), []rules.Rule{rule})
		if len(findings) != 1 || findings[0].Outcome != OutcomeMissingLeft {
			t.Fatalf("findings = %+v, want one missing_left", findings)
		}
		if findings[0].Severity != rules.SeverityError {
			t.Errorf("severity = %s, want rule severity", findings[0].Severity)
		}
	})

	t.Run("missing right", func(t *testing.T) {
		rule := newRule(t, "r", rules.ComparatorEqual, "service_a", "network.port", "service_b", "nope.gone")
		findings := e.Evaluate(context.Background(), []rules.Rule{rule})
		if len(findings) != 1 || findings[0].Outcome != OutcomeMissingRight {
			t.Fatalf("findings = %+v, want one missing_right", findings)
		}
	})

	t.Run("missing right on warning rule", func(t *testing.T) {
		rule := newRule(t, "r", rules.ComparatorEqual, "service_a", "network.port", "service_b", "nope.gone")
		rule.Severity = rules.SeverityWarning
		findings := e.Evaluate(context.Background(), []rules.Rule{rule})
		if findings[0].Severity != rules.SeverityWarning {
			t.Errorf("severity = %s, want warning", findings[0].Severity)
		}
		if findings[0].Blocks() {
			t.Error("warning finding must not block")
		}
	})

	t.Run("optional rule is vacuously satisfied", func(t *testing.T) {
		rule := newRule(t, "r", rules.ComparatorEqual, "service_a", "nope.gone", "service_b", "also.gone")
		rule.Optional = true
		findings := e.Evaluate(context.Background(), []rules.Rule{rule})
		if len(findings) != 1 || findings[0].Outcome != OutcomePass {
			t.Fatalf("findings = %+v, want one pass", findings)
		}
	})
}

func TestWildcardExpansion(t *testing.T) {
	e := testEvaluator(t)

	t.Run("positional pairing with matching counts", func(t *testing.T) {
		rule := newRule(t, "endpoint-ports", rules.ComparatorEqual,
			"service_a", "endpoints[*].port", "service_b", "endpoints[*].port")
		findings := e.Evaluate(context.Background(), []rules.Rule{rule})
		if len(findings) != 2 {
			t.Fatalf("got %d findings, want 2 (one per pair): %+v", len(findings), findings)
		}
		for i, f := range findings {
			if f.Outcome != OutcomePass {
				t.Errorf("pair %d outcome = %s, want pass", i, f.Outcome)
			}
		}
		// Provenance: concrete paths, not the wildcard spec
		if findings[0].LeftPath != "endpoints[0].port" || findings[1].LeftPath != "endpoints[1].port" {
			t.Errorf("left paths = %q, %q", findings[0].LeftPath, findings[1].LeftPath)
		}
	})

	t.Run("arity mismatch yields a single error finding", func(t *testing.T) {
		// limits.* fans out to 2 values on the left, 3 on the right
		rule := newRule(t, "limits-match", rules.ComparatorEqual,
			"service_a", "limits.*", "service_b", "limits.*")
		findings := e.Evaluate(context.Background(), []rules.Rule{rule})
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want exactly 1 arity error: %+v", len(findings), findings)
		}
		if findings[0].Outcome != OutcomeError {
			t.Errorf("outcome = %s, want error", findings[0].Outcome)
		}
		if findings[0].Message == "" {
			t.Error("arity error finding must carry a message")
		}
	})

	t.Run("mapping fanout pairs in sorted key order", func(t *testing.T) {
		docs := map[string]*document.Document{
			"a": loadDoc(t, `{"m": {"x": 1, "y": 2}}`),
			"b": loadDoc(t, `{"m": {"x": 1, "y": 2}}`),
		}
		ev := NewEvaluator(docs, zerolog.Nop())
		rule := newRule(t, "m", rules.ComparatorEqual, "a", "m.*", "b", "m.*")
		findings := ev.Evaluate(context.Background(), []rules.Rule{rule})
		if len(findings) != 2 {
			t.Fatalf("got %d findings, want 2", len(findings))
		}
		if findings[0].LeftPath != "m.x" || findings[1].LeftPath != "m.y" {
			t.Errorf("paths = %q, %q, want sorted key order", findings[0].LeftPath, findings[1].LeftPath)
		}
	})
}

func TestMatchesLiteralPattern(t *testing.T) {
	e := testEvaluator(t)

	rule := rules.Rule{
		ID:         "name-format",
		Comparator: rules.ComparatorMatches,
		Severity:   rules.SeverityError,
		Left: rules.Operand{
			Document: "service_a",
			Path:     "name",
			Key:      keypath.MustParse("name"),
		},
		Right: rules.Operand{
			Pattern: "^[a-z][a-z0-9-]*$",
		},
	}
	rule.Right.Regex = regexp.MustCompile(rule.Right.Pattern)

	findings := e.Evaluate(context.Background(), []rules.Rule{rule})
	if len(findings) != 1 || findings[0].Outcome != OutcomePass {
		t.Fatalf("findings = %+v, want one pass", findings)
	}
}

// Numbers coerce to strings for matches rules.
func TestMatchesNumberCoercion(t *testing.T) {
	docs := map[string]*document.Document{
		"a": loadDoc(t, `{"port": 8080, "pattern": "^80[0-9]{2}$"}`),
	}
	e := NewEvaluator(docs, zerolog.Nop())

	rule := newRule(t, "port-format", rules.ComparatorMatches, "a", "port", "a", "pattern")
	findings := e.Evaluate(context.Background(), []rules.Rule{rule})
	if len(findings) != 1 || findings[0].Outcome != OutcomePass {
		t.Fatalf("findings = %+v, want one pass", findings)
	}
}

func TestMatchesInvalidDocumentPattern(t *testing.T) {
	docs := map[string]*document.Document{
		"a": loadDoc(t, `{"name": "x", "pattern": "(["}`),
	}
	e := NewEvaluator(docs, zerolog.Nop())

	rule := newRule(t, "r", rules.ComparatorMatches, "a", "name", "a", "pattern")
	findings := e.Evaluate(context.Background(), []rules.Rule{rule})
	if len(findings) != 1 || findings[0].Outcome != OutcomeError {
		t.Fatalf("findings = %+v, want one error", findings)
	}
}

func TestEvaluateOrderIsFileOrder(t *testing.T) {
	e := testEvaluator(t)

	ruleSet := []rules.Rule{
		newRule(t, "z-last-in-name", rules.ComparatorEqual, "service_a", "network.port", "service_b", "network.listening_port"),
		newRule(t, "a-first-in-name", rules.ComparatorEqual, "service_a", "limits.cpu", "service_b", "limits.cpu"),
	}

	findings := e.Evaluate(context.Background(), ruleSet)
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(findings))
	}
	if findings[0].RuleID != "z-last-in-name" || findings[1].RuleID != "a-first-in-name" {
		t.Errorf("finding order = %s, %s; want file order", findings[0].RuleID, findings[1].RuleID)
	}
}

func TestEvaluateCancelledContext(t *testing.T) {
	e := testEvaluator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	findings := e.Evaluate(ctx, []rules.Rule{
		newRule(t, "r", rules.ComparatorEqual, "service_a", "network.port", "service_b", "network.listening_port"),
	})
	if len(findings) != 0 {
		t.Fatalf("got %d findings on cancelled context, want 0", len(findings))
	}
}
