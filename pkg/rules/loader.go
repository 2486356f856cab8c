package rules

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/confrel/confrel/pkg/document"
	"github.com/confrel/confrel/pkg/keypath"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var ruleSchemaSource string

var ruleSchema = jsonschema.MustCompileString("rules.schema.json", ruleSchemaSource)

// comparatorNames maps accepted comparator spellings to canonical values.
// Rule files in the wild use both snake_case and CamelCase; normalization
// is case-insensitive and ignores underscores.
var comparatorNames = map[string]Comparator{
	"equal":                ComparatorEqual,
	"equals":               ComparatorEqual,
	"notequal":             ComparatorNotEqual,
	"notequals":            ComparatorNotEqual,
	"lessthan":             ComparatorLessThan,
	"greaterthan":          ComparatorGreaterThan,
	"lessorequal":          ComparatorLessOrEqual,
	"lessthanorequal":      ComparatorLessOrEqual,
	"lessthanorequalto":    ComparatorLessOrEqual,
	"greaterorequal":       ComparatorGreaterOrEqual,
	"greaterthanorequal":   ComparatorGreaterOrEqual,
	"greaterthanorequalto": ComparatorGreaterOrEqual,
	"subsetof":             ComparatorSubsetOf,
	"matches":              ComparatorMatches,
}

// Loader parses rule definition files.
type Loader struct {
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewLoader creates a rule loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger:   logger.With().Str("component", "rule-loader").Logger(),
		validate: validator.New(),
	}
}

// LoadFile reads and parses a rule file. The format follows the file
// extension (.json, .yaml, .yml). documentRefs is the set of document ref
// names registered for the run; a nil set skips the ref check (used by
// lint-only callers that have no documents).
func (l *Loader) LoadFile(path string, documentRefs map[string]bool) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DefinitionError{Source: path, Reason: "cannot read rule file", Err: err}
	}

	var format document.Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = document.FormatJSON
	case ".yaml", ".yml":
		format = document.FormatYAML
	default:
		return nil, &DefinitionError{Source: path, Reason: fmt.Sprintf("unsupported rule file extension %q", filepath.Ext(path))}
	}

	return l.Parse(path, raw, format, documentRefs)
}

// Parse parses and validates a rule definition. Rules are returned in file
// order; that order is the canonical evaluation order.
func (l *Loader) Parse(source string, raw []byte, format document.Format, documentRefs map[string]bool) ([]Rule, error) {
	decoded, err := decodeGeneric(raw, format)
	if err != nil {
		return nil, &DefinitionError{Source: source, Reason: "malformed rule file", Err: err}
	}

	if err := ruleSchema.Validate(decoded); err != nil {
		return nil, &DefinitionError{Source: source, Reason: "rule file does not match schema", Err: err}
	}

	var file File
	switch format {
	case document.FormatJSON:
		if err := json.Unmarshal(raw, &file); err != nil {
			return nil, &DefinitionError{Source: source, Reason: "malformed rule file", Err: err}
		}
	default:
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, &DefinitionError{Source: source, Reason: "malformed rule file", Err: err}
		}
	}

	seen := make(map[string]bool, len(file.Rules))
	out := make([]Rule, 0, len(file.Rules))

	for i := range file.Rules {
		rule := file.Rules[i]

		if err := l.validate.Struct(rule); err != nil {
			return nil, &DefinitionError{Source: source, RuleID: rule.ID, Reason: "missing required field", Err: err}
		}
		if seen[rule.ID] {
			return nil, &DefinitionError{Source: source, RuleID: rule.ID, Reason: "duplicate rule id"}
		}
		seen[rule.ID] = true

		cmp, ok := normalizeComparator(rule.Comparator)
		if !ok {
			return nil, &DefinitionError{Source: source, RuleID: rule.ID,
				Reason: fmt.Sprintf("unknown comparator %q", rule.Comparator)}
		}
		rule.Comparator = cmp

		sev, ok := normalizeSeverity(rule.Severity)
		if !ok {
			return nil, &DefinitionError{Source: source, RuleID: rule.ID,
				Reason: fmt.Sprintf("unknown severity %q", rule.Severity)}
		}
		rule.Severity = sev

		if err := l.resolveOperand(&rule.Left, "left", false, rule, source, documentRefs); err != nil {
			return nil, err
		}
		patternAllowed := rule.Comparator == ComparatorMatches
		if err := l.resolveOperand(&rule.Right, "right", patternAllowed, rule, source, documentRefs); err != nil {
			return nil, err
		}

		out = append(out, rule)
	}

	l.logger.Debug().
		Str("source", source).
		Int("rules", len(out)).
		Msg("Rule file loaded")

	return out, nil
}

// resolveOperand validates one operand and fills its parsed path or
// compiled regex.
func (l *Loader) resolveOperand(op *Operand, side string, patternAllowed bool, rule Rule, source string, documentRefs map[string]bool) error {
	if op.Pattern != "" {
		if !patternAllowed {
			return &DefinitionError{Source: source, RuleID: rule.ID,
				Reason: fmt.Sprintf("%s operand: pattern is only valid as the right side of a matches rule", side)}
		}
		if op.Document != "" || op.Path != "" {
			return &DefinitionError{Source: source, RuleID: rule.ID,
				Reason: fmt.Sprintf("%s operand: pattern and document/path are mutually exclusive", side)}
		}
		re, err := regexp.Compile(op.Pattern)
		if err != nil {
			return &DefinitionError{Source: source, RuleID: rule.ID,
				Reason: fmt.Sprintf("%s operand: invalid regex literal", side), Err: err}
		}
		op.Regex = re
		return nil
	}

	if op.Document == "" {
		return &DefinitionError{Source: source, RuleID: rule.ID,
			Reason: fmt.Sprintf("%s operand: document ref is required", side)}
	}
	if op.Path == "" {
		return &DefinitionError{Source: source, RuleID: rule.ID,
			Reason: fmt.Sprintf("%s operand: path is required", side)}
	}
	if documentRefs != nil && !documentRefs[op.Document] {
		return &DefinitionError{Source: source, RuleID: rule.ID,
			Reason: fmt.Sprintf("%s operand: document ref %q is not registered for this run", side, op.Document)}
	}

	key, err := keypath.Parse(op.Path)
	if err != nil {
		return &DefinitionError{Source: source, RuleID: rule.ID,
			Reason: fmt.Sprintf("%s operand: invalid path", side), Err: err}
	}
	op.Key = key
	return nil
}

func normalizeComparator(c Comparator) (Comparator, bool) {
	key := strings.ReplaceAll(strings.ToLower(string(c)), "_", "")
	out, ok := comparatorNames[key]
	return out, ok
}

func normalizeSeverity(s Severity) (Severity, bool) {
	switch strings.ToLower(string(s)) {
	case "":
		return SeverityError, true
	case "error":
		return SeverityError, true
	case "warning", "warn":
		return SeverityWarning, true
	default:
		return "", false
	}
}

// decodeGeneric decodes raw bytes into plain Go values for schema
// validation.
func decodeGeneric(raw []byte, format document.Format) (interface{}, error) {
	var decoded interface{}
	if format == document.FormatJSON {
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	}
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
