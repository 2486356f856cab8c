// Package rules loads declarative relationship rules from JSON or YAML rule
// files and validates them before any evaluation starts.
//
// A relationship rule asserts that a value addressed in one configuration
// document satisfies a comparator against a value addressed in another (or
// the same) document. Everything that can be rejected statically is rejected
// at load time: duplicate rule ids, unknown comparators, unknown document
// refs, invalid regex literals, and paths with more than one wildcard. A
// rule set that fails loading is fatal to the run.
package rules
