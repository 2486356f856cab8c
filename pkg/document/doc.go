// Package document normalizes heterogeneous configuration sources (JSON,
// YAML, TOML, CUE) into a uniform, immutable tree of tagged values that the
// rest of the engine can address by key path.
//
// Scalar leaves keep their original type: a value that was a number in the
// source stays a number after loading. Comparators downstream depend on this
// for type-correct comparison.
package document
