// Package stores persists check-run history in SQLite: one row per
// run with its summary counts, plus one row per non-passing finding.
package stores
