// Package report aggregates evaluation findings into a run report and
// renders it for humans and machines. The report is deterministic: the
// same documents and rules always produce byte-identical JSON output.
package report
