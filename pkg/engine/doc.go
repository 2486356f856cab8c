// Package engine evaluates relationship rules against loaded configuration
// documents and produces findings.
//
// The evaluator is pure: documents are immutable once loaded and all file
// I/O happens before evaluation starts, so evaluating a rule has no side
// effects. That is what makes the parallel mode safe — rules are evaluated
// independently on a worker pool and findings are re-sorted into canonical
// order (rule file order, then resolution order) before reporting, so a
// parallel run is byte-identical to a sequential one.
package engine
