package engine

import (
	"context"
	"sync"

	"github.com/confrel/confrel/pkg/rules"
)

// EvaluateParallel evaluates rules on a worker pool. Rule evaluation shares
// no mutable state (documents are immutable once loaded), so rules are
// embarrassingly parallel; the only obligation is restoring canonical order
// afterwards. The result is identical to Evaluate for the same inputs,
// except that a cancelled context skips not-yet-started rules (findings for
// completed rules still come back in canonical order).
func (e *Evaluator) EvaluateParallel(ctx context.Context, ruleSet []rules.Rule, workers int) []Finding {
	if workers <= 1 || len(ruleSet) <= 1 {
		return e.Evaluate(ctx, ruleSet)
	}
	if workers > len(ruleSet) {
		workers = len(ruleSet)
	}

	// Per-rule result slots keyed by rule index; no locking needed since
	// each slot has exactly one writer.
	results := make([][]Finding, len(ruleSet))

	queue := make(chan int, len(ruleSet))
	for i := range ruleSet {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				if ctx.Err() != nil {
					return
				}
				results[i] = e.evaluateRule(ruleSet[i])
			}
		}()
	}
	wg.Wait()

	// Flatten in rule order; pair order within a rule is already the
	// resolution order.
	var findings []Finding
	for _, fs := range results {
		findings = append(findings, fs...)
	}
	return findings
}
