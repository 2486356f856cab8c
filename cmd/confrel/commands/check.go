package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/confrel/confrel/pkg/document"
	"github.com/confrel/confrel/pkg/engine"
	"github.com/confrel/confrel/pkg/report"
	"github.com/confrel/confrel/pkg/rules"
	"github.com/confrel/confrel/pkg/stores"
	"github.com/confrel/confrel/pkg/telemetry"
)

// debounce window for filesystem events in watch mode; editors often
// emit several events per save.
const watchDebounce = 250 * time.Millisecond

type checkOptions struct {
	rulesPath   string
	documents   map[string]string // ref name -> file path
	parallel    int
	watch       bool
	metricsAddr string
	storePath   string
	trace       bool
}

func newCheckCommand() *cobra.Command {
	var (
		rulesPath   string
		parallel    int
		watch       bool
		metricsAddr string
		storePath   string
		trace       bool
	)

	cmd := &cobra.Command{
		Use:   "check --rules <file> <ref=path|path>...",
		Short: "Evaluate relationship rules against configuration files",
		Long: `Load the given configuration documents, evaluate every rule in the
rule file against them, and report the findings.

Documents are referenced by name in rules. Pass each document as
ref=path to pick the name explicitly, or as a bare path to use the
file's basename (without extension) as the ref.

The exit code is nonzero only when an error-severity rule failed;
warning-severity failures are reported but never block.`,
		Example: `  # Explicit ref names
  confrel check --rules rules.yaml svc_a=configs/a.yaml svc_b=configs/b.json

  # Basename refs: app.yaml is referenced as "app"
  confrel check --rules rules.yaml app.yaml database.toml

  # Re-evaluate on every file change, exposing Prometheus metrics
  confrel check --rules rules.yaml --watch --metrics-addr :9090 app.yaml

  # Record run history
  confrel check --rules rules.yaml --store history.db app.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			documents, err := parseDocumentArgs(args)
			if err != nil {
				return err
			}
			opts := checkOptions{
				rulesPath:   rulesPath,
				documents:   documents,
				parallel:    parallel,
				watch:       watch,
				metricsAddr: metricsAddr,
				storePath:   storePath,
				trace:       trace,
			}
			return runCheckCommand(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule file path (required)")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "number of evaluation workers")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-evaluate when documents or rules change")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (watch mode)")
	cmd.Flags().StringVar(&storePath, "store", "", "SQLite database path for run history")
	cmd.Flags().BoolVar(&trace, "trace", false, "emit OpenTelemetry spans to stderr")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}

// parseDocumentArgs maps "ref=path" or bare path arguments to a ref
// registry. Bare paths register under the file basename without its
// extension.
func parseDocumentArgs(args []string) (map[string]string, error) {
	documents := make(map[string]string, len(args))
	for _, arg := range args {
		ref, path := arg, arg
		if i := strings.Index(arg, "="); i >= 0 {
			ref, path = arg[:i], arg[i+1:]
			if ref == "" || path == "" {
				return nil, fmt.Errorf("invalid document argument %q: want ref=path", arg)
			}
		} else {
			base := filepath.Base(path)
			ref = strings.TrimSuffix(base, filepath.Ext(base))
		}
		if _, ok := documents[ref]; ok {
			return nil, fmt.Errorf("duplicate document ref %q", ref)
		}
		documents[ref] = path
	}
	return documents, nil
}

func runCheckCommand(ctx context.Context, opts checkOptions) error {
	metrics := telemetry.NewMetrics("confrel")

	var traceOut io.Writer
	if opts.trace {
		traceOut = os.Stderr
	}
	tracer, err := telemetry.NewTracer("confrel", traceOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Tracer shutdown failed")
		}
	}()

	var store stores.Store
	if opts.storePath != "" {
		store, err = openStore(ctx, opts.storePath)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
	}

	if opts.watch {
		return watchLoop(ctx, opts, metrics, tracer, store)
	}

	result, err := runCheck(ctx, opts, metrics, tracer, store)
	if err != nil {
		return err
	}
	if err := renderReport(result); err != nil {
		return err
	}
	if result.HasBlocking() {
		return fmt.Errorf("%d blocking finding(s)", result.Summary.Blocking)
	}
	return nil
}

// runCheck performs one full check run: load documents, load rules,
// evaluate, build the report, and record history.
func runCheck(ctx context.Context, opts checkOptions, metrics *telemetry.Metrics, tracer *telemetry.Tracer, store stores.Store) (report.Report, error) {
	runID := uuid.New().String()
	started := time.Now()

	ctx, runSpan := tracer.StartRun(ctx, runID)
	defer runSpan.End()

	loadCtx, loadSpan := tracer.StartPhase(ctx, "load")
	docs, err := loadDocuments(loadCtx, opts.documents, metrics)
	loadSpan.End()
	if err != nil {
		telemetry.RecordError(runSpan, err)
		return report.Report{}, err
	}

	refs := make(map[string]bool, len(docs))
	for ref := range docs {
		refs[ref] = true
	}

	_, rulesSpan := tracer.StartPhase(ctx, "rules")
	loader := rules.NewLoader(log.Logger)
	ruleSet, err := loader.LoadFile(opts.rulesPath, refs)
	rulesSpan.End()
	if err != nil {
		telemetry.RecordError(runSpan, err)
		return report.Report{}, err
	}

	evalCtx, evalSpan := tracer.StartPhase(ctx, "evaluate")
	evaluator := engine.NewEvaluator(docs, log.Logger)
	var findings []engine.Finding
	if opts.parallel > 1 {
		findings = evaluator.EvaluateParallel(evalCtx, ruleSet, opts.parallel)
	} else {
		findings = evaluator.Evaluate(evalCtx, ruleSet)
	}
	evalSpan.End()

	result := report.Build(findings)

	metrics.RulesEvaluated(len(ruleSet))
	for _, f := range findings {
		metrics.Finding(string(f.Outcome), string(f.Severity))
	}
	status := "pass"
	if result.HasBlocking() {
		status = "fail"
	}
	metrics.RunCompleted(status, time.Since(started).Seconds())

	log.Info().
		Str("run_id", runID).
		Int("rules", len(ruleSet)).
		Int("findings", result.Summary.Total).
		Int("blocking", result.Summary.Blocking).
		Dur("duration", time.Since(started)).
		Msg("Check run completed")

	if store != nil {
		if err := persistRun(ctx, store, runID, opts, result, started); err != nil {
			// History is best-effort; the run result stands either way.
			log.Warn().Err(err).Msg("Failed to record run history")
		}
	}

	return result, nil
}

func loadDocuments(ctx context.Context, paths map[string]string, metrics *telemetry.Metrics) (map[string]*document.Document, error) {
	docs := make(map[string]*document.Document, len(paths))

	// Sorted order so load errors are reported deterministically.
	refs := make([]string, 0, len(paths))
	for ref := range paths {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	for _, ref := range refs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		path := paths[ref]
		doc, err := document.LoadFile(ref, path)
		if err != nil {
			return nil, fmt.Errorf("loading document %q from %s: %w", ref, path, err)
		}
		docs[ref] = doc

		if format, ferr := document.FormatForPath(path); ferr == nil {
			metrics.DocumentLoaded(string(format))
		}
		log.Debug().Str("ref", ref).Str("path", path).Msg("Document loaded")
	}
	return docs, nil
}

func openStore(ctx context.Context, path string) (stores.Store, error) {
	store, err := stores.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func persistRun(ctx context.Context, store stores.Store, runID string, opts checkOptions, result report.Report, started time.Time) error {
	docsJSON, err := json.Marshal(opts.documents)
	if err != nil {
		return err
	}

	status := stores.RunStatusPassed
	if result.HasBlocking() {
		status = stores.RunStatusFailed
	}

	run := &stores.Run{
		ID:           runID,
		RulesPath:    opts.rulesPath,
		Documents:    string(docsJSON),
		Status:       status,
		StartedAt:    started.UTC(),
		Duration:     time.Since(started).Milliseconds(),
		Total:        result.Summary.Total,
		Passed:       result.Summary.Passed,
		Failed:       result.Summary.Failed,
		Missing:      result.Summary.Missing,
		TypeMismatch: result.Summary.TypeMismatch,
		Errors:       result.Summary.Errors,
		Blocking:     result.Summary.Blocking,
		Warnings:     result.Summary.Warnings,
	}

	// Only non-passing findings are stored; passes carry no information
	// beyond the summary counts.
	var records []*stores.FindingRecord
	for _, f := range result.Findings {
		if f.Outcome == engine.OutcomePass {
			continue
		}
		records = append(records, &stores.FindingRecord{
			RuleID:    f.RuleID,
			Severity:  string(f.Severity),
			Outcome:   string(f.Outcome),
			Message:   f.Message,
			LeftPath:  f.LeftPath,
			RightPath: f.RightPath,
		})
	}

	return store.CreateRun(ctx, run, records)
}

func renderReport(result report.Report) error {
	if jsonOutput {
		out, err := report.RenderJSON(result)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}
	_, err := fmt.Print(report.RenderText(result, !noColor))
	return err
}

// watchLoop re-runs the check whenever the rule file or any document
// changes. Findings never terminate the loop; only context cancellation
// or a watcher failure does.
func watchLoop(ctx context.Context, opts checkOptions, metrics *telemetry.Metrics, tracer *telemetry.Tracer, store stores.Store) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch parent directories rather than the files themselves: most
	// editors replace files on save, which drops a file-level watch.
	watched := map[string]bool{}
	interesting := map[string]bool{mustAbs(opts.rulesPath): true}
	for _, path := range opts.documents {
		interesting[mustAbs(path)] = true
	}
	for path := range interesting {
		dir := filepath.Dir(path)
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
			watched[dir] = true
		}
	}

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server := &http.Server{Addr: opts.metricsAddr, Handler: mux}
		go func() {
			log.Info().Str("addr", opts.metricsAddr).Msg("Serving metrics")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	runOnce := func() {
		result, err := runCheck(ctx, opts, metrics, tracer, store)
		if err != nil {
			log.Error().Err(err).Msg("Check run failed")
			return
		}
		if err := renderReport(result); err != nil {
			log.Error().Err(err).Msg("Rendering report failed")
		}
	}

	runOnce()
	log.Info().Int("files", len(interesting)).Msg("Watching for changes")

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !interesting[mustAbs(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Change detected")
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
			} else {
				debounce.Reset(watchDebounce)
			}
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			metrics.Reload()
			runOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
