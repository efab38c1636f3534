// Package pipeline runs a full reconciliation: scan the input directory,
// extract each statement, reconcile, write reports and log the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/stmtcheck/internal/extract"
	"github.com/cleared-dev/stmtcheck/internal/model"
	"github.com/cleared-dev/stmtcheck/internal/reconcile"
	"github.com/cleared-dev/stmtcheck/internal/report"
	"github.com/cleared-dev/stmtcheck/internal/runlog"
)

// Options configures a run.
type Options struct {
	InputDir  string
	OutputDir string
	LogDir    string // empty disables the run log
	Extractor extract.Extractor
	Reconcile reconcile.Options
	Currency  string
	Workers   int  // concurrent extractions
	Archive   bool // move reconciled PDFs to <InputDir>/processed
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Documents  []Document
	Statements []model.RawStatement
	Batch      reconcile.BatchResult
	Files      []string
}

// Run executes one reconciliation run. Per-statement failures are collected
// in Summary.Batch.Errors; only I/O failures on the outputs and context
// cancellation abort the run.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Extractor == nil {
		return nil, errors.New("no extractor configured")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger

	sum := &Summary{RunID: uuid.NewString()}
	log = log.With().Str("run_id", sum.RunID).Logger()

	docs, err := Scan(opts.InputDir)
	if err != nil {
		return nil, err
	}
	sum.Documents = docs
	if len(docs) == 0 {
		log.Warn().Str("dir", opts.InputDir).Msg("no PDF statements found")
	}
	log.Info().Int("documents", len(docs)).Str("extractor", opts.Extractor.Name()).Msg("starting run")

	raws, failures, err := extractAll(ctx, opts.Extractor, docs, opts.Workers, log)
	if err != nil {
		return nil, err
	}
	sum.Statements = raws

	var records []model.StatementRecord
	for _, raw := range raws {
		warnMissing(log, raw)
		rec, err := model.ParseStatement(raw)
		if err != nil {
			failures = append(failures, reconcile.Failure{StatementID: raw.ID, Err: err})
			continue
		}
		records = append(records, rec)
	}

	batch := reconcile.Batch(records, opts.Reconcile)
	batch.Errors = append(batch.Errors, failures...)
	sort.SliceStable(batch.Errors, func(i, j int) bool {
		return batch.Errors[i].StatementID < batch.Errors[j].StatementID
	})
	sum.Batch = batch

	for _, r := range batch.Results {
		ev := log.Info()
		if !r.Balanced {
			ev = log.Warn()
		}
		ev.Str("statement", r.StatementID).
			Str("discrepancy", r.Discrepancy.StringFixed(2)).
			Bool("balanced", r.Balanced).
			Msg("reconciled")
	}
	for _, f := range batch.Errors {
		log.Error().Str("statement", f.StatementID).Err(f.Err).Msg("excluded")
	}

	rep := report.Report{
		RunID:       sum.RunID,
		GeneratedAt: now().UTC(),
		Currency:    opts.Currency,
		Results:     batch.Results,
		Failures:    batch.Errors,
	}
	files, err := report.WriteAll(opts.OutputDir, rep, raws)
	if err != nil {
		return nil, fmt.Errorf("writing reports: %w", err)
	}
	sum.Files = files

	entries := logEntries(sum, rep.GeneratedAt)
	if opts.Archive {
		archived, err := archive(opts.InputDir, docs, batch.Results)
		if err != nil {
			return nil, err
		}
		for _, id := range archived {
			entries = append(entries, runlog.Entry{
				Timestamp:   rep.GeneratedAt,
				RunID:       sum.RunID,
				StatementID: id,
				Action:      runlog.ActionArchived,
				Details:     filepath.Join(opts.InputDir, ProcessedDir),
			})
		}
	}

	if opts.LogDir != "" {
		if err := runlog.Append(opts.LogDir, entries); err != nil {
			return nil, fmt.Errorf("writing run log: %w", err)
		}
		sum.Files = append(sum.Files, filepath.Join(opts.LogDir, runlog.FileName))
	}

	log.Info().
		Int("reconciled", len(batch.Results)).
		Int("unbalanced", len(batch.Unbalanced())).
		Int("excluded", len(batch.Errors)).
		Msg("run complete")
	return sum, nil
}

// extractAll runs the extractor over docs with a bounded number of workers.
// Successful statements and failures keep document order. Cancellation stops
// scheduling and returns the context error.
func extractAll(ctx context.Context, ex extract.Extractor, docs []Document, workers int, log zerolog.Logger) ([]model.RawStatement, []reconcile.Failure, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	raws := make([]model.RawStatement, len(docs))
	errs := make([]error, len(docs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				log.Debug().Str("file", docs[i].Name).Msg("extracting")
				raws[i], errs[i] = ex.Extract(ctx, docs[i].Path)
			}
		}()
	}

feed:
	for i := range docs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("extraction interrupted: %w", err)
	}

	var out []model.RawStatement
	var failures []reconcile.Failure
	for i, doc := range docs {
		if errs[i] != nil {
			failures = append(failures, reconcile.Failure{
				StatementID: doc.ID,
				Err:         fmt.Errorf("extracting %s: %w", doc.Name, errs[i]),
			})
			continue
		}
		raw := raws[i]
		raw.ID = doc.ID
		if raw.Source == "" {
			raw.Source = doc.Path
		}
		out = append(out, raw)
	}
	return out, failures, nil
}

func warnMissing(log zerolog.Logger, raw model.RawStatement) {
	if raw.StartingBalance == "" {
		log.Warn().Str("statement", raw.ID).Msg("starting balance not found")
	}
	if raw.EndingBalance == "" {
		log.Warn().Str("statement", raw.ID).Msg("ending balance not found")
	}
	if len(raw.Transactions) == 0 {
		log.Warn().Str("statement", raw.ID).Msg("no transactions found")
	}
}

func logEntries(sum *Summary, ts time.Time) []runlog.Entry {
	var entries []runlog.Entry
	for _, r := range sum.Batch.Results {
		entries = append(entries, runlog.Entry{
			Timestamp:   ts,
			RunID:       sum.RunID,
			StatementID: r.StatementID,
			Action:      runlog.ActionReconciled,
			Details:     fmt.Sprintf("discrepancy=%s balanced=%t", r.Discrepancy.StringFixed(2), r.Balanced),
		})
	}
	for _, f := range sum.Batch.Errors {
		entries = append(entries, runlog.Entry{
			Timestamp:   ts,
			RunID:       sum.RunID,
			StatementID: f.StatementID,
			Action:      runlog.ActionFailed,
			Details:     f.Err.Error(),
		})
	}
	return entries
}

// archive moves the PDFs that produced a result into the processed dir.
// Failed statements stay in place for the next run.
func archive(dir string, docs []Document, results []reconcile.Result) ([]string, error) {
	done := make(map[string]bool, len(results))
	for _, r := range results {
		done[r.StatementID] = true
	}
	var moved []string
	for _, doc := range docs {
		if !done[doc.ID] {
			continue
		}
		if err := MarkProcessed(dir, doc.Name); err != nil {
			return moved, err
		}
		moved = append(moved, doc.ID)
	}
	return moved, nil
}
