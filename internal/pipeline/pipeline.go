// Package pipeline wires the shared triage flow every analysis domain uses:
// normalize records, score findings, write the evidence bundle, append the
// session ledger entry, and optionally publish case events.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/droidsift-project/droidsift/internal/core"
)

// Analyzer is implemented by each domain package. Normalize validates a raw
// record into the domain's FeatureSet; Score turns a FeatureSet into a
// Finding. Score must be deterministic given identical inputs, including the
// classifier output.
type Analyzer interface {
	Domain() core.Domain
	Description() string
	Normalize(ctx context.Context, rec core.Record) (core.FeatureSet, error)
	Score(fs core.FeatureSet, clf core.Classifier) *core.Finding

	// CSVHeader and CSVRow define the domain's fixed report schema. The
	// column order is stable across runs so bundles stay diff-able.
	CSVHeader() []string
	CSVRow(res core.RecordResult) []string
}

// CaseMeta identifies the investigation a run belongs to.
type CaseMeta struct {
	CaseNumber     string
	InvestigatorID string
	Device         string
}

// RunResult reports one completed analysis run.
type RunResult struct {
	RunID      string
	Domain     core.Domain
	Results    []core.RecordResult
	Bundle     *core.EvidenceBundle
	Session    *core.SessionRecord
	FinalScore float64
	Findings   int
	Errors     int
}

// Runner executes the shared pipeline. Dependencies are injected once at
// construction; there is no hidden module-level state.
type Runner struct {
	reports *core.ReportBuilder
	ledger  *core.Ledger
	bus     *core.EventBus
	logger  zerolog.Logger

	// workers bounds parallel record scoring. Records are independent and
	// FeatureSets immutable, so no further synchronization is needed.
	workers int
}

// NewRunner builds a Runner. bus may be nil (no case-event stream).
func NewRunner(reports *core.ReportBuilder, ledger *core.Ledger, bus *core.EventBus, workers int, logger zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		reports: reports,
		ledger:  ledger,
		bus:     bus,
		workers: workers,
		logger:  logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run processes one artifact batch end to end. Per-record failures become
// Error rows and never abort the batch; a ledger failure aborts only the
// remaining steps of this run and leaves the already-written bundle valid.
func (r *Runner) Run(ctx context.Context, a Analyzer, clf core.Classifier, records []core.Record, meta CaseMeta) (*RunResult, error) {
	log := r.logger.With().Str("domain", a.Domain().String()).Logger()
	res := &RunResult{
		RunID:  uuid.New().String(),
		Domain: a.Domain(),
	}

	res.Results = r.process(ctx, a, clf, records)
	for _, rr := range res.Results {
		if rr.Errored() {
			res.Errors++
			continue
		}
		res.Findings++
		if rr.Finding.Score > res.FinalScore {
			res.FinalScore = rr.Finding.Score
		}
	}
	log.Info().
		Int("records", len(records)).
		Int("findings", res.Findings).
		Int("errors", res.Errors).
		Float64("final_score", res.FinalScore).
		Msg("batch scored")

	// Report rows preserve input record order; the CSV is complete before
	// anything is hashed or zipped.
	rows := make([][]string, 0, len(res.Results))
	for _, rr := range res.Results {
		rows = append(rows, a.CSVRow(rr))
	}
	bundle, err := r.reports.Build(a.Domain(), a.CSVHeader(), rows)
	if err != nil {
		return res, fmt.Errorf("building evidence bundle: %w", err)
	}
	res.Bundle = bundle

	session := &core.SessionRecord{
		CaseNumber:     meta.CaseNumber,
		InvestigatorID: meta.InvestigatorID,
		Device:         meta.Device,
		CSVPath:        bundle.CSVPath,
		HashPath:       bundle.HashPath,
		Workflow:       a.Domain().String(),
		FinalScore:     res.FinalScore,
	}
	if err := r.ledger.Append(session); err != nil {
		// The bundle on disk stays valid; only the audit entry is missing.
		return res, err
	}
	res.Session = session

	r.publish(res, meta)
	return res, nil
}

// process scores every record, in order. With one worker the loop is fully
// sequential; with more, records are scored concurrently and results placed
// by index so output order always matches input order.
func (r *Runner) process(ctx context.Context, a Analyzer, clf core.Classifier, records []core.Record) []core.RecordResult {
	results := make([]core.RecordResult, len(records))

	if r.workers == 1 || len(records) < 2 {
		for i, rec := range records {
			results[i] = r.processOne(ctx, a, clf, rec)
		}
		return results
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workers)
	for i, rec := range records {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rec core.Record) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.processOne(ctx, a, clf, rec)
		}(i, rec)
	}
	wg.Wait()
	return results
}

func (r *Runner) processOne(ctx context.Context, a Analyzer, clf core.Classifier, rec core.Record) core.RecordResult {
	fs, err := a.Normalize(ctx, rec)
	if err != nil {
		mErr, ok := err.(*core.MalformedRecordError)
		if !ok {
			mErr = &core.MalformedRecordError{Domain: a.Domain(), Reason: err.Error()}
		}
		r.logger.Warn().Err(mErr).Str("domain", a.Domain().String()).Msg("record failed normalization")
		return core.RecordResult{Err: mErr}
	}
	return core.RecordResult{Finding: a.Score(fs, clf)}
}

func (r *Runner) publish(res *RunResult, meta CaseMeta) {
	if r.bus == nil {
		return
	}
	for _, rr := range res.Results {
		if rr.Errored() || rr.Finding.Risk == core.RiskLow {
			continue
		}
		r.bus.PublishFinding(rr.Finding)
	}
	r.bus.PublishRun(&core.RunEnvelope{
		RunID:       res.RunID,
		Domain:      res.Domain,
		CaseNumber:  meta.CaseNumber,
		Findings:    res.Findings,
		Errors:      res.Errors,
		FinalScore:  res.FinalScore,
		CSVPath:     res.Bundle.CSVPath,
		ZipPath:     res.Bundle.ZipPath,
		Digest:      res.Bundle.Digest,
		CompletedAt: time.Now().UTC(),
	})
}
