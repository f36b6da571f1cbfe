// Package pipeline composes the truth engine, verifier, claims policy and
// scenario lab over one input bundle, and runs independent bundles in
// bounded parallel batches.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"gridtruth/domain/core"
	domainScenario "gridtruth/domain/scenario"
	domainTruth "gridtruth/domain/truth"
	"gridtruth/domain/verdict"
	"gridtruth/internal"
	"gridtruth/internal/canonical"
	"gridtruth/internal/claims"
	"gridtruth/internal/config"
	"gridtruth/internal/errors"
	"gridtruth/internal/scenario"
	"gridtruth/internal/truth"
	"gridtruth/internal/verifier"
)

// Pipeline holds the configured stages. It keeps no per-run state and is
// safe for concurrent use.
type Pipeline struct {
	engine       *truth.Engine
	lab          *scenario.Lab
	verifierOpts verifier.Options
	claimsOpts   claims.Options
	concurrency  int
	logger       *internal.Logger
}

// New builds a pipeline from a validated configuration.
func New(cfg *config.Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	engine, err := truth.NewEngine(cfg.TruthOptions())
	if err != nil {
		return nil, errors.Wrap(err, "truth engine")
	}
	lab, err := scenario.NewLab(nil, cfg.ScenarioOptions())
	if err != nil {
		return nil, errors.Wrap(err, "scenario lab")
	}
	return &Pipeline{
		engine:       engine,
		lab:          lab,
		verifierOpts: cfg.VerifierOptions(),
		claimsOpts:   cfg.ClaimsOptions(),
		concurrency:  cfg.Pipeline.BatchConcurrency,
		logger:       internal.DefaultLogger.With("pipeline"),
	}, nil
}

// Truth runs only the truth layer.
func (p *Pipeline) Truth(b Bundle) (*domainTruth.Snapshot, error) {
	snap, err := p.engine.Build(truth.Input{
		RunID:       b.RunID,
		RevisionID:  b.RevisionID,
		GeneratedAt: b.GeneratedAt,
		Series:      b.Series,
		Bills:       b.Bills,
		HasBillText: b.HasBillText,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "truth %s", b.RunID)
	}
	return snap, nil
}

// Verify decodes the stored analysis and runs the default check battery. A
// truth snapshot, when given, supplies the interval summary the analysis
// lacks.
func (p *Pipeline) Verify(b Bundle, snap *domainTruth.Snapshot) (verdict.Result, verdict.Analysis, error) {
	var analysis verdict.Analysis
	if len(b.Analysis) > 0 {
		var err error
		if analysis, err = verifier.DecodeAnalysis(b.Analysis); err != nil {
			return verdict.Result{}, analysis, errors.Wrapf(err, "analysis %s", b.RunID)
		}
	}
	if analysis.Interval == nil && snap != nil && snap.Coverage.HasInterval() {
		analysis.Interval = intervalSummary(snap.Coverage)
	}
	res, err := verifier.Run(verifier.Input{Analysis: analysis, Pack: b.Pack, Options: p.verifierOpts})
	if err != nil {
		return verdict.Result{}, analysis, errors.Wrapf(err, "verify %s", b.RunID)
	}
	return res, analysis, nil
}

// Run evaluates one bundle through every stage. No report is returned when
// any stage rejects its input.
func (p *Pipeline) Run(ctx context.Context, b Bundle) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.GeneratedAt.IsZero() {
		return nil, errors.Wrap(core.ErrMissingTime, "bundle")
	}

	snap, err := p.Truth(b)
	if err != nil {
		return nil, err
	}
	result, analysis, err := p.Verify(b, snap)
	if err != nil {
		return nil, err
	}

	coverage := coverageFor(b, snap, analysis)
	policy, err := claims.Evaluate(claims.Input{
		VerifierStatus:        result.Overall,
		RequiredInputsMissing: b.RequiredInputsMissing,
		MissingInfo:           b.MissingInfo,
		HasRatchetHistory:     coverage.HasRatchetHistory,
		TariffMatch:           coverage.TariffMatch,
		EngineWarnings:        snap.Warnings,
	}, p.claimsOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "claims %s", b.RunID)
	}

	lab, err := p.lab.Run(scenario.Input{
		RunID:       b.RunID,
		RevisionID:  b.RevisionID,
		GeneratedAt: b.GeneratedAt,
		Pack:        b.DecisionPack,
		Coverage:    coverage,
		Confidence:  snap.Confidence.Tier,
		Verifier:    result.Overall,
		Policy:      policy,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scenario lab %s", b.RunID)
	}

	p.logger.Debug("run %s: tier %s, verifier %s, claims %s, %d frontier points",
		b.RunID, snap.Confidence.Tier, result.Overall, policy.Status, len(lab.Frontier.Points))
	return &Report{
		RunID:       b.RunID,
		RevisionID:  b.RevisionID,
		GeneratedAt: b.GeneratedAt,
		Truth:       snap,
		Verifier:    result,
		Claims:      policy,
		Lab:         lab,
	}, nil
}

// RunBatch evaluates independent bundles concurrently. Reports keep the
// order of the input. The first failing bundle cancels the rest.
func (p *Pipeline) RunBatch(ctx context.Context, bundles []Bundle) ([]*Report, error) {
	reports := make([]*Report, len(bundles))
	sem := semaphore.NewWeighted(int64(p.concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for i := range bundles {
		i := i
		b := bundles[i]
		weight := computeWeight(b, p.concurrency)
		if err := sem.Acquire(gctx, weight); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(weight)
			r, err := p.Run(gctx, b)
			if err != nil {
				return fmt.Errorf("bundle %d: %w", i, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.logger.Debug("batch of %d bundles done", len(bundles))
	return reports, nil
}

// computeWeight charges interval-heavy bundles more of the batch budget.
func computeWeight(b Bundle, limit int) int64 {
	w := 1
	if b.Series != nil && len(b.Series.Points) > 0 {
		w = 2
	}
	if w > limit {
		w = limit
	}
	return int64(w)
}

// Encode renders a report as canonical JSON.
func Encode(r *Report) ([]byte, error) {
	return canonical.Marshal(r)
}

func intervalSummary(c domainTruth.Coverage) *verdict.IntervalSummary {
	return &verdict.IntervalSummary{
		PointCount:         c.PointCount,
		GranularityMinutes: c.GranularityMinutes,
		StartDate:          c.StartDate,
		EndDate:            c.EndDate,
		CoverageDays:       float64(c.IntervalDays),
	}
}

// coverageFor fills the lab coverage from the bundle, falling back to what
// the truth snapshot and the analysis know.
func coverageFor(b Bundle, snap *domainTruth.Snapshot, analysis verdict.Analysis) domainScenario.CoverageSnapshot {
	var cov domainScenario.CoverageSnapshot
	if b.Coverage != nil {
		cov = *b.Coverage
	}
	if cov.IntervalDays == 0 {
		cov.IntervalDays = snap.Coverage.IntervalDays
	}
	if cov.TariffMatch == "" {
		cov.TariffMatch = analysis.TariffMatch
	}
	cov.TariffMatch = verdict.ParseTariffMatchStatus(string(cov.TariffMatch))
	if cov.ProviderType == "" && analysis.RateContext != nil {
		cov.ProviderType = analysis.RateContext.ProviderType
	}
	return cov
}
