// Package pipeline orchestrates one batch run: normalize, extract signals,
// resolve identities, classify, score, derive opportunities, persist.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jaibojo/txo-crm/internal/config"
	"github.com/jaibojo/txo-crm/internal/funnel"
	"github.com/jaibojo/txo-crm/internal/model"
	"github.com/jaibojo/txo-crm/internal/normalize"
	"github.com/jaibojo/txo-crm/internal/opportunity"
	"github.com/jaibojo/txo-crm/internal/resolver"
	"github.com/jaibojo/txo-crm/internal/scorer"
	"github.com/jaibojo/txo-crm/internal/signals"
	"github.com/jaibojo/txo-crm/internal/store"
)

// Result is the in-memory outcome of one run.
type Result struct {
	RunID         string
	Identities    []*model.Identity
	Opportunities []model.Opportunity
	Report        *model.RunReport
}

// Pipeline wires the processing stages together. Construct via New, which
// validates configuration before anything touches a record.
type Pipeline struct {
	cfg        config.Config
	store      store.Store
	extractor  *signals.Extractor
	resolver   *resolver.Resolver
	classifier *funnel.Classifier
	deriver    *opportunity.Deriver
}

// New validates the config and builds a pipeline. Config errors are fatal
// here, before any record is read.
func New(cfg config.Config, st store.Store) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := scorer.ValidateConfig(cfg.Scoring); err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		extractor:  signals.NewExtractor(cfg.Signals),
		resolver:   resolver.NewResolver(nil, cfg.Resolver),
		classifier: funnel.NewClassifier(cfg.Funnel),
		deriver:    opportunity.NewDeriver(cfg.Opportunity),
	}, nil
}

// Run executes the full pipeline over the raw record set. Malformed records
// are counted and skipped; everything else flows through to persistence.
func (p *Pipeline) Run(ctx context.Context, raws []model.RawRecord) (*Result, error) {
	report := model.NewRunReport()
	report.RecordsIn = len(raws)
	now := time.Now().UTC()

	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, err
	}
	zap.L().Info("pipeline: run started",
		zap.String("run", run.ID),
		zap.Int("records", len(raws)),
	)

	res, err := p.process(ctx, raws, report, now)
	if err != nil {
		if stErr := p.store.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed); stErr != nil {
			zap.L().Error("pipeline: failed to mark run failed", zap.Error(stErr))
		}
		return nil, err
	}
	res.RunID = run.ID

	if err := p.store.SaveIdentities(ctx, run.ID, res.Identities); err != nil {
		return nil, err
	}
	if err := p.store.SaveOpportunities(ctx, run.ID, res.Opportunities); err != nil {
		return nil, err
	}
	report.FinishedAt = time.Now().UTC()
	if err := p.store.UpdateRunReport(ctx, run.ID, report); err != nil {
		return nil, err
	}

	zap.L().Info("pipeline: run complete",
		zap.String("run", run.ID),
		zap.Int("identities", report.Identities),
		zap.Int("opportunities", report.Opportunities),
		zap.Int("rejected", report.RecordsRejected),
	)
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, raws []model.RawRecord, report *model.RunReport, now time.Time) (*Result, error) {
	normalized, signalsByRecord, err := p.normalizeAndExtract(ctx, raws, report)
	if err != nil {
		return nil, err
	}

	// Clustering needs a global view; it stays single-threaded.
	identities, conflicts := p.resolver.Resolve(normalized, signalsByRecord)
	report.Identities = len(identities)
	report.MergeConflicts = conflicts

	if err := p.classifyAndScore(ctx, identities, now); err != nil {
		return nil, err
	}
	scorer.Rank(identities)

	for _, id := range identities {
		report.StageCounts[id.FunnelStage]++
	}

	opps := p.deriver.Derive(identities)
	report.Opportunities = len(opps)

	return &Result{
		Identities:    identities,
		Opportunities: opps,
		Report:        report,
	}, nil
}

// normalizeAndExtract runs per-record normalization and signal extraction
// across the worker pool. Workers accumulate into shared slices under a
// mutex; record order does not matter past this stage.
func (p *Pipeline) normalizeAndExtract(ctx context.Context, raws []model.RawRecord, report *model.RunReport) ([]model.NormalizedRecord, map[string][]model.Signal, error) {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.Workers)

	var mu sync.Mutex
	var normalized []model.NormalizedRecord
	signalsByRecord := make(map[string][]model.Signal)
	rejected := 0
	extracted := 0

	for _, raw := range raws {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}

			rec, err := normalize.Record(raw)
			if err != nil {
				if !eris.Is(err, model.ErrMalformedRecord) {
					return err
				}
				zap.L().Warn("pipeline: rejected record",
					zap.String("record", raw.ID()),
					zap.Error(err),
				)
				mu.Lock()
				rejected++
				mu.Unlock()
				return nil
			}

			var sigs []model.Signal
			if raw.Body != "" {
				sigs = p.extractor.Extract(raw.ID(), raw.Body, raw.SentAt)
			}

			mu.Lock()
			normalized = append(normalized, rec)
			if len(sigs) > 0 {
				signalsByRecord[rec.ID()] = append(signalsByRecord[rec.ID()], sigs...)
				extracted += len(sigs)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	report.RecordsRejected = rejected
	report.SignalsExtracted = extracted
	return normalized, signalsByRecord, nil
}

// classifyAndScore runs the per-identity stages in parallel. Each worker
// writes only to its own identity.
func (p *Pipeline) classifyAndScore(ctx context.Context, ids []*model.Identity, now time.Time) error {
	sc := scorer.New(p.cfg.Scoring, now)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.Workers)

	for _, id := range ids {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			p.classifier.Classify(id, now)
			sc.Score(id)
			return nil
		})
	}
	return g.Wait()
}
