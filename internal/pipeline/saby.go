package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/severn-soft/pricegrab/internal/browser"
	"github.com/severn-soft/pricegrab/internal/config"
	"github.com/severn-soft/pricegrab/internal/extract"
	"github.com/severn-soft/pricegrab/internal/merge"
	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/resilience"
	"github.com/severn-soft/pricegrab/internal/store"
)

// Saby runs the saby catalog batch: one rendered tariff page per region.
type Saby struct {
	Session browser.Session
	Sink    Sink
	Ledger  Ledger    // optional
	Deliver Deliverer // optional

	Regions     []config.Region
	URLTemplate string

	CheckpointEvery int
	Limiter         *rate.Limiter // optional
	Progress        Progress      // optional

	// Retry covers transient page-load failures within one region.
	Retry resilience.RetryConfig

	// Breaker aborts the batch when the site stops responding at all,
	// instead of burning every remaining region on the same failure.
	Breaker *resilience.CircuitBreaker
}

// Run processes all regions sequentially. A per-region failure marks the
// region and moves on; only a tripped breaker or cancellation stops the
// loop early. The workbook is snapshotted on a fixed cadence and always
// once more at the end.
func (s *Saby) Run(ctx context.Context) (*Result, error) {
	every := s.CheckpointEvery
	if every <= 0 {
		every = defaultCheckpointEvery
	}

	res := &Result{Total: len(s.Regions)}
	runID := s.createRun(ctx, model.CatalogSaby)

	for _, region := range s.Regions {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		if err := s.wait(ctx); err != nil {
			res.Cancelled = true
			break
		}

		rec, err := s.processRegion(ctx, region)
		if eris.Is(err, resilience.ErrCircuitOpen) {
			zap.L().Error("source unreachable, aborting batch",
				zap.String("region", region.Code))
			res.Cancelled = true
			break
		}
		res.Records = append(res.Records, rec)
		res.Done++
		if rec.Err != "" {
			res.Failed++
		}

		if s.Progress != nil {
			s.Progress(res.Done, res.Total, region)
		}
		if res.Done%every == 0 {
			s.checkpoint(ctx, runID, res)
		}
	}

	path, err := s.Sink.Snapshot(res.Records, time.Now())
	if err != nil {
		s.finishRun(ctx, runID, store.RunStatusFailed)
		return res, eris.Wrap(err, "pipeline: final snapshot")
	}
	res.OutputPath = path

	s.finishRun(ctx, runID, finalStatus(res))
	if s.Deliver != nil {
		// Deliver even a cancelled run: a partial price sheet beats none.
		if err := s.Deliver.Deliver(context.WithoutCancel(ctx), summary(model.CatalogSaby, res), path); err != nil {
			return res, eris.Wrap(err, "pipeline: deliver")
		}
	}
	return res, nil
}

// processRegion loads the region's tariff page and extracts every field
// reachable from it. Failures are folded into the record, not returned,
// except the breaker trip which must stop the batch.
func (s *Saby) processRegion(ctx context.Context, region config.Region) (*model.RegionRecord, error) {
	m := merge.New(region.Code, region.Name, model.CatalogSaby)
	slug := region.Slug
	if slug == "" {
		slug = region.Code
	}
	url := fmt.Sprintf(s.URLTemplate, slug)

	var html, text string
	err := s.navigate(ctx, url, &html, &text)
	if err != nil {
		if eris.Is(err, resilience.ErrCircuitOpen) {
			return m.Record(), err
		}
		zap.L().Warn("region page failed",
			zap.String("region", region.Code), zap.Error(err))
		m.MarkError(err.Error())
		return m.Record(), nil
	}

	page := extract.PageContext{HTML: html, Text: text, Expander: s.Session}
	partial, err := extract.SabyTariffs(ctx, page)
	if partial != nil {
		m.Apply(partial)
	}
	if err != nil {
		zap.L().Warn("region extraction incomplete",
			zap.String("region", region.Code), zap.Error(err))
	}

	zap.L().Info("region done",
		zap.String("region", region.Code),
		zap.Int("fields", partialLen(partial)))
	return m.Record(), nil
}

func (s *Saby) navigate(ctx context.Context, url string, html, text *string) error {
	load := func(ctx context.Context) error {
		h, t, err := s.Session.Navigate(ctx, url)
		if err != nil {
			return err
		}
		*html, *text = h, t
		return nil
	}

	attempt := func(ctx context.Context) error {
		if s.Breaker != nil {
			return s.Breaker.Execute(ctx, load)
		}
		return load(ctx)
	}
	return resilience.Do(ctx, s.Retry, attempt)
}

func (s *Saby) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	return s.Limiter.Wait(ctx)
}

func (s *Saby) checkpoint(ctx context.Context, runID string, res *Result) {
	path, err := s.Sink.Snapshot(res.Records, time.Now())
	if err != nil {
		zap.L().Warn("checkpoint snapshot failed", zap.Error(err))
		return
	}
	res.OutputPath = path
	if s.Ledger != nil && runID != "" {
		if err := s.Ledger.UpdateProgress(ctx, runID, res.Done, path); err != nil {
			zap.L().Warn("ledger update failed", zap.Error(err))
		}
	}
}

func (s *Saby) createRun(ctx context.Context, catalog model.Catalog) string {
	if s.Ledger == nil {
		return ""
	}
	run, err := s.Ledger.CreateRun(ctx, catalog, len(s.Regions))
	if err != nil {
		zap.L().Warn("ledger create failed", zap.Error(err))
		return ""
	}
	return run.ID
}

func (s *Saby) finishRun(ctx context.Context, runID string, status store.RunStatus) {
	if s.Ledger == nil || runID == "" {
		return
	}
	if err := s.Ledger.FinishRun(context.WithoutCancel(ctx), runID, status); err != nil {
		zap.L().Warn("ledger finish failed", zap.Error(err))
	}
}

func finalStatus(res *Result) store.RunStatus {
	if res.Cancelled {
		return store.RunStatusCancelled
	}
	return store.RunStatusDone
}

func partialLen(p *model.PartialExtraction) int {
	if p == nil {
		return 0
	}
	return p.Len()
}
