package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/severn-soft/pricegrab/internal/browser"
	"github.com/severn-soft/pricegrab/internal/config"
	"github.com/severn-soft/pricegrab/internal/extract"
	"github.com/severn-soft/pricegrab/internal/merge"
	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/store"
)

// Converter upgrades a legacy .doc to .docx. Implemented by
// convert.DocToDocx.
type Converter interface {
	Convert(ctx context.Context, docPath string) (string, error)
}

// KonturSources optionally prefills already downloaded documents for a
// re-run over saved files. A prefilled DocPath stands in for every
// region's Word document; the three PDFs are batch documents anyway.
type KonturSources struct {
	DocPath       string // Word tariff tables, reused for all regions
	ZeroPDFPath   string // zero-report price list
	TaxRepPDFPath string // tax-representative price list
	StartPDFPath  string // start-online price list
}

// konturBatch holds the per-region maps pulled out of the three batch
// PDFs before the region loop starts.
type konturBatch struct {
	zero   map[string]model.Price
	taxRep map[string]model.TaxRepresentativeEntry
	start  map[string][]model.Price
}

// Kontur runs the kontur catalog batch: the three batch PDFs are fetched
// and parsed once, then each region's price page is visited for its own
// Word document.
type Kontur struct {
	Session   browser.Session // optional when Sources is fully prefilled
	Converter Converter
	Sink      Sink
	Ledger    Ledger    // optional
	Deliver   Deliverer // optional

	Regions []config.Region
	Sources KonturSources

	// DocURLTemplate is the per-region price page; %s receives the region
	// code.
	DocURLTemplate string
	DocLinkText    string

	ZeroPDFLinkText   string
	TaxRepPDFLinkText string
	StartPDFLinkText  string

	// DownloadDir is cleared of stale Word files before each region's
	// download so the settle check never picks up the previous region's
	// document. Empty disables the cleanup.
	DownloadDir string

	CheckpointEvery int
	Limiter         *rate.Limiter // optional
	Progress        Progress      // optional

	pricePageOpen bool
}

// Run extracts the batch PDFs, then walks regions downloading each one's
// Word document, with the same checkpoint and cancellation behavior as
// the page-driven batch.
func (k *Kontur) Run(ctx context.Context) (*Result, error) {
	every := k.CheckpointEvery
	if every <= 0 {
		every = defaultCheckpointEvery
	}

	res := &Result{Total: len(k.Regions)}
	runID := k.createRun(ctx)

	// Without a browser or at least one saved document the run could only
	// emit empty rows: that is a configuration error, not a degradation.
	if k.Session == nil && !k.Sources.any() {
		k.finishRun(ctx, runID, store.RunStatusFailed)
		return res, eris.New("pipeline: no documents and no browser session")
	}

	batch := k.extractBatch(ctx)

	// A prefilled Word document stands in for every region's download.
	var sharedDoc *model.PartialExtraction
	if k.Sources.DocPath != "" {
		sharedDoc = k.docPartial(ctx, k.Sources.DocPath)
	}

	for _, region := range k.Regions {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		if k.Limiter != nil {
			if err := k.Limiter.Wait(ctx); err != nil {
				res.Cancelled = true
				break
			}
		}

		doc := sharedDoc
		if k.Sources.DocPath == "" {
			doc = k.regionDoc(ctx, region)
		}

		rec := mergeRegion(region, doc, batch)
		res.Records = append(res.Records, rec)
		res.Done++
		if rec.Err != "" {
			res.Failed++
		}

		if k.Progress != nil {
			k.Progress(res.Done, res.Total, region)
		}
		if res.Done%every == 0 {
			k.checkpoint(ctx, runID, res)
		}
	}

	path, err := k.Sink.Snapshot(res.Records, time.Now())
	if err != nil {
		k.finishRun(ctx, runID, store.RunStatusFailed)
		return res, eris.Wrap(err, "pipeline: final snapshot")
	}
	res.OutputPath = path

	k.finishRun(ctx, runID, finalStatus(res))
	if k.Deliver != nil {
		if err := k.Deliver.Deliver(context.WithoutCancel(ctx), summary(model.CatalogKontur, res), path); err != nil {
			return res, eris.Wrap(err, "pipeline: deliver")
		}
	}
	return res, nil
}

func (s KonturSources) any() bool {
	return s.DocPath != "" || s.ZeroPDFPath != "" || s.TaxRepPDFPath != "" || s.StartPDFPath != ""
}

// extractBatch acquires the three batch PDFs and parses them
// concurrently. Every failure, download or parse, degrades that PDF's
// contribution to an empty map: rows still come out, with those fields
// unknown.
func (k *Kontur) extractBatch(ctx context.Context) *konturBatch {
	batch := &konturBatch{}

	zeroPath := k.batchPDF(ctx, k.Sources.ZeroPDFPath, k.ZeroPDFLinkText)
	taxRepPath := k.batchPDF(ctx, k.Sources.TaxRepPDFPath, k.TaxRepPDFLinkText)
	startPath := k.batchPDF(ctx, k.Sources.StartPDFPath, k.StartPDFLinkText)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if zeroPath == "" {
			return nil
		}
		text, err := extract.PDFPageText(zeroPath, extract.ZeroReportFirstPage, extract.ZeroReportLastPage)
		if err != nil {
			zap.L().Warn("zero-report pdf unreadable", zap.String("path", zeroPath), zap.Error(err))
			return nil
		}
		batch.zero = extract.ZeroReportPrices(text)
		return nil
	})
	g.Go(func() error {
		if taxRepPath == "" {
			return nil
		}
		text, err := extract.PDFText(taxRepPath)
		if err != nil {
			zap.L().Warn("tax-representative pdf unreadable", zap.String("path", taxRepPath), zap.Error(err))
			return nil
		}
		batch.taxRep = extract.TaxRepresentativePrices(text)
		return nil
	})
	g.Go(func() error {
		if startPath == "" {
			return nil
		}
		text, err := extract.PDFText(startPath)
		if err != nil {
			zap.L().Warn("start-online pdf unreadable", zap.String("path", startPath), zap.Error(err))
			return nil
		}
		batch.start = extract.StartOnlinePrices(text)
		return nil
	})
	_ = g.Wait() // goroutines never return errors, they degrade

	zap.L().Info("batch pdfs extracted",
		zap.Int("zero_regions", len(batch.zero)),
		zap.Int("tax_rep_regions", len(batch.taxRep)),
		zap.Int("start_regions", len(batch.start)))
	return batch
}

// batchPDF resolves one batch PDF: the prefilled path wins, otherwise it
// is downloaded from the price page by link text. The page is opened on
// the first download that needs it.
func (k *Kontur) batchPDF(ctx context.Context, prefilled, linkText string) string {
	if prefilled != "" {
		return prefilled
	}
	if k.Session == nil || linkText == "" {
		return ""
	}
	if err := k.openPricePage(ctx); err != nil {
		zap.L().Warn("price page failed", zap.Error(err))
		return ""
	}
	path, err := k.Session.Download(ctx, linkText)
	if err != nil {
		zap.L().Warn("batch pdf download failed", zap.String("link", linkText), zap.Error(err))
		return ""
	}
	return path
}

// openPricePage navigates to the first region's price page, where the
// batch PDF links live. Opened once and reused across the three
// downloads.
func (k *Kontur) openPricePage(ctx context.Context) error {
	if k.pricePageOpen {
		return nil
	}
	if len(k.Regions) == 0 {
		return eris.New("pipeline: empty region batch")
	}
	if _, _, err := k.Session.Navigate(ctx, k.docURL(k.Regions[0])); err != nil {
		return err
	}
	k.pricePageOpen = true
	return nil
}

func (k *Kontur) docURL(region config.Region) string {
	return fmt.Sprintf(k.DocURLTemplate, region.Code)
}

// regionDoc fetches and parses one region's Word document. Any failure
// here is document-level: it is logged and the region's doc fields stay
// unknown, never aborting the batch or marking the row as an error.
func (k *Kontur) regionDoc(ctx context.Context, region config.Region) *model.PartialExtraction {
	if k.Session == nil {
		return nil
	}
	if _, _, err := k.Session.Navigate(ctx, k.docURL(region)); err != nil {
		zap.L().Warn("region price page failed",
			zap.String("region", region.Code), zap.Error(err))
		return nil
	}
	if k.DownloadDir != "" {
		if err := browser.PrepareDownloadDir(k.DownloadDir); err != nil {
			zap.L().Warn("download dir cleanup failed", zap.Error(err))
		}
	}
	path, err := k.Session.Download(ctx, k.DocLinkText)
	if err != nil {
		zap.L().Warn("tariff document download failed",
			zap.String("region", region.Code), zap.Error(err))
		return nil
	}
	return k.docPartial(ctx, path)
}

// docPartial classifies a Word document, upgrades a legacy .doc, and
// extracts its tariff tables. Returns nil on any failure so the caller's
// contribution degrades to all-unknown.
func (k *Kontur) docPartial(ctx context.Context, path string) *model.PartialExtraction {
	kind, err := extract.Detect(path)
	if err != nil {
		zap.L().Warn("tariff document unclassifiable", zap.String("path", path), zap.Error(err))
		return nil
	}
	if kind == extract.KindLegacyDoc {
		if k.Converter == nil {
			zap.L().Warn("legacy .doc without converter", zap.String("path", path))
			return nil
		}
		converted, err := k.Converter.Convert(ctx, path)
		if err != nil {
			zap.L().Warn("document conversion failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		zap.L().Info("converted legacy document",
			zap.String("from", path), zap.String("to", converted))
		path = converted
	}

	doc, err := extract.KonturDoc(path)
	if err != nil {
		zap.L().Warn("tariff document unreadable", zap.String("path", path), zap.Error(err))
		return nil
	}
	return doc
}

// mergeRegion assembles one region's record from the extracted sources
// in fixed priority order. Nil or missing sources leave their fields
// unknown.
func mergeRegion(region config.Region, doc *model.PartialExtraction, batch *konturBatch) *model.RegionRecord {
	m := merge.New(region.Code, region.Name, model.CatalogKontur)

	m.Apply(doc)
	if v, ok := batch.zero[region.Code]; ok {
		m.ApplyField(model.FieldKonturZeroReport, v)
	}
	if e, ok := batch.taxRep[region.Code]; ok {
		m.ApplyTaxRep(e)
	}
	if prices, ok := batch.start[region.Code]; ok {
		m.ApplyStartOnline(prices)
	}
	return m.Record()
}

func (k *Kontur) checkpoint(ctx context.Context, runID string, res *Result) {
	path, err := k.Sink.Snapshot(res.Records, time.Now())
	if err != nil {
		zap.L().Warn("checkpoint snapshot failed", zap.Error(err))
		return
	}
	res.OutputPath = path
	if k.Ledger != nil && runID != "" {
		if err := k.Ledger.UpdateProgress(ctx, runID, res.Done, path); err != nil {
			zap.L().Warn("ledger update failed", zap.Error(err))
		}
	}
}

func (k *Kontur) createRun(ctx context.Context) string {
	if k.Ledger == nil {
		return ""
	}
	run, err := k.Ledger.CreateRun(ctx, model.CatalogKontur, len(k.Regions))
	if err != nil {
		zap.L().Warn("ledger create failed", zap.Error(err))
		return ""
	}
	return run.ID
}

func (k *Kontur) finishRun(ctx context.Context, runID string, status store.RunStatus) {
	if k.Ledger == nil || runID == "" {
		return
	}
	if err := k.Ledger.FinishRun(context.WithoutCancel(ctx), runID, status); err != nil {
		zap.L().Warn("ledger finish failed", zap.Error(err))
	}
}
