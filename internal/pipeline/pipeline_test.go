package pipeline

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/severn-soft/pricegrab/internal/config"
	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/resilience"
	"github.com/severn-soft/pricegrab/internal/store"
)

// fakeSession serves canned pages and downloads.
type fakeSession struct {
	html      string
	text      string
	navErr    error
	navCalls  int
	navURLs   []string
	downloads map[string]string
}

func (f *fakeSession) Navigate(_ context.Context, url string) (string, string, error) {
	f.navCalls++
	f.navURLs = append(f.navURLs, url)
	if f.navErr != nil {
		return "", "", f.navErr
	}
	return f.html, f.text, nil
}

func (f *fakeSession) Expand(_ context.Context, _ string) (string, string, error) {
	return f.html, f.text, nil
}

func (f *fakeSession) Download(_ context.Context, linkText string) (string, error) {
	path, ok := f.downloads[linkText]
	if !ok {
		return "", eris.Errorf("no link %q", linkText)
	}
	return path, nil
}

func (f *fakeSession) Close() error { return nil }

// fakeSink records every snapshot.
type fakeSink struct {
	snapshots [][]*model.RegionRecord
	err       error
}

func (f *fakeSink) Snapshot(records []*model.RegionRecord, _ time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	cp := make([]*model.RegionRecord, len(records))
	copy(cp, records)
	f.snapshots = append(f.snapshots, cp)
	return "out.xlsx", nil
}

// fakeLedger records lifecycle calls.
type fakeLedger struct {
	created  int
	progress []int
	finished []store.RunStatus
}

func (f *fakeLedger) CreateRun(_ context.Context, c model.Catalog, total int) (*store.Run, error) {
	f.created++
	return &store.Run{ID: "run-1", Catalog: c, RegionsTotal: total}, nil
}

func (f *fakeLedger) UpdateProgress(_ context.Context, _ string, done int, _ string) error {
	f.progress = append(f.progress, done)
	return nil
}

func (f *fakeLedger) FinishRun(_ context.Context, _ string, status store.RunStatus) error {
	f.finished = append(f.finished, status)
	return nil
}

// fakeDeliverer records deliveries.
type fakeDeliverer struct {
	messages []string
	paths    []string
}

func (f *fakeDeliverer) Deliver(_ context.Context, message, path string) error {
	f.messages = append(f.messages, message)
	f.paths = append(f.paths, path)
	return nil
}

func regions(codes ...string) []config.Region {
	var out []config.Region
	for _, c := range codes {
		out = append(out, config.Region{Code: c, Name: "Регион " + c, Slug: "r" + c})
	}
	return out
}

const sabyPage = `<html><body>` +
	`<span class="billing-PriceList__priceButton">1 300</span>` +
	`<span class="billing-PriceList__priceButton">1 000</span>` +
	`<span class="billing-PriceList__priceButton">2 000</span>` +
	`<span class="billing-PriceList__priceButton">3 500</span>` +
	`<span class="billing-PriceList__priceButton">3 000</span>` +
	`<span class="billing-PriceList__priceButton">2 500</span>` +
	`<span class="billing-PriceList__priceButton">4 700</span>` +
	`<span class="billing-PriceList__priceButton">7 300</span>` +
	`</body></html>`

func TestSabyRunHappyPath(t *testing.T) {
	sink := &fakeSink{}
	ledger := &fakeLedger{}
	deliver := &fakeDeliverer{}

	s := &Saby{
		Session:         &fakeSession{html: sabyPage},
		Sink:            sink,
		Ledger:          ledger,
		Deliver:         deliver,
		Regions:         regions("01", "02", "03", "04", "05", "06", "07"),
		URLTemplate:     "https://example.test/%s",
		CheckpointEvery: 5,
	}

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, res.Done)
	assert.Equal(t, 0, res.Failed)
	assert.False(t, res.Cancelled)
	require.Len(t, res.Records, 7)
	assert.Equal(t, 1300, res.Records[0].Get(model.FieldLightIP).Int())

	// One checkpoint at region 5 plus the final snapshot.
	assert.Len(t, sink.snapshots, 2)
	assert.Equal(t, []int{5}, ledger.progress)
	assert.Equal(t, []store.RunStatus{store.RunStatusDone}, ledger.finished)
	require.Len(t, deliver.paths, 1)
	assert.Equal(t, "out.xlsx", deliver.paths[0])
}

func TestSabyRunRegionFailureMarksAndContinues(t *testing.T) {
	sink := &fakeSink{}
	s := &Saby{
		Session:     &fakeSession{navErr: eris.New("такой страницы нет")},
		Sink:        sink,
		Regions:     regions("01", "02"),
		URLTemplate: "https://example.test/%s",
	}

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Done)
	assert.Equal(t, 2, res.Failed)
	for _, rec := range res.Records {
		assert.NotEmpty(t, rec.Err)
		assert.False(t, rec.Get(model.FieldLightIP).Known())
	}
}

func TestSabyRunCancelBetweenRegions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &fakeSink{}
	deliver := &fakeDeliverer{}
	ledger := &fakeLedger{}

	s := &Saby{
		Session: &fakeSession{html: sabyPage},
		Sink:    sink,
		Ledger:  ledger,
		Deliver: deliver,
		Regions: regions("01", "02", "03", "04"),
		Progress: func(done, _ int, _ config.Region) {
			if done == 2 {
				cancel()
			}
		},
		URLTemplate: "https://example.test/%s",
	}

	res, err := s.Run(ctx)
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Equal(t, 2, res.Done)
	assert.Len(t, res.Records, 2)

	// The partial result still ships.
	assert.Equal(t, []store.RunStatus{store.RunStatusCancelled}, ledger.finished)
	require.Len(t, deliver.messages, 1)
	assert.Contains(t, deliver.messages[0], "остановлена")
}

func TestSabyRunBreakerAbortsBatch(t *testing.T) {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
	})
	sink := &fakeSink{}
	session := &fakeSession{navErr: resilience.NewTransientError(eris.New("timeout"), 0)}

	s := &Saby{
		Session:     session,
		Sink:        sink,
		Regions:     regions("01", "02", "03", "04", "05", "06"),
		URLTemplate: "https://example.test/%s",
		Retry:       resilience.RetryConfig{MaxAttempts: 1},
		Breaker:     breaker,
	}

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Cancelled)
	assert.Less(t, res.Done, 6)
}

func docxWithTables(t *testing.T, dir string) string {
	t.Helper()
	const doc = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:tbl><w:tr>` +
		`<w:tc><w:p><w:r><w:t>Оптимальный плюс</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>ИП УСН 1 год</w:t></w:r></w:p></w:tc>` +
		`<w:tc><w:p><w:r><w:t>7 500</w:t></w:r></w:p></w:tc>` +
		`</w:tr></w:tbl>` +
		`</w:body></w:document>`

	path := filepath.Join(dir, "tariffs.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestKonturRunWithPrefilledSources(t *testing.T) {
	dir := t.TempDir()
	docPath := docxWithTables(t, dir)

	sink := &fakeSink{}
	ledger := &fakeLedger{}
	deliver := &fakeDeliverer{}

	k := &Kontur{
		Sink:    sink,
		Ledger:  ledger,
		Deliver: deliver,
		Regions: regions("01", "02", "03", "04", "05", "06"),
		Sources: KonturSources{
			DocPath: docPath,
			// Missing PDFs degrade to empty per-region maps.
			ZeroPDFPath:   filepath.Join(dir, "missing-zero.pdf"),
			TaxRepPDFPath: filepath.Join(dir, "missing-tax.pdf"),
			StartPDFPath:  filepath.Join(dir, "missing-start.pdf"),
		},
		CheckpointEvery: 5,
	}

	res, err := k.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, res.Done)
	require.Len(t, res.Records, 6)

	// The prefilled document contributes the same tariff to every region.
	for _, rec := range res.Records {
		assert.Equal(t, 7500, rec.Get(model.FieldOptimalIPUSN).Int())
		assert.False(t, rec.Get(model.FieldKonturZeroReport).Known())
	}

	assert.Len(t, sink.snapshots, 2)
	assert.Equal(t, []int{5}, ledger.progress)
	assert.Len(t, deliver.paths, 1)
}

func TestKonturRunFetchesDocumentPerRegion(t *testing.T) {
	dir := t.TempDir()
	docPath := docxWithTables(t, dir)

	session := &fakeSession{
		html: "<html></html>",
		downloads: map[string]string{
			"Скачать полный прайс-лист, часть 2": docPath,
		},
	}

	k := &Kontur{
		Session:        session,
		Sink:           &fakeSink{},
		Regions:        regions("01", "02", "03"),
		DocURLTemplate:  "https://example.test/price-download/%s",
		DocLinkText:     "Скачать полный прайс-лист, часть 2",
		ZeroPDFLinkText: "Скачать прайс-лист на тарифные планы «Общий Лайт», «Нулевая отчетность», «Кадровые отчеты», «Классический»",
		DownloadDir:     filepath.Join(dir, "downloads"),
	}

	res, err := k.Run(context.Background())
	require.NoError(t, err)

	// One navigation for the batch PDF page, then one per region.
	require.Len(t, session.navURLs, 4)
	assert.Equal(t, "https://example.test/price-download/01", session.navURLs[0])
	assert.Equal(t, []string{
		"https://example.test/price-download/01",
		"https://example.test/price-download/02",
		"https://example.test/price-download/03",
	}, session.navURLs[1:])

	require.Len(t, res.Records, 3)
	for _, rec := range res.Records {
		assert.Equal(t, 7500, rec.Get(model.FieldOptimalIPUSN).Int())
	}
}

func TestKonturRunBrokenDocumentStillEmitsRows(t *testing.T) {
	dir := t.TempDir()

	// A .docx that is not a zip archive: parsing fails, the batch must
	// still emit a row per region with the document fields unknown.
	docPath := filepath.Join(dir, "tariffs.docx")
	require.NoError(t, os.WriteFile(docPath, []byte("не архив"), 0o644))

	sink := &fakeSink{}
	ledger := &fakeLedger{}
	k := &Kontur{
		Sink:    sink,
		Ledger:  ledger,
		Regions: regions("01", "02"),
		Sources: KonturSources{DocPath: docPath},
	}

	res, err := k.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Done)
	require.Len(t, res.Records, 2)
	for _, rec := range res.Records {
		assert.Empty(t, rec.Err)
		assert.False(t, rec.Get(model.FieldOptimalIPUSN).Known())
	}
	assert.Equal(t, []store.RunStatus{store.RunStatusDone}, ledger.finished)
}

func TestKonturRunRegionDownloadFailureDegrades(t *testing.T) {
	// No matching download link: every region's document fetch fails,
	// rows still come out all-unknown.
	session := &fakeSession{html: "<html></html>"}

	k := &Kontur{
		Session:        session,
		Sink:           &fakeSink{},
		Regions:        regions("01", "02"),
		DocURLTemplate: "https://example.test/price-download/%s",
		DocLinkText:    "Скачать полный прайс-лист, часть 2",
	}

	res, err := k.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Done)
	for _, rec := range res.Records {
		assert.Empty(t, rec.Err)
		assert.False(t, rec.Get(model.FieldOptimalIPUSN).Known())
	}
}

func TestKonturRunLegacyDocConversion(t *testing.T) {
	dir := t.TempDir()
	docxPath := docxWithTables(t, dir)

	// An OLE header so content sniffing also says legacy.
	docPath := filepath.Join(dir, "tariffs.doc")
	require.NoError(t, os.WriteFile(docPath, []byte{0xd0, 0xcf, 0x11, 0xe0, 0x00, 0x00}, 0o644))

	converted := false
	k := &Kontur{
		Sink:    &fakeSink{},
		Regions: regions("01"),
		Sources: KonturSources{DocPath: docPath},
		Converter: converterFunc(func(_ context.Context, path string) (string, error) {
			converted = true
			assert.Equal(t, docPath, path)
			return docxPath, nil
		}),
	}

	res, err := k.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, converted)
	assert.Equal(t, 7500, res.Records[0].Get(model.FieldOptimalIPUSN).Int())
}

func TestKonturRunMissingEverything(t *testing.T) {
	k := &Kontur{
		Sink:    &fakeSink{},
		Regions: regions("01"),
	}

	_, err := k.Run(context.Background())
	assert.Error(t, err)
}

type converterFunc func(ctx context.Context, path string) (string, error)

func (f converterFunc) Convert(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}
