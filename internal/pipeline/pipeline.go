// Package pipeline runs the per-catalog batch: acquire documents, run
// the extractors, merge per-region records, checkpoint the workbook,
// and deliver the result. Regions are processed strictly one at a time;
// cancellation is honored at region boundaries so a stopped run still
// ships everything merged so far.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/severn-soft/pricegrab/internal/config"
	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/store"
)

// Progress is called after every region, done counting from 1.
type Progress func(done, total int, region config.Region)

// Sink persists the merged records. Implemented by report.Sink.
type Sink interface {
	Snapshot(records []*model.RegionRecord, now time.Time) (string, error)
}

// Deliverer ships the finished workbook. Implemented by notify.Notifier.
type Deliverer interface {
	Deliver(ctx context.Context, message, docPath string) error
}

// Ledger records run lifecycle. Implemented by store.SQLiteStore.
type Ledger interface {
	CreateRun(ctx context.Context, catalog model.Catalog, regionsTotal int) (*store.Run, error)
	UpdateProgress(ctx context.Context, runID string, regionsDone int, outputPath string) error
	FinishRun(ctx context.Context, runID string, status store.RunStatus) error
}

// Result summarizes a finished batch.
type Result struct {
	Records    []*model.RegionRecord
	OutputPath string
	Total      int
	Done       int
	Failed     int
	Cancelled  bool
}

const defaultCheckpointEvery = 5

// summary builds the operator message for a delivered run.
func summary(catalog model.Catalog, r *Result) string {
	if r.Cancelled {
		return fmt.Sprintf("Выгрузка %s остановлена: %d из %d регионов, ошибок %d",
			catalog, r.Done, r.Total, r.Failed)
	}
	return fmt.Sprintf("Выгрузка %s завершена: %d регионов, ошибок %d",
		catalog, r.Done, r.Failed)
}
