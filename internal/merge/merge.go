// Package merge folds per-extractor partial results into the wide
// per-region record. Merging is first-wins: extractors run in a fixed
// priority order and a later source never overwrites an earlier known
// value, so re-applying any partial is a no-op.
package merge

import (
	"github.com/severn-soft/pricegrab/internal/model"
)

// StartOnlineFields maps the four positional start-online prices onto
// their output columns, in extractor order.
var StartOnlineFields = []model.Field{
	model.FieldStartIPUSN, model.FieldStartIPOSNO,
	model.FieldStartULUSN, model.FieldStartULOSNO,
}

// Merger accumulates one region's record across extractor runs.
type Merger struct {
	rec *model.RegionRecord
}

// New starts a merger over a fresh all-Unknown record.
func New(code, name string, catalog model.Catalog) *Merger {
	return &Merger{rec: model.NewRegionRecord(code, name, catalog)}
}

// Record exposes the underlying record. The merger keeps writing to it,
// so snapshots taken mid-run see the fields merged so far.
func (m *Merger) Record() *model.RegionRecord { return m.rec }

// Apply folds a partial extraction into the record and reports how many
// fields it newly filled.
func (m *Merger) Apply(p *model.PartialExtraction) int {
	if p == nil {
		return 0
	}
	filled := 0
	for _, f := range p.Fields() {
		if m.rec.SetIfUnknown(f, p.Get(f)) {
			filled++
		}
	}
	return filled
}

// ApplyField folds a single field value.
func (m *Merger) ApplyField(f model.Field, v model.Price) bool {
	return m.rec.SetIfUnknown(f, v)
}

// ApplyTaxRep folds a tax-representative entry: the base price, the zone
// id, and the zone's regression brackets mapped onto the positional
// regression columns.
func (m *Merger) ApplyTaxRep(e model.TaxRepresentativeEntry) {
	m.rec.SetIfUnknown(model.FieldTaxRepBase, e.Base)
	if m.rec.Zone == "" {
		m.rec.Zone = e.ZoneID
	}
	if e.Regression == nil {
		return
	}
	for f, v := range e.Regression.RegressionColumns() {
		m.rec.SetIfUnknown(f, v)
	}
}

// ApplyStartOnline folds the positional start-online prices. Short
// slices fill a prefix; extras beyond the four columns are dropped.
func (m *Merger) ApplyStartOnline(prices []model.Price) {
	for i, f := range StartOnlineFields {
		if i >= len(prices) {
			return
		}
		m.rec.SetIfUnknown(f, prices[i])
	}
}

// MarkError flags the whole region as failed. The record is still
// emitted; already merged values stay but render as Unknown downstream.
func (m *Merger) MarkError(msg string) {
	if m.rec.Err == "" {
		m.rec.Err = msg
	}
}
