// Package rules holds the extraction rules as data: per-field plausibility
// windows and the anchored text patterns the extractors search with. Keeping
// them here makes the heuristics unit-testable independently of any
// document fetching, and keeps tuning out of the extractor code paths.
//
// The window bounds are empirically tuned to current catalog content. If
// source pricing shifts far enough they will silently reject valid values;
// that is a known property of the approach, not something an extractor
// should compensate for.
package rules

import (
	"regexp"

	"github.com/severn-soft/pricegrab/internal/model"
)

// Window is a closed integer range used to accept or reject a
// syntactically valid number as semantically plausible for a field.
type Window struct {
	Min, Max int
}

// Accept reports whether v falls inside the window.
func (w Window) Accept(v int) bool {
	return v >= w.Min && v <= w.Max
}

// AcceptPrice applies the window to a normalized price; out-of-window
// values degrade to Unknown, never get coerced.
func (w Window) AcceptPrice(v int, ok bool) model.Price {
	if !ok || !w.Accept(v) {
		return model.Unknown
	}
	return model.Known(v)
}

// Saby page windows.
var (
	// WindowBuhta filters the secondary-tariff price picked out of the
	// expandable section's surrounding text.
	WindowBuhta = Window{Min: 5_000, Max: 20_000}
)

// Kontur PDF windows.
var (
	WindowTaxRepBase  = Window{Min: 6_500, Max: 17_000}
	WindowStartOnline = Window{Min: 3_000, Max: 20_000}
)

// KonturDocWindows gives each Word-table field its own plausibility
// window. A row that matches by keywords but prices outside the window is
// treated as not found.
var KonturDocWindows = map[model.Field]Window{
	model.FieldOptimalIPUSN:  {Min: 5_000, Max: 10_000},
	model.FieldOptimalIPOSNO: {Min: 8_000, Max: 12_000},
	model.FieldOptimalULUSN:  {Min: 8_000, Max: 12_000},
	model.FieldOptimalULOSNO: {Min: 10_000, Max: 15_000},
	model.FieldBudgetPlus:    {Min: 5_000, Max: 10_000},
	model.FieldBudget:        {Min: 10_000, Max: 20_000},

	model.FieldCommon1x4:   {Min: 10_000, Max: 20_000},
	model.FieldCommon1x9:   {Min: 15_000, Max: 25_000},
	model.FieldCommon1x19:  {Min: 20_000, Max: 35_000},
	model.FieldCommon1x49:  {Min: 40_000, Max: 70_000},
	model.FieldCommon1x99:  {Min: 70_000, Max: 100_000},
	model.FieldCommon1x199: {Min: 150_000, Max: 200_000},
	model.FieldCommon1x499: {Min: 300_000, Max: 350_000},

	model.FieldCommonPlus1x4:   {Min: 20_000, Max: 30_000},
	model.FieldCommonPlus1x9:   {Min: 25_000, Max: 35_000},
	model.FieldCommonPlus1x19:  {Min: 35_000, Max: 50_000},
	model.FieldCommonPlus1x49:  {Min: 80_000, Max: 100_000},
	model.FieldCommonPlus1x99:  {Min: 130_000, Max: 160_000},
	model.FieldCommonPlus1x199: {Min: 250_000, Max: 300_000},
	model.FieldCommonPlus1x499: {Min: 400_000, Max: 450_000},
}

// Anchored patterns for the "authorized accounting" section of the saby
// tariff page. Each logical field has its own anchors; the first match in
// the section text wins.
var (
	PatternAuthLicense = regexp.MustCompile(`(?i)Подключение[^\d]*(\d[\d\s]*)`)

	// The specific "от N за квартал" form goes first: the loose anchor
	// would otherwise capture digits from whatever line follows the word.
	PatternAuthQuarter = []*regexp.Regexp{
		regexp.MustCompile(`(?i)от\s*(\d[\d\s]*)\s*[₽руб]*\s*за\s*квартал`),
		regexp.MustCompile(`(?i)квартал[^\d]*(\d[\d\s]*)`),
	}

	PatternAuth1to199   = regexp.MustCompile(`1[–-]199[^\d]*(\d{2,3})`)
	PatternAuth200to999 = regexp.MustCompile(`200[–-]999[^\d]*(\d{2,3})`)

	// Four spellings of the ">= 1000 subscribers" marker seen in the wild.
	PatternAuth1000Plus = []*regexp.Regexp{
		regexp.MustCompile(`≥1\s*000\s*(\d{2,3})`),
		regexp.MustCompile(`≥1000\s*(\d{2,3})`),
		regexp.MustCompile(`>1\s*000\s*(\d{2,3})`),
		regexp.MustCompile(`>1000\s*(\d{2,3})`),
	}
)

// FirstMatch returns the first capture group of the first pattern that
// matches text.
func FirstMatch(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}
