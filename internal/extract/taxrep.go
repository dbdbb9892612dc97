package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/numeric"
	"github.com/severn-soft/pricegrab/internal/rules"
)

var (
	// A zone id sitting in front of a run of bracket prices.
	taxZoneRe = regexp.MustCompile(`\b(\d{1,2})\s+\d+\s+\d+\s+\d+\s+\d+`)

	taxSmallNumRe = regexp.MustCompile(`\b\d{1,2}\b`)

	// Decimal prices inside the bounded anchor span ("12 500,00").
	taxDecimalRe = regexp.MustCompile(`\d[\d\s]*,\d+`)

	// The base price hides between these two anchor words.
	taxAnchorRe = regexp.MustCompile(`Право\s+(.*?)\s+Услуги`)

	bracketNumRe = regexp.MustCompile(`\b\d{2,3}\b`)
)

// basePriceIndex: the 4th captured decimal inside the anchor span is the
// 12-month total; the first three are component prices.
const basePriceIndex = 3

// TaxRepresentativePrices extracts per-region tax-representative entries
// from the batch PDF text. The zone bracket tables are parsed first, then
// wrapped region rows are merged into blocks and parsed one by one. The
// first block for a region wins; repeats further down the document are
// footnote echoes.
func TaxRepresentativePrices(text string) map[string]model.TaxRepresentativeEntry {
	zones := RegressionZones(text)
	out := make(map[string]model.TaxRepresentativeEntry)

	for _, b := range mergeRegionBlocks(text, isRegionNameLine) {
		if _, seen := out[b.Code]; seen {
			continue
		}
		entry, ok := parseTaxBlock(b.Text, zones)
		if ok {
			out[b.Code] = entry
		}
	}
	return out
}

func parseTaxBlock(text string, zones map[string]model.RegressionZone) (model.TaxRepresentativeEntry, bool) {
	entry := model.TaxRepresentativeEntry{ZoneID: findZoneID(text)}

	span := taxAnchorRe.FindStringSubmatch(text)
	if span == nil {
		return entry, false
	}
	prices := taxDecimalRe.FindAllString(span[1], -1)
	if len(prices) <= basePriceIndex {
		return entry, false
	}

	v, ok := numeric.Normalize(prices[basePriceIndex])
	base := rules.WindowTaxRepBase.AcceptPrice(v, ok)
	if !base.Known() {
		return entry, false
	}
	entry.Base = base

	if z, ok := zones[entry.ZoneID]; ok && len(z.Brackets) > 0 {
		entry.Regression = &z
	}
	return entry, true
}

// findZoneID locates the region's zone id: preferably the small number
// directly in front of a price run, otherwise the first standalone 1–2
// digit token that names a known zone. Zero-padded tokens ("05") are the
// region code, not a zone, and never match.
func findZoneID(text string) string {
	if m := taxZoneRe.FindStringSubmatch(text); m != nil {
		if validZone(m[1]) {
			return m[1]
		}
	}
	for _, tok := range taxSmallNumRe.FindAllString(text, -1) {
		if validZone(tok) {
			return tok
		}
	}
	return ""
}

func validZone(tok string) bool {
	if len(tok) > 1 && tok[0] == '0' {
		return false
	}
	n, err := strconv.Atoi(tok)
	return err == nil && n >= 1 && n <= 12
}

// RegressionZones parses the two zone bracket tables out of the
// surrounding PDF text. The main table carries one column per zone in
// MainSchemaZones order; the alternate table carries two columns, for
// zones 4 and 10.
func RegressionZones(text string) map[string]model.RegressionZone {
	zones := make(map[string]model.RegressionZone)
	for _, id := range append(append([]string{}, model.MainSchemaZones...), "4", "10") {
		zones[id] = model.RegressionZone{ZoneID: id, Brackets: make(map[string]int)}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		parseMainBracketLine(line, zones)
		parseAltBracketLine(line, zones)
	}
	return zones
}

// mainBracketRows maps a row's recognizable label to the bracket key and
// the split token that separates the label from the price columns.
var mainBracketRows = []struct {
	marker  string
	split   string
	bracket string
}{
	{"От 200 до 499", "499", model.Bracket200to499},
	{"От 500 до 999", "999", model.Bracket500to999},
	{"От 1000 до 1999", "1999", model.Bracket1000to1999},
}

func parseMainBracketLine(line string, zones map[string]model.RegressionZone) {
	// First row label varies between document revisions.
	if strings.Contains(line, "До 199") || strings.Contains(line, "До 192") {
		nums := bracketNumRe.FindAllString(line, -1)
		if len(nums) > 1 {
			assignMainRow(nums[1:], model.BracketTo199, zones)
		}
		return
	}

	for _, row := range mainBracketRows {
		if strings.Contains(line, row.marker) {
			_, rest, found := strings.Cut(line, row.split)
			if found {
				assignMainRow(bracketNumRe.FindAllString(rest, -1), row.bracket, zones)
			}
			return
		}
	}

	if strings.Contains(line, "От 2000") && !strings.Contains(line, "От 2000 до") {
		_, rest, found := strings.Cut(line, "2000")
		if found {
			assignMainRow(bracketNumRe.FindAllString(rest, -1), model.BracketFrom2000, zones)
		}
	}
}

func assignMainRow(prices []string, bracket string, zones map[string]model.RegressionZone) {
	if len(prices) < len(model.MainSchemaZones) {
		return
	}
	for i, id := range model.MainSchemaZones {
		if v, ok := numeric.Normalize(numeric.DigitsOnly(prices[i])); ok {
			zones[id].Brackets[bracket] = v
		}
	}
}

var altBracketRows = []struct {
	marker  string
	split   string
	bracket string
}{
	{"От 350 до 599", "599", model.Bracket350to599},
	{"От 600 до 999", "999", model.Bracket600to999},
}

func parseAltBracketLine(line string, zones map[string]model.RegressionZone) {
	if strings.Contains(line, "До 349") {
		nums := bracketNumRe.FindAllString(line, -1)
		if len(nums) > 2 {
			assignAltPair(nums[1], nums[2], model.BracketTo349, zones)
		}
		return
	}

	for _, row := range altBracketRows {
		if strings.Contains(line, row.marker) {
			_, rest, found := strings.Cut(line, row.split)
			if found {
				nums := bracketNumRe.FindAllString(rest, -1)
				if len(nums) >= 2 {
					assignAltPair(nums[0], nums[1], row.bracket, zones)
				}
			}
			return
		}
	}

	// "От 1000" with no upper bound; guard against the main table's
	// "От 1000 до 1999" row which shares the prefix.
	if strings.Contains(line, "От 1000") && !strings.Contains(line, "до 1999") {
		parts := strings.Fields(line)
		for i, p := range parts {
			if p == "1000" && i+2 < len(parts) {
				assignAltPair(parts[i+1], parts[i+2], model.BracketFrom1000, zones)
				return
			}
		}
	}
}

func assignAltPair(p4, p10, bracket string, zones map[string]model.RegressionZone) {
	if v, ok := numeric.Normalize(numeric.DigitsOnly(p4)); ok {
		zones["4"].Brackets[bracket] = v
	}
	if v, ok := numeric.Normalize(numeric.DigitsOnly(p10)); ok {
		zones["10"].Brackets[bracket] = v
	}
}
