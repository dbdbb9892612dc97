package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/rules"
)

// startPricesPerRegion is how many start-online prices a region row
// carries: one per entity/regime combination.
const startPricesPerRegion = 4

var (
	// "base – total" pairs; the second number is the candidate price.
	// Totals appear both as "4 800,00" and as unspaced cent-embedded runs
	// like "480000", so the decimal tail is optional. Spaced continuation
	// is restricted to whole 3-digit thousand groups (the \b stops a group
	// from binding the prefix of the next pair's number), which keeps a
	// match from running on through the rest of the merged row.
	startPairRe = regexp.MustCompile(`(\d[\d\s,\.]*)\s*–\s*(\d+(?:\s\d{3}\b)*(?:[,\.]\d{2})?)`)

	// Fallback: spaced 2–3 digit thousand groups ("4 800").
	startSpacedRe = regexp.MustCompile(`(\d{1,2}\s?\d{3})`)

	startLineRe = regexp.MustCompile(`^\d{2}`)

	startCleaner = strings.NewReplacer(" ", "", " ", "", ",", "")
)

// StartOnlinePrices extracts the four start-online prices per region from
// the batch PDF text. Totals come with embedded fractional-cent digits
// ("4 800,00" → "480000"), so accepted candidates are divided by 100
// before the plausibility window applies. A candidate equal to the
// region's own numeric code is rejected: it is the code leaking into the
// number stream, not a price.
func StartOnlinePrices(text string) map[string][]model.Price {
	out := make(map[string][]model.Price)

	blocks := mergeRegionBlocks(text, func(line string) (string, bool) {
		if startLineRe.MatchString(line) {
			return line[:2], true
		}
		return "", false
	})

	for _, b := range blocks {
		if _, seen := out[b.Code]; seen {
			continue
		}
		prices := startPairPrices(b.Code, b.Text)
		if len(prices) < startPricesPerRegion {
			prices = startSpacedPrices(b.Code, b.Text)
		}
		if len(prices) >= startPricesPerRegion {
			out[b.Code] = prices[:startPricesPerRegion]
		}
	}
	return out
}

// startPairPrices collects the second number of every "number – number"
// pair. Duplicates are kept on purpose: the four tariff categories often
// share a price.
func startPairPrices(code, text string) []model.Price {
	codeNum, _ := strconv.Atoi(code)
	var prices []model.Price

	for _, m := range startPairRe.FindAllStringSubmatch(text, -1) {
		clean := startCleaner.Replace(strings.TrimSpace(m[2]))
		clean = strings.ReplaceAll(clean, ".", "")
		if len(clean) < 5 || !allDigits(clean) {
			continue
		}
		v, err := strconv.Atoi(clean)
		if err != nil {
			continue
		}
		v /= 100 // strip fractional cents
		if rules.WindowStartOnline.Accept(v) && v != codeNum {
			prices = append(prices, model.Known(v))
		}
	}
	return prices
}

// startSpacedPrices is the fallback heuristic: any spaced thousand groups
// under the same window, first four taken.
func startSpacedPrices(code, text string) []model.Price {
	codeNum, _ := strconv.Atoi(code)
	var prices []model.Price

	for _, m := range startSpacedRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.Atoi(strings.ReplaceAll(m[1], " ", ""))
		if err != nil {
			continue
		}
		if rules.WindowStartOnline.Accept(v) && v != codeNum {
			prices = append(prices, model.Known(v))
			if len(prices) == startPricesPerRegion {
				break
			}
		}
	}
	if len(prices) < startPricesPerRegion {
		return nil
	}
	return prices
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return len(s) > 0
}
