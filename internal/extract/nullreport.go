package extract

import (
	"regexp"
	"strings"

	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/numeric"
)

// The zero-reporting plan lives on a known page range of the combined
// price-list PDF.
const (
	ZeroReportFirstPage = 49
	ZeroReportLastPage  = 54
)

// zeroReportMarker is the fixed phrase a relevant line must contain.
const zeroReportMarker = "Право использования ПО"

// The total price follows a dash separator: "... – 2 200,00".
var zeroReportPriceRe = regexp.MustCompile(`–\s+([\d\s,]+)`)

// ZeroReportPrices scans the restricted page text for per-region
// zero-reporting prices. A line counts only when it starts with a 2-digit
// region code and carries the marker phrase; everything else is noise.
func ZeroReportPrices(text string) map[string]model.Price {
	out := make(map[string]model.Price)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 2 || !strings.Contains(line, zeroReportMarker) {
			continue
		}
		if !isDigit(line[0]) || !isDigit(line[1]) {
			continue
		}
		code := line[:2]

		m := zeroReportPriceRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, ok := numeric.Normalize(m[1])
		if !ok {
			continue
		}
		if _, seen := out[code]; !seen {
			out[code] = model.Known(v)
		}
	}
	return out
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
