package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/numeric"
	"github.com/severn-soft/pricegrab/internal/rules"
)

// Expander re-renders the live page after activating the collapsible
// section named by keyword, returning the refreshed markup and visible
// text. Static inputs (tests, cached pages) pass a nil Expander and the
// collapsed-only fields stay Unknown.
type Expander interface {
	Expand(ctx context.Context, keyword string) (html, text string, err error)
}

// PageContext carries one region's rendered tariff page through the
// extraction steps. Steps read from it and never reach back into any
// shared session state.
type PageContext struct {
	HTML     string
	Text     string
	Expander Expander
}

const (
	priceButtonSel = "span.billing-PriceList__priceButton"
	nullSpanSel    = `span[data-qa="EOpNull"]`

	buhtaSectionKeyword = "Buhta"
	authSectionKeyword  = "Уполномоченная бухгалтерия"
)

// Tariff card offsets within the price-button span list. The first eight
// spans exist only on the full layout; pages with fewer buttons carry a
// reduced tariff set and contribute nothing for those fields.
var (
	sabySpanFields = []model.Field{
		model.FieldLightIP, model.FieldLightBudget, model.FieldLightUSN, model.FieldLightOSNO,
		model.FieldBasicIP, model.FieldBasicBudget, model.FieldBasicUSN, model.FieldBasicOSNO,
	}

	// Corp seat-count ladder, spans 9 through 12 on the extended layout.
	sabyCorpFields = []model.Field{
		model.FieldCorp5, model.FieldCorp10, model.FieldCorp25, model.FieldCorp50,
	}
)

const (
	sabyFullLayoutSpans = 8
	sabyCorpStart       = 9
	sabyCorpLayoutSpans = sabyCorpStart + 4
)

var buhtaNumberRe = regexp.MustCompile(`(\d{1,3}\s?\d{3,4})`)

// SabyTariffs extracts every saby field reachable from one region's
// tariff page: the price-button grid, the zero-report span, the
// secondary-tariff section and the authorized-accounting section.
func SabyTariffs(ctx context.Context, page PageContext) (*model.PartialExtraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse tariff page")
	}

	p := model.NewPartial()
	extractPriceButtons(doc, p)
	extractZeroReport(doc, p)

	if err := extractBuhta(ctx, page, doc, p); err != nil {
		return p, err
	}
	if err := extractAuthSection(ctx, page, p); err != nil {
		return p, err
	}
	return p, nil
}

func extractPriceButtons(doc *goquery.Document, p *model.PartialExtraction) {
	spans := doc.Find(priceButtonSel)
	n := spans.Length()
	if n < sabyFullLayoutSpans {
		return
	}

	for i, f := range sabySpanFields {
		p.Set(f, spanPrice(spans, i))
	}
	if n >= sabyCorpLayoutSpans {
		for i, f := range sabyCorpFields {
			p.Set(f, spanPrice(spans, sabyCorpStart+i))
		}
	}
}

func spanPrice(spans *goquery.Selection, i int) model.Price {
	v, ok := numeric.Normalize(spans.Eq(i).Text())
	if !ok {
		return model.Unknown
	}
	return model.Known(v)
}

func extractZeroReport(doc *goquery.Document, p *model.PartialExtraction) {
	v, ok := numeric.Normalize(doc.Find(nullSpanSel).First().Text())
	if ok {
		p.Set(model.FieldZeroReport, model.Known(v))
	}
}

// extractBuhta looks for the secondary accounting tariff near its
// keyword, first in the static markup and, failing that, after expanding
// the collapsed section.
func extractBuhta(ctx context.Context, page PageContext, doc *goquery.Document, p *model.PartialExtraction) error {
	if price := buhtaFromDoc(doc); price.Known() {
		p.Set(model.FieldBuhta, price)
		return nil
	}
	if page.Expander == nil {
		return nil
	}

	html, _, err := expandSection(ctx, page, buhtaSectionKeyword)
	if err != nil {
		return eris.Wrap(err, "extract: expand secondary tariff")
	}
	expanded, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return eris.Wrap(err, "extract: parse expanded tariff page")
	}
	p.Set(model.FieldBuhta, buhtaFromDoc(expanded))
	return nil
}

// buhtaFromDoc finds the keyword element and scans outward through its
// ancestors for the first in-window number. Walking outward keeps the
// search anchored to the tariff card instead of the whole page.
func buhtaFromDoc(doc *goquery.Document) model.Price {
	var found model.Price

	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		own := s.Clone().Children().Remove().End().Text()
		if !strings.Contains(own, "Buhta") && !strings.Contains(own, "УПБ") {
			return true
		}

		for node := s; node.Length() > 0; node = node.Parent() {
			for _, m := range buhtaNumberRe.FindAllString(node.Text(), -1) {
				v, ok := numeric.Normalize(m)
				if price := rules.WindowBuhta.AcceptPrice(v, ok); price.Known() {
					found = price
					return false
				}
			}
		}
		return true
	})
	return found
}

// extractAuthSection expands the authorized-accounting section and runs
// the anchored field patterns over its text.
func extractAuthSection(ctx context.Context, page PageContext, p *model.PartialExtraction) error {
	text := page.Text
	if !strings.Contains(text, authSectionKeyword) {
		if page.Expander == nil {
			return nil
		}
		var err error
		_, text, err = expandSection(ctx, page, authSectionKeyword)
		if err != nil {
			return eris.Wrap(err, "extract: expand accounting section")
		}
	}

	idx := strings.Index(text, authSectionKeyword)
	if idx < 0 {
		return nil
	}
	section := text[idx:]

	if m := rules.PatternAuthLicense.FindStringSubmatch(section); m != nil {
		p.Set(model.FieldAuthLicense, knownFrom(m[1]))
	}
	if m, ok := rules.FirstMatch(rules.PatternAuthQuarter, section); ok {
		p.Set(model.FieldAuthQuarter, knownFrom(m))
	}
	if m := rules.PatternAuth1to199.FindStringSubmatch(section); m != nil {
		// The per-employee price here is two digits; a three digit match
		// has swallowed the first digit of the following column.
		s := m[1]
		if len(s) == 3 {
			s = s[:2]
		}
		p.Set(model.FieldAuth1to199, knownFrom(s))
	}
	if m := rules.PatternAuth200to999.FindStringSubmatch(section); m != nil {
		p.Set(model.FieldAuth200to999, knownFrom(m[1]))
	}
	if m, ok := rules.FirstMatch(rules.PatternAuth1000Plus, section); ok {
		p.Set(model.FieldAuth1000Plus, knownFrom(m))
	}
	return nil
}

func expandSection(ctx context.Context, page PageContext, keyword string) (string, string, error) {
	html, text, err := page.Expander.Expand(ctx, keyword)
	if err != nil {
		return "", "", err
	}
	if html == "" {
		html = page.HTML
	}
	if text == "" {
		text = page.Text
	}
	return html, text, nil
}

func knownFrom(raw string) model.Price {
	v, ok := numeric.Normalize(raw)
	if !ok {
		return model.Unknown
	}
	return model.Known(v)
}
