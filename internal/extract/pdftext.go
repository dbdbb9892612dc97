package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// PDFText extracts plain text from every page of a PDF.
func PDFText(path string) (string, error) {
	return PDFPageText(path, 0, 0)
}

// PDFPageText extracts plain text from an inclusive 1-based page range.
// first/last of 0 mean "from the first page" / "to the last page". Pages
// that fail to decode are skipped; a price list with one broken page is
// still worth the rest.
func PDFPageText(path string, first, last int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "extract: open pdf %s", path)
	}
	defer f.Close()

	total := r.NumPage()
	if first < 1 {
		first = 1
	}
	if last < 1 || last > total {
		last = total
	}

	var b strings.Builder
	for n := first; n <= last; n++ {
		p := r.Page(n)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}
