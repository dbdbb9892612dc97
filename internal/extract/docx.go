package extract

import (
	"archive/zip"
	"encoding/xml"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/severn-soft/pricegrab/internal/model"
	"github.com/severn-soft/pricegrab/internal/numeric"
	"github.com/severn-soft/pricegrab/internal/rules"
)

var lowerRu = cases.Lower(language.Russian)

// tableRole classifies a Word table by its content fingerprint rather
// than by its position in the document, so inserted promo tables do not
// shift everything off by one.
type tableRole int

const (
	roleNone tableRole = iota
	roleOptimal
	roleCommon
	roleCommonPlus
)

// commonBands lists the subscriber bands of the banded tables in row
// order. Band rows are consumed with a strictly advancing cursor, so a
// repeated or out-of-order band never rebinds an earlier column.
var commonBands = []struct {
	token  string
	common model.Field
	plus   model.Field
}{
	{"1+4", model.FieldCommon1x4, model.FieldCommonPlus1x4},
	{"1+9", model.FieldCommon1x9, model.FieldCommonPlus1x9},
	{"1+19", model.FieldCommon1x19, model.FieldCommonPlus1x19},
	{"1+49", model.FieldCommon1x49, model.FieldCommonPlus1x49},
	{"1+99", model.FieldCommon1x99, model.FieldCommonPlus1x99},
	{"1+199", model.FieldCommon1x199, model.FieldCommonPlus1x199},
	{"1+499", model.FieldCommon1x499, model.FieldCommonPlus1x499},
}

// KonturDoc extracts the Word-document tariff tables for one region.
// Fields whose rows are absent stay out of the partial; the caller's
// record keeps them Unknown.
func KonturDoc(path string) (*model.PartialExtraction, error) {
	tables, err := docTables(path)
	if err != nil {
		return nil, eris.Wrap(err, "extract: kontur doc")
	}

	p := model.NewPartial()
	for _, t := range tables {
		switch classifyTable(t) {
		case roleOptimal:
			parseOptimalTable(t, p)
		case roleCommon:
			parseBandedTable(t, p, false)
		case roleCommonPlus:
			parseBandedTable(t, p, true)
		}
	}
	return p, nil
}

// classifyTable fingerprints a table by the tariff names it mentions.
func classifyTable(t [][]string) tableRole {
	text := lowerRu.String(joinTable(t))

	banded := false
	for _, b := range commonBands {
		if strings.Contains(text, b.token) {
			banded = true
			break
		}
	}
	if banded {
		if strings.Contains(text, "общий плюс") {
			return roleCommonPlus
		}
		if strings.Contains(text, "общий") {
			return roleCommon
		}
		return roleNone
	}

	if strings.Contains(text, "оптимальный") || strings.Contains(text, "бюджетник") {
		return roleOptimal
	}
	return roleNone
}

// parseOptimalTable walks the flat tariff table: each interesting row
// names the tariff, the "1 год" term, the subject form and the tax
// regime, with the price in the last cell.
func parseOptimalTable(t [][]string, p *model.PartialExtraction) {
	for _, row := range t {
		if len(row) < 2 {
			continue
		}
		text := lowerRu.String(strings.Join(row, " "))
		if !strings.Contains(text, "1 год") {
			continue
		}

		f, ok := optimalRowField(text)
		if !ok {
			continue
		}
		v, okNum := numeric.Normalize(row[len(row)-1])
		p.Set(f, rules.KonturDocWindows[f].AcceptPrice(v, okNum))
	}
}

func optimalRowField(text string) (model.Field, bool) {
	switch {
	case strings.Contains(text, "бюджетник плюс"):
		return model.FieldBudgetPlus, true
	case strings.Contains(text, "бюджетник"):
		return model.FieldBudget, true
	}

	if !strings.Contains(text, "оптимальный плюс") {
		return "", false
	}
	ip := strings.Contains(text, "ип")
	ul := strings.Contains(text, "юл")
	usn := strings.Contains(text, "усн") || strings.Contains(text, "специальная")
	osno := strings.Contains(text, "осно") ||
		strings.Contains(text, "общая") || strings.Contains(text, "смешанная")

	switch {
	case ip && usn:
		return model.FieldOptimalIPUSN, true
	case ip && osno:
		return model.FieldOptimalIPOSNO, true
	case ul && usn:
		return model.FieldOptimalULUSN, true
	case ul && osno:
		return model.FieldOptimalULOSNO, true
	}
	return "", false
}

// parseBandedTable reads the subscriber-band price ladder. The cursor
// only moves forward through commonBands.
func parseBandedTable(t [][]string, p *model.PartialExtraction, plus bool) {
	cursor := 0
	for _, row := range t {
		if len(row) < 2 {
			continue
		}
		text := strings.Join(row, " ")

		idx := -1
		for i := cursor; i < len(commonBands); i++ {
			if strings.Contains(text, commonBands[i].token) {
				idx = i
			}
		}
		if idx < 0 {
			continue
		}
		// The longest band token wins: "1+499" also contains "1+4".
		cursor = idx + 1

		f := commonBands[idx].common
		if plus {
			f = commonBands[idx].plus
		}
		v, ok := numeric.Normalize(row[len(row)-1])
		p.Set(f, rules.KonturDocWindows[f].AcceptPrice(v, ok))
	}
}

func joinTable(t [][]string) string {
	var b strings.Builder
	for _, row := range t {
		b.WriteString(strings.Join(row, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// docTables reads word/document.xml out of the docx archive and returns
// every table as rows of concatenated cell texts.
func docTables(path string) ([][][]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, eris.Wrap(err, "open archive")
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, eris.New("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, eris.Wrap(err, "open document.xml")
	}
	defer rc.Close()

	return decodeTables(xml.NewDecoder(rc))
}

func decodeTables(dec *xml.Decoder) ([][][]string, error) {
	var (
		tables [][][]string

		table [][]string
		row   []string
		cell  strings.Builder

		tblDepth int
		inRow    bool
		inCell   bool
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				// Nested tables are flattened into the outer one.
				tblDepth++
				if tblDepth == 1 {
					table = nil
				}
			case "tr":
				if tblDepth > 0 {
					inRow = true
					row = nil
				}
			case "tc":
				if inRow {
					inCell = true
					cell.Reset()
				}
			}

		case xml.CharData:
			if inCell {
				cell.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "tc":
				if inCell {
					inCell = false
					row = append(row, strings.TrimSpace(cell.String()))
				}
			case "tr":
				if inRow {
					inRow = false
					if len(row) > 0 {
						table = append(table, row)
					}
				}
			case "tbl":
				if tblDepth > 0 {
					tblDepth--
					if tblDepth == 0 && len(table) > 0 {
						tables = append(tables, table)
					}
				}
			}
		}
	}
	return tables, nil
}
