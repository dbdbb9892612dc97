// Package report renders the merged region records into the delivered
// spreadsheet. The whole workbook is rewritten on every snapshot, so a
// checkpoint file is always internally consistent regardless of where
// the run stopped.
package report

import (
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/severn-soft/pricegrab/internal/model"
)

const sheetName = "Прайс"

// column is one output column: a fixed record attribute or a tariff field.
type column struct {
	header string
	field  model.Field
	zone   bool
}

var sabyColumns = buildColumns(model.SabyColumns, map[model.Field]string{
	model.FieldLightIP:      "Легкий ИП",
	model.FieldLightBudget:  "Легкий Бюджет",
	model.FieldLightUSN:     "Легкий УСН",
	model.FieldLightOSNO:    "Легкий ОСНО",
	model.FieldBasicIP:      "Базовый ИП",
	model.FieldBasicBudget:  "Базовый Бюджет",
	model.FieldBasicUSN:     "Базовый УСН",
	model.FieldBasicOSNO:    "Базовый ОСНО",
	model.FieldZeroReport:   "Нулевка или ИП без сотрудников",
	model.FieldBuhta:        "ОБ (Buhta) и УПБ",
	model.FieldAuthLicense:  "Стоимость лицензии",
	model.FieldAuthQuarter:  "За квартал (минимум)",
	model.FieldAuth1to199:   "1-199",
	model.FieldAuth200to999: "200-999",
	model.FieldAuth1000Plus: ">1000",
	model.FieldCorp5:        "Корп. 5",
	model.FieldCorp10:       "Корп. 10",
	model.FieldCorp25:       "Корп. 25",
	model.FieldCorp50:       "Корп. 50",
}, nil)

var konturColumns = buildColumns(model.KonturColumns, map[model.Field]string{
	model.FieldOptimalIPUSN:  "ИП (УСН)",
	model.FieldOptimalIPOSNO: "ИП (ОСНО)",
	model.FieldOptimalULUSN:  "ЮЛ (УСН)",
	model.FieldOptimalULOSNO: "ЮЛ (ОСНО)",
	model.FieldBudgetPlus:    "Бюджетник плюс",
	model.FieldBudget:        "Бюджетник",

	model.FieldCommon1x4:   "1+4",
	model.FieldCommon1x9:   "1+9",
	model.FieldCommon1x19:  "1+19",
	model.FieldCommon1x49:  "1+49",
	model.FieldCommon1x99:  "1+99",
	model.FieldCommon1x199: "1+199",
	model.FieldCommon1x499: "1+499",

	model.FieldCommonPlus1x4:   "1+4 плюс",
	model.FieldCommonPlus1x9:   "1+9 плюс",
	model.FieldCommonPlus1x19:  "1+19 плюс",
	model.FieldCommonPlus1x49:  "1+49 плюс",
	model.FieldCommonPlus1x99:  "1+99 плюс",
	model.FieldCommonPlus1x199: "1+199 плюс",
	model.FieldCommonPlus1x499: "1+499 плюс",

	model.FieldKonturZeroReport: "Нулевая отчетность",
	model.FieldTaxRepBase:       "Налоговый представитель Базовый",

	model.FieldRegression1: "до 199",
	model.FieldRegression2: "200-499",
	model.FieldRegression3: "500-999",
	model.FieldRegression4: "1000-1999",
	model.FieldRegression5: "от 2000",

	model.FieldStartIPUSN:  "Стартовый онлайн ИП (УСН)",
	model.FieldStartIPOSNO: "Стартовый онлайн ИП (ОСНО)",
	model.FieldStartULUSN:  "Стартовый онлайн ЮЛ (УСН)",
	model.FieldStartULOSNO: "Стартовый онлайн ЮЛ (ОСНО)",
}, map[model.Field]column{
	// The zone id column sits in front of the regression brackets.
	model.FieldRegression1: {header: "Зона регрессии", zone: true},
})

// buildColumns assembles the full column layout: code, name, one column
// per tariff field (with injected special columns), and the trailing
// error column.
func buildColumns(fields []model.Field, headers map[model.Field]string, before map[model.Field]column) []column {
	cols := []column{{header: "Код региона"}, {header: "Название региона"}}
	for _, f := range fields {
		if c, ok := before[f]; ok {
			cols = append(cols, c)
		}
		cols = append(cols, column{header: headers[f], field: f})
	}
	return append(cols, column{header: "Ошибка"})
}

func catalogColumns(c model.Catalog) []column {
	if c == model.CatalogKontur {
		return konturColumns
	}
	return sabyColumns
}

// FileName returns the dated delivery name for a catalog snapshot.
func FileName(c model.Catalog, now time.Time) string {
	return string(c) + "_price_на_" + now.Format("02.01.06") + ".xlsx"
}

// Sink writes catalog snapshots into a directory, one workbook per run,
// rewritten in full on each call.
type Sink struct {
	dir     string
	catalog model.Catalog
}

func NewSink(dir string, catalog model.Catalog) *Sink {
	return &Sink{dir: dir, catalog: catalog}
}

// Path is where Snapshot will write for the given date.
func (s *Sink) Path(now time.Time) string {
	return filepath.Join(s.dir, FileName(s.catalog, now))
}

// Snapshot renders all records into a fresh workbook and returns the
// written path.
func (s *Sink) Snapshot(records []*model.RegionRecord, now time.Time) (string, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return "", eris.Wrap(err, "report: add sheet")
	}

	cols := catalogColumns(s.catalog)
	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c.header)
	}

	for _, rec := range records {
		writeRow(sheet.AddRow(), cols, rec)
	}

	path := s.Path(now)
	if err := f.Save(path); err != nil {
		return "", eris.Wrapf(err, "report: save %s", path)
	}
	return path, nil
}

func writeRow(row *xlsx.Row, cols []column, rec *model.RegionRecord) {
	for i, c := range cols {
		cell := row.AddCell()
		switch {
		case i == 0:
			cell.SetString(rec.Code)
		case i == 1:
			cell.SetString(rec.Name)
		case i == len(cols)-1:
			cell.SetString(rec.Err)
		case rec.Err != "":
			// Failed regions keep their row but hide any partial values.
			cell.SetString(model.UnknownMark)
		case c.zone:
			cell.SetString(zoneText(rec.Zone))
		default:
			cell.SetString(rec.Get(c.field).String())
		}
	}
}

func zoneText(zone string) string {
	if zone == "" {
		return model.UnknownMark
	}
	return zone
}
