package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/severn-soft/pricegrab/internal/model"
)

var testDate = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestFileName(t *testing.T) {
	assert.Equal(t, "saby_price_на_14.03.26.xlsx", FileName(model.CatalogSaby, testDate))
	assert.Equal(t, "kontur_price_на_14.03.26.xlsx", FileName(model.CatalogKontur, testDate))
}

func TestSnapshotSaby(t *testing.T) {
	rec := model.NewRegionRecord("23", "Краснодарский край", model.CatalogSaby)
	rec.SetIfUnknown(model.FieldLightIP, model.Known(1300))
	rec.SetIfUnknown(model.FieldCorp50, model.Known(4000))

	sink := NewSink(t.TempDir(), model.CatalogSaby)
	path, err := sink.Snapshot([]*model.RegionRecord{rec}, testDate)
	require.NoError(t, err)

	rows := readRows(t, path)
	require.Len(t, rows, 2)

	header := rows[0]
	require.Len(t, header, 22)
	assert.Equal(t, "Код региона", header[0])
	assert.Equal(t, "Легкий ИП", header[2])
	assert.Equal(t, "Корп. 50", header[20])
	assert.Equal(t, "Ошибка", header[21])

	row := rows[1]
	assert.Equal(t, "23", row[0])
	assert.Equal(t, "Краснодарский край", row[1])
	assert.Equal(t, "1300", row[2])
	assert.Equal(t, model.UnknownMark, row[3]) // never extracted
	assert.Equal(t, "4000", row[20])
	assert.Equal(t, "", row[21])
}

func TestSnapshotKonturZoneColumn(t *testing.T) {
	rec := model.NewRegionRecord("50", "Московская область", model.CatalogKontur)
	rec.Zone = "4"
	rec.SetIfUnknown(model.FieldRegression1, model.Known(500))

	sink := NewSink(t.TempDir(), model.CatalogKontur)
	path, err := sink.Snapshot([]*model.RegionRecord{rec}, testDate)
	require.NoError(t, err)

	rows := readRows(t, path)
	header := rows[0]
	require.Len(t, header, 35)
	assert.Equal(t, "Налоговый представитель Базовый", header[23])
	assert.Equal(t, "Зона регрессии", header[24])
	assert.Equal(t, "до 199", header[25])
	assert.Equal(t, "Стартовый онлайн ЮЛ (ОСНО)", header[33])

	row := rows[1]
	assert.Equal(t, "4", row[24])
	assert.Equal(t, "500", row[25])
	assert.Equal(t, model.UnknownMark, row[26])
}

func TestSnapshotErrorRow(t *testing.T) {
	rec := model.NewRegionRecord("05", "Республика Дагестан", model.CatalogSaby)
	rec.SetIfUnknown(model.FieldLightIP, model.Known(1300))
	rec.Err = "страница не загрузилась"

	sink := NewSink(t.TempDir(), model.CatalogSaby)
	path, err := sink.Snapshot([]*model.RegionRecord{rec}, testDate)
	require.NoError(t, err)

	row := readRows(t, path)[1]
	assert.Equal(t, "05", row[0])
	assert.Equal(t, model.UnknownMark, row[2]) // partial value suppressed
	assert.Equal(t, "страница не загрузилась", row[21])
}

func TestSnapshotRewrite(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir, model.CatalogSaby)

	r1 := model.NewRegionRecord("01", "Адыгея", model.CatalogSaby)
	_, err := sink.Snapshot([]*model.RegionRecord{r1}, testDate)
	require.NoError(t, err)

	r2 := model.NewRegionRecord("02", "Башкортостан", model.CatalogSaby)
	path, err := sink.Snapshot([]*model.RegionRecord{r1, r2}, testDate)
	require.NoError(t, err)

	// Same file, now with both regions.
	assert.Equal(t, sink.Path(testDate), path)
	assert.Len(t, readRows(t, path), 3)
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, f.Sheets)

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		var cells []string
		for _, cell := range row.Cells {
			cells = append(cells, cell.String())
		}
		rows = append(rows, cells)
	}
	return rows
}
