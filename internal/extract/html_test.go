package extract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/severn-soft/pricegrab/internal/model"
)

// fakeExpander returns canned refreshed content per section keyword.
type fakeExpander struct {
	html  map[string]string
	text  map[string]string
	calls []string
}

func (f *fakeExpander) Expand(_ context.Context, keyword string) (string, string, error) {
	f.calls = append(f.calls, keyword)
	return f.html[keyword], f.text[keyword], nil
}

func tariffPage(prices ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, p := range prices {
		fmt.Fprintf(&b, `<span class="billing-PriceList__priceButton">%s</span>`, p)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestSabyTariffsFullLayout(t *testing.T) {
	// Thirteen buttons: eight tariff cards, one filler, four corp seats.
	html := tariffPage(
		"1 300", "1 000", "2 000", "3 500",
		"3 000", "2 500", "4 700", "7 300",
		"900",
		"2 500", "3 000", "3 500", "4 000",
	)

	p, err := SabyTariffs(context.Background(), PageContext{HTML: html})
	require.NoError(t, err)

	assert.Equal(t, 1300, p.Get(model.FieldLightIP).Int())
	assert.Equal(t, 1000, p.Get(model.FieldLightBudget).Int())
	assert.Equal(t, 2000, p.Get(model.FieldLightUSN).Int())
	assert.Equal(t, 3500, p.Get(model.FieldLightOSNO).Int())
	assert.Equal(t, 3000, p.Get(model.FieldBasicIP).Int())
	assert.Equal(t, 7300, p.Get(model.FieldBasicOSNO).Int())

	assert.Equal(t, 2500, p.Get(model.FieldCorp5).Int())
	assert.Equal(t, 3000, p.Get(model.FieldCorp10).Int())
	assert.Equal(t, 3500, p.Get(model.FieldCorp25).Int())
	assert.Equal(t, 4000, p.Get(model.FieldCorp50).Int())
}

func TestSabyTariffsReducedLayout(t *testing.T) {
	// Fewer than eight buttons means a reduced tariff set; nothing is
	// guessed from partial positions.
	p, err := SabyTariffs(context.Background(), PageContext{
		HTML: tariffPage("1 300", "1 000", "2 000"),
	})
	require.NoError(t, err)

	assert.False(t, p.Get(model.FieldLightIP).Known())
	assert.False(t, p.Get(model.FieldBasicOSNO).Known())
	assert.False(t, p.Get(model.FieldCorp5).Known())
}

func TestSabyTariffsEightButtonsNoCorp(t *testing.T) {
	p, err := SabyTariffs(context.Background(), PageContext{
		HTML: tariffPage("1 300", "1 000", "2 000", "3 500", "3 000", "2 500", "4 700", "7 300"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1300, p.Get(model.FieldLightIP).Int())
	assert.False(t, p.Get(model.FieldCorp5).Known())
}

func TestSabyZeroReportSpan(t *testing.T) {
	html := `<html><body><span data-qa="EOpNull">1 700</span></body></html>`

	p, err := SabyTariffs(context.Background(), PageContext{HTML: html})
	require.NoError(t, err)
	assert.Equal(t, 1700, p.Get(model.FieldZeroReport).Int())
}

func TestSabyBuhtaFromStaticMarkup(t *testing.T) {
	html := `<html><body><div class="card">
		<span>УПБ</span><span>12 000 ₽ в год</span>
	</div></body></html>`

	p, err := SabyTariffs(context.Background(), PageContext{HTML: html})
	require.NoError(t, err)
	assert.Equal(t, 12000, p.Get(model.FieldBuhta).Int())
}

func TestSabyBuhtaExpandsCollapsedSection(t *testing.T) {
	exp := &fakeExpander{
		html: map[string]string{
			buhtaSectionKeyword: `<html><body><div><span>Buhta</span><span>9 500</span></div></body></html>`,
		},
		text: map[string]string{},
	}

	p, err := SabyTariffs(context.Background(), PageContext{
		HTML:     `<html><body>пусто</body></html>`,
		Expander: exp,
	})
	require.NoError(t, err)

	assert.Contains(t, exp.calls, buhtaSectionKeyword)
	assert.Equal(t, 9500, p.Get(model.FieldBuhta).Int())
}

func TestSabyBuhtaWindowRejectsOutliers(t *testing.T) {
	// 1 200 is below the plausible range for this tariff; the scan keeps
	// going and takes the in-window neighbour.
	html := `<html><body><div>
		<span>УПБ</span> <span>1 200</span> <span>12 000</span>
	</div></body></html>`

	p, err := SabyTariffs(context.Background(), PageContext{HTML: html})
	require.NoError(t, err)
	assert.Equal(t, 12000, p.Get(model.FieldBuhta).Int())
}

func TestSabyAuthSection(t *testing.T) {
	text := "Уполномоченная бухгалтерия\n" +
		"Подключение 10 000 ₽\n" +
		"от 3 500 ₽ за квартал\n" +
		"1–199 58 ₽\n" +
		"200–999 42 ₽\n" +
		">1000 35 ₽\n"

	p, err := SabyTariffs(context.Background(), PageContext{
		HTML: "<html><body></body></html>",
		Text: text,
	})
	require.NoError(t, err)

	assert.Equal(t, 10000, p.Get(model.FieldAuthLicense).Int())
	assert.Equal(t, 3500, p.Get(model.FieldAuthQuarter).Int())
	assert.Equal(t, 58, p.Get(model.FieldAuth1to199).Int())
	assert.Equal(t, 42, p.Get(model.FieldAuth200to999).Int())
	assert.Equal(t, 35, p.Get(model.FieldAuth1000Plus).Int())
}

func TestSabyAuthSectionViaExpander(t *testing.T) {
	exp := &fakeExpander{
		html: map[string]string{},
		text: map[string]string{
			authSectionKeyword: "Уполномоченная бухгалтерия Подключение 10 000 ₽",
		},
	}

	p, err := SabyTariffs(context.Background(), PageContext{
		HTML:     "<html><body></body></html>",
		Text:     "прочее содержимое",
		Expander: exp,
	})
	require.NoError(t, err)

	assert.Contains(t, exp.calls, authSectionKeyword)
	assert.Equal(t, 10000, p.Get(model.FieldAuthLicense).Int())
}

func TestSabyAuthSectionAbsentWithoutExpander(t *testing.T) {
	p, err := SabyTariffs(context.Background(), PageContext{
		HTML: "<html><body></body></html>",
		Text: "прочее содержимое",
	})
	require.NoError(t, err)
	assert.False(t, p.Get(model.FieldAuthLicense).Known())
}
