package model

// Regression-zone bracket labels. Two incompatible schemas exist: the main
// schema (five brackets) is used by zones 1,2,3,5,6,7,8,9,11,12; the
// alternate schema (four brackets) by zones 4 and 10. The label sets are
// disjoint by construction.
const (
	BracketTo199    = "до 199"
	Bracket200to499 = "от 200 до 499"
	Bracket500to999 = "от 500 до 999"
	Bracket1000to1999 = "от 1000 до 1999"
	BracketFrom2000 = "от 2000"

	BracketTo349    = "до 349"
	Bracket350to599 = "от 350 до 599"
	Bracket600to999 = "от 600 до 999"
	BracketFrom1000 = "от 1000"
)

// BracketOrderMain is the main schema in column order.
var BracketOrderMain = []string{
	BracketTo199, Bracket200to499, Bracket500to999, Bracket1000to1999, BracketFrom2000,
}

// BracketOrderAlt is the zones-4/10 schema in column order. It fills only
// the first four regression columns.
var BracketOrderAlt = []string{
	BracketTo349, Bracket350to599, Bracket600to999, BracketFrom1000,
}

// MainSchemaZones are the zone ids that use the main bracket schema.
var MainSchemaZones = []string{"1", "2", "3", "5", "6", "7", "8", "9", "11", "12"}

// AltSchemaZone reports whether a zone id uses the alternate (four-bracket)
// schema.
func AltSchemaZone(zone string) bool {
	return zone == "4" || zone == "10"
}

// BracketOrder returns the bracket schema for a zone id.
func BracketOrder(zone string) []string {
	if AltSchemaZone(zone) {
		return BracketOrderAlt
	}
	return BracketOrderMain
}

// RegressionZone maps subscriber-count bracket labels to integer prices
// for one zone id.
type RegressionZone struct {
	ZoneID   string
	Brackets map[string]int
}

// RegressionColumns maps a zone's brackets onto the positional regression
// output fields, in schema order. Missing brackets yield Unknown.
func (z RegressionZone) RegressionColumns() map[Field]Price {
	cols := []Field{FieldRegression1, FieldRegression2, FieldRegression3, FieldRegression4, FieldRegression5}
	out := make(map[Field]Price)
	for i, label := range BracketOrder(z.ZoneID) {
		if v, ok := z.Brackets[label]; ok {
			out[cols[i]] = Known(v)
		}
	}
	return out
}

// TaxRepresentativeEntry is the per-region result of the tax-representative
// PDF extractor.
type TaxRepresentativeEntry struct {
	ZoneID string
	Base   Price
	// Regression is attached only when the zone id is known.
	Regression *RegressionZone
}
