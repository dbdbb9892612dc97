package model

// Field identifies one tariff column in a catalog's output table.
type Field string

// Saby catalog fields, in output column order.
const (
	FieldLightIP     Field = "light_ip"
	FieldLightBudget Field = "light_budget"
	FieldLightUSN    Field = "light_usn"
	FieldLightOSNO   Field = "light_osno"
	FieldBasicIP     Field = "basic_ip"
	FieldBasicBudget Field = "basic_budget"
	FieldBasicUSN    Field = "basic_usn"
	FieldBasicOSNO   Field = "basic_osno"
	FieldZeroReport  Field = "zero_report"
	FieldBuhta       Field = "buhta_upb"
	FieldAuthLicense Field = "auth_license"
	FieldAuthQuarter Field = "auth_quarter"
	FieldAuth1to199  Field = "auth_1_199"
	FieldAuth200to999 Field = "auth_200_999"
	FieldAuth1000Plus Field = "auth_1000_plus"
	FieldCorp5       Field = "corp_5"
	FieldCorp10      Field = "corp_10"
	FieldCorp25      Field = "corp_25"
	FieldCorp50      Field = "corp_50"
)

// Kontur catalog fields, in output column order.
const (
	FieldOptimalIPUSN  Field = "optimal_ip_usn"
	FieldOptimalIPOSNO Field = "optimal_ip_osno"
	FieldOptimalULUSN  Field = "optimal_ul_usn"
	FieldOptimalULOSNO Field = "optimal_ul_osno"
	FieldBudgetPlus    Field = "budget_plus"
	FieldBudget        Field = "budget"

	FieldCommon1x4   Field = "common_1_4"
	FieldCommon1x9   Field = "common_1_9"
	FieldCommon1x19  Field = "common_1_19"
	FieldCommon1x49  Field = "common_1_49"
	FieldCommon1x99  Field = "common_1_99"
	FieldCommon1x199 Field = "common_1_199"
	FieldCommon1x499 Field = "common_1_499"

	FieldCommonPlus1x4   Field = "common_plus_1_4"
	FieldCommonPlus1x9   Field = "common_plus_1_9"
	FieldCommonPlus1x19  Field = "common_plus_1_19"
	FieldCommonPlus1x49  Field = "common_plus_1_49"
	FieldCommonPlus1x99  Field = "common_plus_1_99"
	FieldCommonPlus1x199 Field = "common_plus_1_199"
	FieldCommonPlus1x499 Field = "common_plus_1_499"

	FieldKonturZeroReport Field = "kontur_zero_report"
	FieldTaxRepBase       Field = "tax_rep_base"

	// Regression bracket columns are positional: the two bracket schemas
	// share the same five columns, zones 4 and 10 fill only the first four.
	FieldRegression1 Field = "regression_1"
	FieldRegression2 Field = "regression_2"
	FieldRegression3 Field = "regression_3"
	FieldRegression4 Field = "regression_4"
	FieldRegression5 Field = "regression_5"

	FieldStartIPUSN  Field = "start_ip_usn"
	FieldStartIPOSNO Field = "start_ip_osno"
	FieldStartULUSN  Field = "start_ul_usn"
	FieldStartULOSNO Field = "start_ul_osno"
)

// Catalog names one of the two supported pricing catalogs.
type Catalog string

const (
	CatalogSaby   Catalog = "saby"
	CatalogKontur Catalog = "kontur"
)

// SabyColumns is the fixed output column order for the saby catalog.
var SabyColumns = []Field{
	FieldLightIP, FieldLightBudget, FieldLightUSN, FieldLightOSNO,
	FieldBasicIP, FieldBasicBudget, FieldBasicUSN, FieldBasicOSNO,
	FieldZeroReport, FieldBuhta,
	FieldAuthLicense, FieldAuthQuarter,
	FieldAuth1to199, FieldAuth200to999, FieldAuth1000Plus,
	FieldCorp5, FieldCorp10, FieldCorp25, FieldCorp50,
}

// KonturColumns is the fixed output column order for the kontur catalog.
var KonturColumns = []Field{
	FieldOptimalIPUSN, FieldOptimalIPOSNO, FieldOptimalULUSN, FieldOptimalULOSNO,
	FieldBudgetPlus, FieldBudget,
	FieldCommon1x4, FieldCommon1x9, FieldCommon1x19, FieldCommon1x49,
	FieldCommon1x99, FieldCommon1x199, FieldCommon1x499,
	FieldCommonPlus1x4, FieldCommonPlus1x9, FieldCommonPlus1x19, FieldCommonPlus1x49,
	FieldCommonPlus1x99, FieldCommonPlus1x199, FieldCommonPlus1x499,
	FieldKonturZeroReport, FieldTaxRepBase,
	FieldRegression1, FieldRegression2, FieldRegression3, FieldRegression4, FieldRegression5,
	FieldStartIPUSN, FieldStartIPOSNO, FieldStartULUSN, FieldStartULOSNO,
}

// Columns returns the column order for a catalog.
func Columns(c Catalog) []Field {
	if c == CatalogKontur {
		return KonturColumns
	}
	return SabyColumns
}

// RegionRecord is the wide per-region result row. Every field is always
// present, holding either an integer price or Unknown; fields are mutated
// in place as extractors contribute and are never deleted during a run.
type RegionRecord struct {
	Code string // 2-digit, zero-padded; unique batch key
	Name string

	// Zone is the regression zone id for the kontur catalog, "" if unknown.
	Zone string

	// Err marks a region-level extraction failure. The row is still
	// emitted; all fields render as Unknown.
	Err string

	fields map[Field]Price
}

// NewRegionRecord creates a record with every column of the catalog set
// to Unknown.
func NewRegionRecord(code, name string, catalog Catalog) *RegionRecord {
	fields := make(map[Field]Price)
	for _, f := range Columns(catalog) {
		fields[f] = Unknown
	}
	return &RegionRecord{Code: code, Name: name, fields: fields}
}

// Get returns the current value of a field (Unknown for fields outside
// the catalog's column set).
func (r *RegionRecord) Get(f Field) Price {
	return r.fields[f]
}

// SetIfUnknown writes v only when the field is still Unknown and v is
// known. Returns true when the write happened. This is the single
// mutation path: a field set once is never overwritten.
func (r *RegionRecord) SetIfUnknown(f Field, v Price) bool {
	if !v.Known() {
		return false
	}
	if cur, ok := r.fields[f]; ok && cur.Known() {
		return false
	}
	r.fields[f] = v
	return true
}
