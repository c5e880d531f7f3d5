package listing

// Catalog column names.
const (
	ColumnID                 = "id_listing"
	ColumnMake               = "merk"
	ColumnModel              = "model"
	ColumnSegment            = "segmen"
	ColumnYear               = "tahun"
	ColumnOdometer           = "kilometer"
	ColumnTransmission       = "transmisi"
	ColumnFuel               = "bahan_bakar"
	ColumnDisplacement       = "kapasitas_cc"
	ColumnColor              = "warna"
	ColumnCity               = "kota"
	ColumnOwners             = "jumlah_pemilik"
	ColumnServiceHistory     = "riwayat_servis"
	ColumnFloodDamage        = "bekas_banjir"
	ColumnCollisionDamage    = "bekas_tabrak"
	ColumnActiveRegistration = "pajak_hidup"
	ColumnBudget             = "budget_user_juta"

	// Training-time augmentation, never read at inference time.
	ColumnSalePrice = "harga_jual_juta"
	ColumnScore     = "rekomendasi_score"
)

// FeatureColumns are the model inputs, in matrix order.
var FeatureColumns = []string{
	ColumnMake, ColumnModel, ColumnSegment, ColumnYear, ColumnOdometer,
	ColumnTransmission, ColumnFuel, ColumnDisplacement, ColumnColor, ColumnCity,
	ColumnOwners, ColumnServiceHistory, ColumnFloodDamage, ColumnCollisionDamage,
	ColumnActiveRegistration, ColumnBudget,
}

// NumericColumns are coerced to numbers before admission.
var NumericColumns = []string{
	ColumnYear, ColumnOdometer, ColumnDisplacement, ColumnOwners, ColumnBudget,
	ColumnSalePrice, ColumnScore,
}

// IsNumeric reports whether the column carries numeric semantics.
func IsNumeric(column string) bool {
	for _, c := range NumericColumns {
		if c == column {
			return true
		}
	}
	return false
}
