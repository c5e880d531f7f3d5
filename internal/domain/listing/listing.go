package listing

// Features are the sixteen model inputs of one listing.
type Features struct {
	Make               string  `json:"merk"`
	Model              string  `json:"model"`
	Segment            string  `json:"segmen"`
	Year               int     `json:"tahun"`
	Odometer           int     `json:"kilometer"`
	Transmission       string  `json:"transmisi"`
	Fuel               string  `json:"bahan_bakar"`
	Displacement       int     `json:"kapasitas_cc"`
	Color              string  `json:"warna"`
	City               string  `json:"kota"`
	Owners             int     `json:"jumlah_pemilik"`
	ServiceHistory     string  `json:"riwayat_servis"`
	FloodDamage        string  `json:"bekas_banjir"`
	CollisionDamage    string  `json:"bekas_tabrak"`
	ActiveRegistration string  `json:"pajak_hidup"`
	Budget             float64 `json:"budget_user_juta"`
}

// Numeric returns the value of a numeric feature column.
// ok is false for text or unknown columns.
func (f *Features) Numeric(column string) (v float64, ok bool) {
	switch column {
	case ColumnYear:
		return float64(f.Year), true
	case ColumnOdometer:
		return float64(f.Odometer), true
	case ColumnDisplacement:
		return float64(f.Displacement), true
	case ColumnOwners:
		return float64(f.Owners), true
	case ColumnBudget:
		return f.Budget, true
	default:
		return 0, false
	}
}

// Text returns the value of a text feature column.
// ok is false for numeric or unknown columns.
func (f *Features) Text(column string) (v string, ok bool) {
	switch column {
	case ColumnMake:
		return f.Make, true
	case ColumnModel:
		return f.Model, true
	case ColumnSegment:
		return f.Segment, true
	case ColumnTransmission:
		return f.Transmission, true
	case ColumnFuel:
		return f.Fuel, true
	case ColumnColor:
		return f.Color, true
	case ColumnCity:
		return f.City, true
	case ColumnServiceHistory:
		return f.ServiceHistory, true
	case ColumnFloodDamage:
		return f.FloodDamage, true
	case ColumnCollisionDamage:
		return f.CollisionDamage, true
	case ColumnActiveRegistration:
		return f.ActiveRegistration, true
	default:
		return "", false
	}
}

// Listing is one admitted catalog row.
type Listing struct {
	ID string
	Features

	// Realized outcomes from training-time augmentation; nil when absent.
	SalePrice *float64
	Score     *float64
}

// FloodFlag classifies the flood-damage indicator.
func (l *Listing) FloodFlag() Flag { return ParseFlag(l.FloodDamage) }

// CollisionFlag classifies the collision-damage indicator.
func (l *Listing) CollisionFlag() Flag { return ParseFlag(l.CollisionDamage) }

// RegistrationFlag classifies the active-registration indicator.
func (l *Listing) RegistrationFlag() Flag { return ParseFlag(l.ActiveRegistration) }
