package dataset

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/kailas-cloud/carmatch/internal/domain"
	"github.com/kailas-cloud/carmatch/internal/domain/listing"
)

var testColumns = append([]string{listing.ColumnID}, listing.FeatureColumns...)

func avanzaRecord(id string) []string {
	return []string{
		id, "Toyota", "Avanza", "MPV", "2019", "60000", "Manual", "Bensin",
		"1300", "Hitam", "Jakarta", "1", "Rutin", "Tidak", "Tidak", "Ya", "180",
	}
}

func TestAdmit_AllRowsComplete(t *testing.T) {
	f, err := FromRecords(testColumns, [][]string{avanzaRecord("A1"), avanzaRecord("A2")})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	got, err := Admit(f)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if len(got.Listings) != 2 || got.Dropped != 0 {
		t.Fatalf("expected 2 admitted / 0 dropped, got %d / %d", len(got.Listings), got.Dropped)
	}

	l := got.Listings[0]
	if l.ID != "A1" || l.Make != "Toyota" || l.Year != 2019 || l.Odometer != 60000 || l.Budget != 180 {
		t.Errorf("unexpected listing: %+v", l)
	}
	if l.SalePrice != nil || l.Score != nil {
		t.Error("expected no training-time outcomes")
	}
}

func TestAdmit_MissingColumns(t *testing.T) {
	cols := []string{listing.ColumnMake, listing.ColumnModel}
	f, err := FromRecords(cols, [][]string{{"Toyota", "Avanza"}})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	_, err = Admit(f)
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}

	var se *domain.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SchemaError, got %T", err)
	}
	if len(se.Missing) != 14 {
		t.Fatalf("expected 14 missing columns, got %d: %v", len(se.Missing), se.Missing)
	}
	if se.Missing[0] != listing.ColumnSegment || se.Missing[13] != listing.ColumnBudget {
		t.Errorf("missing columns out of order: %v", se.Missing)
	}
}

func TestAdmit_DropsIncompleteRows(t *testing.T) {
	nullCity := avanzaRecord("B1")
	nullCity[10] = ""

	badYear := avanzaRecord("B2")
	badYear[4] = "dua ribu"

	hexYear := avanzaRecord("B3")
	hexYear[4] = "0x7e3"

	naBudget := avanzaRecord("B4")
	naBudget[16] = "NaN"

	floatYear := avanzaRecord("B5")
	floatYear[4] = " 2019.0 "

	f, err := FromRecords(testColumns, [][]string{nullCity, badYear, hexYear, naBudget, floatYear})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	got, err := Admit(f)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if got.Dropped != 4 {
		t.Errorf("expected 4 dropped rows, got %d", got.Dropped)
	}
	if len(got.Listings) != 1 || got.Listings[0].ID != "B5" || got.Listings[0].Year != 2019 {
		t.Errorf("expected only B5 admitted with year 2019, got %+v", got.Listings)
	}
}

func TestAdmit_IDFallsBackToRowPosition(t *testing.T) {
	f, err := FromRecords(listing.FeatureColumns, [][]string{
		avanzaRecord("x")[1:],
		avanzaRecord("y")[1:],
	})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	got, err := Admit(f)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if got.Listings[0].ID != "0" || got.Listings[1].ID != "1" {
		t.Errorf("expected positional ids, got %q %q", got.Listings[0].ID, got.Listings[1].ID)
	}
}

func TestAdmit_OptionalOutcomes(t *testing.T) {
	cols := append(append([]string{}, testColumns...), listing.ColumnSalePrice, listing.ColumnScore)
	rec := append(avanzaRecord("C1"), "155.5", "n/a")

	f, err := FromRecords(cols, [][]string{rec})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	got, err := Admit(f)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	l := got.Listings[0]
	if l.SalePrice == nil || *l.SalePrice != 155.5 {
		t.Errorf("expected sale price 155.5, got %v", l.SalePrice)
	}
	if l.Score != nil {
		t.Errorf("expected nil score for NA cell, got %v", *l.Score)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New([]string{"a", "a"}, nil); err == nil {
		t.Error("expected error for duplicate column")
	}
	if _, err := New([]string{"a", ""}, nil); err == nil {
		t.Error("expected error for empty column name")
	}
	rows := [][]sql.NullString{{{String: "x", Valid: true}}}
	if _, err := New([]string{"a", "b"}, rows); err == nil {
		t.Error("expected error for ragged row")
	}
}

func TestFrame_Value(t *testing.T) {
	f, err := New([]string{"a"}, [][]sql.NullString{{{String: "v", Valid: true}}, {{}}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if v, ok := f.Value(0, "a"); !ok || v != "v" {
		t.Errorf("Value(0,a) = %q, %v", v, ok)
	}
	if _, ok := f.Value(1, "a"); ok {
		t.Error("null cell should not be ok")
	}
	if _, ok := f.Value(0, "zzz"); ok {
		t.Error("unknown column should not be ok")
	}
	if _, ok := f.Value(5, "a"); ok {
		t.Error("out of range row should not be ok")
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"150", 150, true},
		{" 12.5 ", 12.5, true},
		{"1e3", 1000, true},
		{"1,000", 0, false},
		{"inf", 0, false},
		{"NaN", 0, false},
		{"", 0, false},
		{"+5", 5, true},
		{"-2.5e-1", -0.25, true},
		{"0x1p4", 0, false},
		{"1_000", 0, false},
		{"Infinity", 0, false},
		{"1e", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseNumber(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestAdmit_RoundsFractionalIntegers(t *testing.T) {
	rec := avanzaRecord("F1")
	rec[5] = "60000.5"
	rec[11] = "1.5"
	rec[8] = "1299.4"

	f, err := FromRecords(testColumns, [][]string{rec})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	got, err := Admit(f)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if got.Dropped != 0 || len(got.Listings) != 1 {
		t.Fatalf("expected the row admitted, got %d listings, %d dropped", len(got.Listings), got.Dropped)
	}
	l := got.Listings[0]
	if l.Odometer != 60001 || l.Owners != 2 || l.Displacement != 1299 {
		t.Errorf("odometer=%d owners=%d cc=%d, want 60001, 2, 1299", l.Odometer, l.Owners, l.Displacement)
	}
}
