package models

import "testing"

func TestParseIndexType(t *testing.T) {
	tests := []struct {
		in      string
		want    IndexType
		wantErr bool
	}{
		{"", IndexTypeAuto, false},
		{"TEXT", IndexTypeText, false},
		{" number ", IndexTypeNumber, false},
		{"GeoPoint", IndexTypeGeoPoint, false},
		{"identifier", IndexTypeIdentifier, false},
		{"blob", "", true},
	}
	for _, tt := range tests {
		got, err := ParseIndexType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIndexType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseIndexType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIndexType_SupportsMultipleValues(t *testing.T) {
	for _, it := range []IndexType{IndexTypeNumber, IndexTypeDate} {
		if it.SupportsMultipleValues() {
			t.Errorf("%s should be single-valued", it)
		}
	}
	for _, it := range []IndexType{IndexTypeText, IndexTypeHTML, IndexTypeIdentifier, IndexTypeGeoPoint} {
		if !it.SupportsMultipleValues() {
			t.Errorf("%s should allow multiple values", it)
		}
	}
}

func TestGeoPoint_RoundTrip(t *testing.T) {
	p := GeoPoint{Lat: 35.6895, Lon: 139.6917}
	if p.String() != "35.6895,139.6917" {
		t.Fatalf("String() = %q", p.String())
	}
	got, err := ParseGeoPoint(p.String())
	if err != nil {
		t.Fatal(err)
	}
	if got != p {
		t.Errorf("ParseGeoPoint = %+v, want %+v", got, p)
	}
	if _, err := ParseGeoPoint("91,0"); err == nil {
		t.Error("expected out of range latitude to fail")
	}
	if _, err := ParseGeoPoint("nope"); err == nil {
		t.Error("expected malformed point to fail")
	}
}

func TestDocument_ValuesAndNames(t *testing.T) {
	doc := &Document{ID: "1", Fields: []Field{
		{Name: "tags", IndexType: IndexTypeText, Value: "a"},
		{Name: "title", IndexType: IndexTypeText, Value: "t"},
		{Name: "tags", IndexType: IndexTypeText, Value: "b"},
	}}
	names := doc.FieldNames()
	if len(names) != 2 || names[0] != "tags" || names[1] != "title" {
		t.Errorf("FieldNames() = %v", names)
	}
	vals := doc.Values("tags")
	if len(vals) != 2 || vals[0] != "a" || vals[1] != "b" {
		t.Errorf("Values(tags) = %v", vals)
	}
}
