package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

// TestNewDepthBins tests edge and centre construction.
func TestNewDepthBins(t *testing.T) {
	// Edges arange(2.5, 100, 5) => 2.5 ... 97.5, centres 5 ... 95.
	bins, err := NewDepthBins(5, 100)
	if err != nil {
		t.Fatalf("NewDepthBins failed: %v", err)
	}
	if bins.Len() != 19 {
		t.Fatalf("Expected 19 bins, got %d", bins.Len())
	}
	if bins.Centers[0] != 5 || bins.Centers[18] != 95 {
		t.Errorf("Unexpected centres: first %v, last %v", bins.Centers[0], bins.Centers[18])
	}
	edges := bins.Edges()
	if len(edges) != 20 || edges[0] != 2.5 || edges[19] != 97.5 {
		t.Errorf("Unexpected edges: %v", edges)
	}

	if _, err := NewDepthBins(5, 6); err == nil {
		t.Error("Expected error when no bin fits")
	}
}

// TestDepthBins_Index tests right-closed bin intervals.
func TestDepthBins_Index(t *testing.T) {
	bins, err := NewDepthBins(5, 100)
	if err != nil {
		t.Fatalf("NewDepthBins failed: %v", err)
	}

	tests := []struct {
		z    float64
		want int
	}{
		{0, -1},
		{2.5, -1},
		{2.6, 0},
		{7.5, 0},
		{7.6, 1},
		{50, 9},
		{97.5, 18},
		{97.6, -1},
		{math.NaN(), -1},
	}
	for _, tt := range tests {
		if got := bins.Index(tt.z); got != tt.want {
			t.Errorf("Index(%v): expected %d, got %d", tt.z, tt.want, got)
		}
	}
}

// TestParseSeason tests that unknown tokens resolve to SeasonAll.
func TestParseSeason(t *testing.T) {
	tests := []struct {
		token string
		want  Season
		known bool
	}{
		{"spring", SeasonSpring, true},
		{"Summer", SeasonSummer, true},
		{" fall ", SeasonFall, true},
		{"winter", SeasonAll, false},
		{"", SeasonAll, false},
	}
	for _, tt := range tests {
		got, known := ParseSeason(tt.token)
		if got != tt.want || known != tt.known {
			t.Errorf("ParseSeason(%q): expected (%v, %v), got (%v, %v)", tt.token, tt.want, tt.known, got, known)
		}
	}

	winter, _ := ParseSeason("winter")
	omitted, _ := ParseSeason("")
	for m := time.January; m <= time.December; m++ {
		if winter.Contains(m) != omitted.Contains(m) {
			t.Errorf("Month %v: winter and omitted seasons disagree", m)
		}
		if !winter.Contains(m) {
			t.Errorf("Month %v should be kept when no season applies", m)
		}
	}
	if SeasonSpring.Contains(time.March) || !SeasonSpring.Contains(time.June) {
		t.Error("Spring should cover April to June")
	}
}

// TestVariable_Validity tests the temperature bound and salinity outlier range.
func TestVariable_Validity(t *testing.T) {
	if !Temperature.CountsAsValid(29.9) || Temperature.CountsAsValid(30) {
		t.Error("Temperature must count as valid strictly below 30")
	}
	if !Salinity.CountsAsValid(40) {
		t.Error("Salinity has no aggregation bound")
	}
	if Salinity.Accept(27.9) || !Salinity.Accept(28) || !Salinity.Accept(36.75) || Salinity.Accept(36.8) {
		t.Error("Salinity outlier range is [28, 36.75]")
	}
	if !Temperature.Accept(35) || Temperature.Accept(math.NaN()) {
		t.Error("Temperature accepts any finite value at ingestion")
	}
	if Temperature.RecordName() != "Tbot" || Salinity.RecordName() != "Sbot" {
		t.Error("Unexpected record names")
	}
}

// TestField_Sub tests that invalid cells propagate through subtraction.
func TestField_Sub(t *testing.T) {
	nan := math.NaN()
	a, _ := FieldFromRows([][]float64{{1, 2}, {nan, 4}})
	b, _ := FieldFromRows([][]float64{{0.5, nan}, {1, 1}})

	d, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	if v, ok := d.At(0, 0); !ok || v != 0.5 {
		t.Errorf("Cell (0,0): expected 0.5, got %v (valid=%v)", v, ok)
	}
	if d.Valid(0, 1) || d.Valid(1, 0) {
		t.Error("Cells invalid in either operand must be invalid")
	}
	if d.Count() != 2 {
		t.Errorf("Expected 2 valid cells, got %d", d.Count())
	}

	if _, err := a.Sub(NewField(1, 2)); err == nil {
		t.Error("Expected error for mismatched shapes")
	}
}

// TestCube_Layers tests layer copy and column views.
func TestCube_Layers(t *testing.T) {
	c := NewCube(2, 3, 4)
	c.Set(1, 2, 3, 7)
	if v, ok := c.At(1, 2, 3); !ok || v != 7 {
		t.Fatalf("At: expected 7, got %v", v)
	}

	layer := c.Layer(3)
	if layer.Count() != 1 || !layer.Valid(1, 2) {
		t.Errorf("Layer 3 should hold one value at (1,2)")
	}
	layer.Set(0, 0, 1)
	c.SetLayer(3, layer)
	if c.LayerCount(3) != 2 {
		t.Errorf("Expected 2 values in layer 3, got %d", c.LayerCount(3))
	}

	c.ClearColumn(1, 2)
	if c.LayerCount(3) != 1 {
		t.Errorf("ClearColumn should remove the column value")
	}
}

// TestParseDivisions tests division list parsing.
func TestParseDivisions(t *testing.T) {
	codes, err := ParseDivisions("3l, 3N,3ps")
	if err != nil {
		t.Fatalf("ParseDivisions failed: %v", err)
	}
	want := []DivisionCode{Div3L, Div3N, Div3Ps}
	if len(codes) != len(want) {
		t.Fatalf("Expected %v, got %v", want, codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("Code %d: expected %s, got %s", i, want[i], codes[i])
		}
	}

	if _, err := ParseDivisions("3X"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// TestFilter_Keep tests box, season and year selection.
func TestFilter_Keep(t *testing.T) {
	g, _ := NewRegularGrid([]float64{0, 1, 2}, []float64{10, 11, 12})
	years := YearRange{First: 1990, Last: 1991}
	f := Filter{Grid: g, Season: SeasonFall, Years: &years, MaxDepth: 1000}

	at := func(lon, lat float64, y int, m time.Month) Cast {
		return Cast{Lon: lon, Lat: lat, Time: time.Date(y, m, 15, 0, 0, 0, 0, time.UTC)}
	}

	tests := []struct {
		name string
		cast Cast
		want bool
	}{
		{"inside", at(1, 11, 1990, time.October), true},
		{"corner centre", at(0, 10, 1991, time.December), true},
		{"wrong month", at(1, 11, 1990, time.July), false},
		{"wrong year", at(1, 11, 1992, time.October), false},
		{"outside box", at(3, 11, 1990, time.October), false},
	}
	for _, tt := range tests {
		if got := f.Keep(tt.cast); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
	if f.KeepLevel(1000) || !f.KeepLevel(999.9) {
		t.Error("Levels must be strictly shallower than MaxDepth")
	}
}
