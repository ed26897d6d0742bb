package normalize

import "testing"

func TestSplitLocation(t *testing.T) {
	na := "<nil>"
	tests := []struct {
		in       string
		wantRoad string
		wantCity string
	}{
		{"Storgata 5, Oslo", "Storgata 5", "Oslo"},
		{"Osloveien", na, "Osloveien"},
		{"A|B, Oslo", na, "Oslo"},
		{"Storgata 5, Oslo|Bergen", "Storgata 5", na},
		{"Leilighet 2, Storgata 5, Oslo", "Leilighet 2, Storgata 5", "Oslo"},
		{"Storgata 5,", "Storgata 5", ""},
		{"Storgata 5,Oslo", "Storgata 5", "slo"},
		{"", na, ""},
		{"|", na, na},
	}

	for _, tt := range tests {
		road, city := SplitLocation(tt.in)
		if got := deref(road, na); got != tt.wantRoad {
			t.Errorf("SplitLocation(%q) road = %q; want %q", tt.in, got, tt.wantRoad)
		}
		if got := deref(city, na); got != tt.wantCity {
			t.Errorf("SplitLocation(%q) city = %q; want %q", tt.in, got, tt.wantCity)
		}
	}
}

func deref(s *string, na string) string {
	if s == nil {
		return na
	}
	return *s
}
