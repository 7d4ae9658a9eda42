package adei

import "testing"

func TestDisplayPillarName(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		want   string
	}{
		{name: "first pillar", stored: "First Pillar: Institutions", want: "Institutions"},
		{name: "fourth pillar", stored: "Fourth Pillar: E-Government", want: "E-Government"},
		{
			name:   "multi-word pillar",
			stored: "Seventh Pillar: Market Development and Sophistication",
			want:   "Market Development and Sophistication",
		},
		{
			name:   "ninth pillar",
			stored: "Ninth Pillar: Sustainable Development Goals",
			want:   "Sustainable Development Goals",
		},
		{name: "already stripped", stored: "Institutions", want: "Institutions"},
		{name: "empty", stored: "", want: ""},
		{name: "prefix only at start", stored: "About the First Pillar: Institutions", want: "About the First Pillar: Institutions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayPillarName(tt.stored); got != tt.want {
				t.Errorf("DisplayPillarName(%q) = %q, want %q", tt.stored, got, tt.want)
			}
		})
	}
}
