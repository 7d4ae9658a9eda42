package adei

import (
	"errors"
	"strings"
	"testing"
)

func sampleCountry() CountryData {
	return CountryData{
		CountryName:      "Malaysia",
		OverallADEIScore: 61,
		OverallADEIRank:  3,
		DimensionSummary: []DimensionPillarSummary{
			{Dimension: "Digital Foundation", Pillar: "Institutions", Value: 64, Rank: 5},
			{Dimension: "Digital Foundation", Pillar: "Infrastructure", Value: 58, Rank: 4},
		},
		DetailedPillars: []PillarData{
			{
				PillarName:       "First Pillar: Institutions",
				TotalPillarScore: 63.59,
				SubPillars: []SubPillar{
					{Name: "Political Environment", Score: 55.32},
					{Name: "Rule of Law", Score: 60.11},
				},
			},
			{
				PillarName:       "Second Pillar: Infrastructure",
				TotalPillarScore: 58.2,
				SubPillars: []SubPillar{
					{Name: "Access to ICT", Score: 61.5},
				},
			},
		},
	}
}

func TestCountryDataValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CountryData)
		wantErr string
	}{
		{
			name:   "complete record",
			mutate: func(c *CountryData) {},
		},
		{
			name: "missing country name",
			mutate: func(c *CountryData) {
				c.CountryName = ""
			},
			wantErr: "country_name",
		},
		{
			name: "whitespace country name",
			mutate: func(c *CountryData) {
				c.CountryName = "   "
			},
			wantErr: "country_name",
		},
		{
			name: "empty children tolerated",
			mutate: func(c *CountryData) {
				c.DimensionSummary = nil
				c.DetailedPillars = nil
			},
		},
		{
			name: "unnamed summary pillar",
			mutate: func(c *CountryData) {
				c.DimensionSummary[1].Pillar = ""
			},
			wantErr: "dimension_summary[1]",
		},
		{
			name: "unnamed detailed pillar",
			mutate: func(c *CountryData) {
				c.DetailedPillars[0].PillarName = "  "
			},
			wantErr: "detailed_pillars[0]",
		},
		{
			name: "unnamed sub-pillar",
			mutate: func(c *CountryData) {
				c.DetailedPillars[0].SubPillars[1].Name = ""
			},
			wantErr: "sub_pillars[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			country := sampleCountry()
			tt.mutate(&country)

			err := country.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() returned %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() returned nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestCountryDataValidate_MissingNameSentinel(t *testing.T) {
	country := CountryData{}
	if err := country.Validate(); !errors.Is(err, ErrMissingCountryName) {
		t.Errorf("Validate() error = %v, want ErrMissingCountryName", err)
	}
}

func TestCountryDataPillar(t *testing.T) {
	country := sampleCountry()

	tests := []struct {
		name      string
		lookup    string
		wantScore float64
		wantOK    bool
	}{
		{name: "stored name", lookup: "First Pillar: Institutions", wantScore: 63.59, wantOK: true},
		{name: "display name", lookup: "Institutions", wantScore: 63.59, wantOK: true},
		{name: "second pillar display name", lookup: "Infrastructure", wantScore: 58.2, wantOK: true},
		{name: "unknown pillar", lookup: "Cybersecurity", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pillar, ok := country.Pillar(tt.lookup)
			if ok != tt.wantOK {
				t.Fatalf("Pillar(%q) ok = %v, want %v", tt.lookup, ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			if pillar.TotalPillarScore != tt.wantScore {
				t.Errorf("Pillar(%q) score = %v, want %v", tt.lookup, pillar.TotalPillarScore, tt.wantScore)
			}
		})
	}
}

func TestSortByRank(t *testing.T) {
	records := []CountryData{
		{CountryName: "Qatar", OverallADEIRank: 4},
		{CountryName: "United Arab Emirates", OverallADEIRank: 1},
		{CountryName: "Morocco", OverallADEIRank: 9},
		{CountryName: "Malaysia", OverallADEIRank: 3},
	}

	SortByRank(records)

	want := []string{"United Arab Emirates", "Malaysia", "Qatar", "Morocco"}
	for i, name := range want {
		if records[i].CountryName != name {
			t.Errorf("records[%d] = %q, want %q", i, records[i].CountryName, name)
		}
	}
}

func TestSortByRank_TiesBreakByName(t *testing.T) {
	records := []CountryData{
		{CountryName: "Togo", OverallADEIRank: 40},
		{CountryName: "Gabon", OverallADEIRank: 40},
		{CountryName: "Chad", OverallADEIRank: 40},
	}

	SortByRank(records)

	want := []string{"Chad", "Gabon", "Togo"}
	for i, name := range want {
		if records[i].CountryName != name {
			t.Errorf("records[%d] = %q, want %q", i, records[i].CountryName, name)
		}
	}
}
