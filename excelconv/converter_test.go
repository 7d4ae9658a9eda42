package excelconv

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"adei_backend/adei"
	"adei_backend/logging"
)

// miniStructure is a two-pillar layout that keeps workbook fixtures small.
func miniStructure() Structure {
	return Structure{Pillars: []PillarSpec{
		{Name: "First Pillar: Institutions", Dimension: "Digital Foundation",
			Short: "Institutions", TotalCol: "1",
			SubPillars: []SubPillarSpec{
				{Col: "1.1", Name: "Political Environment"},
				{Col: "1.2", Name: "Regulatory Environment"},
			}},
		{Name: "Second Pillar: Infrastructure", Dimension: "Digital Foundation",
			Short: "Infrastructure", TotalCol: "2",
			SubPillars: []SubPillarSpec{
				{Col: "2.1", Name: "Access to ICT"},
			}},
	}}
}

// writeWorkbook saves rows to Sheet1 of a temp workbook and returns its path.
func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cellRef := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow("Sheet1", cellRef, &row); err != nil {
			t.Fatalf("SetSheetRow(%s): %v", cellRef, err)
		}
	}

	path := filepath.Join(t.TempDir(), "scores.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func miniConverter() *Converter {
	return NewConverter(Config{Structure: miniStructure()}, logging.NewNopLogger())
}

func TestConvertFile(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Country", "Year", "Rank", "ADEI", "1", "1.1", "1.2", "2", "2.1"},
		{"Malaysia", 2024, 3, 61.4, 63.4, 55.327, 62.5, 70.1, 68.2},
		{"Qatar", 2024, 1, 70.6, 71.2, 66.0, 64.4, 80.0, 77.7},
		{"Indonesia", 2024, 2, 65.0, 63.4, 50.0, 61.1, 75.3, 70.0},
	})

	result, err := miniConverter().ConvertFile(path)
	if err != nil {
		t.Fatalf("ConvertFile() returned %v", err)
	}

	if result.RowsRead != 3 || result.Dropped != 0 {
		t.Errorf("RowsRead/Dropped = %d/%d, want 3/0", result.RowsRead, result.Dropped)
	}

	// Sorted by overall rank.
	wantOrder := []string{"Qatar", "Indonesia", "Malaysia"}
	if len(result.Records) != len(wantOrder) {
		t.Fatalf("len(Records) = %d, want %d", len(result.Records), len(wantOrder))
	}
	for i, want := range wantOrder {
		if result.Records[i].CountryName != want {
			t.Errorf("Records[%d] = %q, want %q", i, result.Records[i].CountryName, want)
		}
	}

	malaysia := result.Records[2]
	if malaysia.OverallADEIScore != 61 {
		t.Errorf("Malaysia score = %d, want 61 (61.4 rounded)", malaysia.OverallADEIScore)
	}
	if malaysia.OverallADEIRank != 3 {
		t.Errorf("Malaysia rank = %d, want 3", malaysia.OverallADEIRank)
	}

	if len(malaysia.DimensionSummary) != 2 {
		t.Fatalf("Malaysia has %d summary rows, want 2", len(malaysia.DimensionSummary))
	}
	first := malaysia.DimensionSummary[0]
	if first.Dimension != "Digital Foundation" || first.Pillar != "Institutions" {
		t.Errorf("summary labels = %q/%q", first.Dimension, first.Pillar)
	}
	if first.Value != 63 {
		t.Errorf("summary value = %d, want 63 (63.4 rounded)", first.Value)
	}

	if len(malaysia.DetailedPillars) != 2 {
		t.Fatalf("Malaysia has %d detailed pillars, want 2", len(malaysia.DetailedPillars))
	}
	institutions := malaysia.DetailedPillars[0]
	if institutions.PillarName != "First Pillar: Institutions" {
		t.Errorf("PillarName = %q", institutions.PillarName)
	}
	if institutions.TotalPillarScore != 63.4 {
		t.Errorf("TotalPillarScore = %v, want 63.4", institutions.TotalPillarScore)
	}
	if len(institutions.SubPillars) != 2 {
		t.Fatalf("institutions has %d sub-pillars, want 2", len(institutions.SubPillars))
	}
	if institutions.SubPillars[0].Name != "Political Environment" {
		t.Errorf("SubPillars[0].Name = %q", institutions.SubPillars[0].Name)
	}
	if institutions.SubPillars[0].Score != 55.33 {
		t.Errorf("SubPillars[0].Score = %v, want 55.33 (55.327 rounded)", institutions.SubPillars[0].Score)
	}

	if err := malaysia.Validate(); err != nil {
		t.Errorf("converted record fails validation: %v", err)
	}
}

func TestConvertPillarRanks(t *testing.T) {
	// Malaysia and Indonesia tie on pillar 1: competition ranking gives
	// both the minimum rank.
	path := writeWorkbook(t, [][]interface{}{
		{"Country", "Rank", "ADEI", "1", "1.1", "1.2", "2", "2.1"},
		{"Malaysia", 3, 61.4, 63.4, 55.0, 62.5, 70.1, 68.2},
		{"Qatar", 1, 70.6, 71.2, 66.0, 64.4, 80.0, 77.7},
		{"Indonesia", 2, 65.0, 63.4, 50.0, 61.1, 75.3, 70.0},
	})

	result, err := miniConverter().ConvertFile(path)
	if err != nil {
		t.Fatalf("ConvertFile() returned %v", err)
	}

	ranksByName := make(map[string][]int)
	for _, record := range result.Records {
		for _, row := range record.DimensionSummary {
			ranksByName[record.CountryName] = append(ranksByName[record.CountryName], row.Rank)
		}
	}

	tests := []struct {
		country string
		want    []int
	}{
		{"Qatar", []int{1, 1}},
		{"Indonesia", []int{2, 2}},
		{"Malaysia", []int{2, 3}},
	}
	for _, tt := range tests {
		got := ranksByName[tt.country]
		if len(got) != len(tt.want) {
			t.Fatalf("%s has %d pillar ranks, want %d", tt.country, len(got), len(tt.want))
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("%s pillar %d rank = %d, want %d", tt.country, i+1, got[i], tt.want[i])
			}
		}
	}
}

func TestConvertKeepsMostRecentYear(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Country", "Year", "Rank", "ADEI", "1", "1.1", "1.2", "2", "2.1"},
		{"Malaysia", 2023, 5, 50.0, 55.0, 50.0, 52.0, 60.0, 58.0},
		{"Qatar", 2024, 1, 70.6, 71.2, 66.0, 64.4, 80.0, 77.7},
		{"Malaysia", 2024, 3, 61.4, 63.4, 55.0, 62.5, 70.1, 68.2},
	})

	result, err := miniConverter().ConvertFile(path)
	if err != nil {
		t.Fatalf("ConvertFile() returned %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(result.Records))
	}
	if result.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", result.Dropped)
	}

	var malaysia *adei.CountryData
	for i := range result.Records {
		if result.Records[i].CountryName == "Malaysia" {
			malaysia = &result.Records[i]
		}
	}
	if malaysia == nil {
		t.Fatal("Malaysia record missing")
	}
	if malaysia.OverallADEIScore != 61 {
		t.Errorf("Malaysia score = %d, want 61 (2024 row)", malaysia.OverallADEIScore)
	}
	if malaysia.OverallADEIRank != 3 {
		t.Errorf("Malaysia rank = %d, want 3 (2024 row)", malaysia.OverallADEIRank)
	}
}

func TestConvertSkipsBlankCountries(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Country", "Rank", "ADEI", "1", "1.1", "1.2", "2", "2.1"},
		{"Malaysia", 3, 61.4, 63.4, 55.0, 62.5, 70.1, 68.2},
		{"", 0, 0, 0, 0, 0, 0, 0},
		{"  ", 0, 0, 0, 0, 0, 0, 0},
	})

	result, err := miniConverter().ConvertFile(path)
	if err != nil {
		t.Fatalf("ConvertFile() returned %v", err)
	}
	if len(result.Records) != 1 {
		t.Errorf("len(Records) = %d, want 1", len(result.Records))
	}
	if result.Dropped != 2 {
		t.Errorf("Dropped = %d, want 2", result.Dropped)
	}
}

func TestConvertMissingCells(t *testing.T) {
	// Short rows, blank cells and non-numeric markers all read as 0.
	path := writeWorkbook(t, [][]interface{}{
		{"Country", "Rank", "ADEI", "1", "1.1", "1.2", "2", "2.1"},
		{"Malaysia", 3, 61.4, 63.4, "", "N/A"},
	})

	result, err := miniConverter().ConvertFile(path)
	if err != nil {
		t.Fatalf("ConvertFile() returned %v", err)
	}

	malaysia := result.Records[0]
	subs := malaysia.DetailedPillars[0].SubPillars
	if subs[0].Score != 0 || subs[1].Score != 0 {
		t.Errorf("blank/non-numeric sub scores = %v/%v, want 0/0", subs[0].Score, subs[1].Score)
	}
	if malaysia.DetailedPillars[1].TotalPillarScore != 0 {
		t.Errorf("short-row pillar total = %v, want 0", malaysia.DetailedPillars[1].TotalPillarScore)
	}
}

func TestConvertNormalisesFloatHeaders(t *testing.T) {
	// Pillar totals sometimes render as "1.0" when the header row was
	// typed numerically.
	path := writeWorkbook(t, [][]interface{}{
		{"Country", "Rank", "ADEI", "1.0", "1.1", "1.2", "2.0", "2.1"},
		{"Malaysia", 3, 61.4, 63.4, 55.0, 62.5, 70.1, 68.2},
	})

	result, err := miniConverter().ConvertFile(path)
	if err != nil {
		t.Fatalf("ConvertFile() returned %v", err)
	}
	if got := result.Records[0].DetailedPillars[0].TotalPillarScore; got != 63.4 {
		t.Errorf("pillar 1 total = %v, want 63.4 (header 1.0 normalised)", got)
	}
	if got := result.Records[0].DetailedPillars[1].TotalPillarScore; got != 70.1 {
		t.Errorf("pillar 2 total = %v, want 70.1 (header 2.0 normalised)", got)
	}
}

func TestConvertMissingRankColumn(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Country", "ADEI", "1", "1.1", "1.2", "2", "2.1"},
		{"Qatar", 70.6, 71.2, 66.0, 64.4, 80.0, 77.7},
		{"Malaysia", 61.4, 63.4, 55.0, 62.5, 70.1, 68.2},
	})

	result, err := miniConverter().ConvertFile(path)
	if err != nil {
		t.Fatalf("ConvertFile() returned %v", err)
	}

	// All ranks default to 0, so the sort falls back to name order.
	if result.Records[0].CountryName != "Malaysia" || result.Records[0].OverallADEIRank != 0 {
		t.Errorf("Records[0] = %q rank %d, want Malaysia rank 0",
			result.Records[0].CountryName, result.Records[0].OverallADEIRank)
	}
}

func TestConvertErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := miniConverter().ConvertFile(filepath.Join(t.TempDir(), "missing.xlsx")); err == nil {
			t.Error("ConvertFile() with missing file should fail")
		}
	})

	t.Run("missing sheet", func(t *testing.T) {
		path := writeWorkbook(t, [][]interface{}{{"Country"}})
		converter := NewConverter(Config{SheetName: "Scores", Structure: miniStructure()}, logging.NewNopLogger())
		if _, err := converter.ConvertFile(path); err == nil {
			t.Error("ConvertFile() with missing sheet should fail")
		}
	})

	t.Run("no country column", func(t *testing.T) {
		path := writeWorkbook(t, [][]interface{}{
			{"Nation", "ADEI"},
			{"Malaysia", 61.4},
		})
		if _, err := miniConverter().ConvertFile(path); !errors.Is(err, ErrNoCountryColumn) {
			t.Errorf("ConvertFile() error = %v, want ErrNoCountryColumn", err)
		}
	})

	t.Run("header only", func(t *testing.T) {
		path := writeWorkbook(t, [][]interface{}{
			{"Country", "ADEI"},
		})
		if _, err := miniConverter().ConvertFile(path); !errors.Is(err, ErrNoRows) {
			t.Errorf("ConvertFile() error = %v, want ErrNoRows", err)
		}
	})
}

func TestConvertBuiltinStructure(t *testing.T) {
	structure := BuiltinStructure()

	header := []interface{}{"Country", "Year", "Rank", "ADEI"}
	row := []interface{}{"Malaysia", 2024, 1, 61.4}
	score := 10.0
	for _, pillar := range structure.Pillars {
		header = append(header, pillar.TotalCol)
		row = append(row, score)
		score += 1.0
		for _, sub := range pillar.SubPillars {
			header = append(header, sub.Col)
			row = append(row, score)
			score += 0.5
		}
	}
	path := writeWorkbook(t, [][]interface{}{header, row})

	result, err := NewConverter(DefaultConfig(), logging.NewNopLogger()).ConvertFile(path)
	if err != nil {
		t.Fatalf("ConvertFile() returned %v", err)
	}

	record := result.Records[0]
	if len(record.DetailedPillars) != adei.NumPillars {
		t.Fatalf("detailed pillars = %d, want %d", len(record.DetailedPillars), adei.NumPillars)
	}
	if len(record.DimensionSummary) != adei.NumPillars {
		t.Fatalf("summary rows = %d, want %d", len(record.DimensionSummary), adei.NumPillars)
	}
	for i, pillar := range structure.Pillars {
		if got := len(record.DetailedPillars[i].SubPillars); got != len(pillar.SubPillars) {
			t.Errorf("pillar %d has %d sub-pillars, want %d", i+1, got, len(pillar.SubPillars))
		}
	}
	if record.DetailedPillars[0].TotalPillarScore != 10.0 {
		t.Errorf("pillar 1 total = %v, want 10.0", record.DetailedPillars[0].TotalPillarScore)
	}
	if record.DetailedPillars[0].SubPillars[0].Score != 11.0 {
		t.Errorf("first sub score = %v, want 11.0", record.DetailedPillars[0].SubPillars[0].Score)
	}
	if err := record.Validate(); err != nil {
		t.Errorf("converted record fails validation: %v", err)
	}
}
