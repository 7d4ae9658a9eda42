// Package excelconv converts the official ADEI scores workbook into the JSON
// country dataset, producing the same records as the report extraction
// pipeline.
//
// converter.go implements the Converter molecule. It composes:
//   - structure.go: the workbook column layout
package excelconv

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"adei_backend/adei"
	"adei_backend/logging"
)

// ErrNoCountryColumn is returned when the sheet has no "Country" header.
var ErrNoCountryColumn = errors.New("no Country column found in sheet")

// ErrNoRows is returned when the sheet holds no usable country rows.
var ErrNoRows = errors.New("no country rows found in sheet")

// Config holds configuration for workbook conversion.
type Config struct {
	// SheetName is the worksheet to read. Defaults to "Sheet1".
	SheetName string

	// Structure is the column layout. Defaults to BuiltinStructure().
	Structure Structure
}

// DefaultConfig returns the configuration matching the published workbook.
func DefaultConfig() Config {
	return Config{
		SheetName: "Sheet1",
		Structure: BuiltinStructure(),
	}
}

// Result contains the outcome of a conversion.
type Result struct {
	// Records holds the converted dataset, sorted by overall rank.
	Records []adei.CountryData

	// RowsRead is the number of data rows in the sheet.
	RowsRead int

	// Dropped counts rows discarded: blank country names and older-year
	// duplicates.
	Dropped int
}

// Converter reads the scores workbook and builds country records.
type Converter struct {
	config Config
	log    *logging.Logger
}

// NewConverter creates a Converter. Zero-value config fields fall back to
// the published workbook's sheet name and column layout.
func NewConverter(config Config, log *logging.Logger) *Converter {
	if config.SheetName == "" {
		config.SheetName = "Sheet1"
	}
	if len(config.Structure.Pillars) == 0 {
		config.Structure = BuiltinStructure()
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Converter{config: config, log: log.Named("convert")}
}

// ConvertFile reads the workbook at path and converts it into country
// records.
//
// Example:
//
//	converter := NewConverter(DefaultConfig(), log)
//	result, err := converter.ConvertFile("data/raw/adei_scores.xlsx")
//	if err != nil {
//	    return err
//	}
//	err = adei.WriteDataset(cfg.JSONPath, result.Records)
func (c *Converter) ConvertFile(path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(c.config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", c.config.SheetName, err)
	}
	result, err := c.convertRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", c.config.SheetName, err)
	}

	c.log.Infow("workbook converted",
		"path", path,
		"rows", result.RowsRead,
		"countries", len(result.Records),
		"dropped", result.Dropped,
	)
	return result, nil
}

// workRow is one country row kept after year deduplication.
type workRow struct {
	name string
	year float64
	row  []string
}

func (c *Converter) convertRows(rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	columns := headerIndex(rows[0])
	countryIdx, ok := columns["Country"]
	if !ok {
		return nil, ErrNoCountryColumn
	}
	yearIdx, hasYear := columns["Year"]
	rankIdx, hasRank := columns["Rank"]
	adeiIdx, hasADEI := columns["ADEI"]
	if !hasRank {
		c.log.Warnw("no Rank column, overall ranks default to 0")
	}
	if !hasADEI {
		c.log.Warnw("no ADEI column, overall scores default to 0")
	}

	result := &Result{RowsRead: len(rows) - 1}

	// Keep the most recent year's row per country, preserving first-seen
	// order for the rank computation.
	var kept []workRow
	keptIndex := make(map[string]int)
	for _, row := range rows[1:] {
		name := strings.TrimSpace(cell(row, countryIdx))
		if name == "" {
			result.Dropped++
			continue
		}
		year := 0.0
		if hasYear {
			year = safeFloat(cell(row, yearIdx))
		}
		if i, ok := keptIndex[name]; ok {
			result.Dropped++
			if year > kept[i].year {
				kept[i] = workRow{name: name, year: year, row: row}
			}
			continue
		}
		keptIndex[name] = len(kept)
		kept = append(kept, workRow{name: name, year: year, row: row})
	}
	if len(kept) == 0 {
		return nil, ErrNoRows
	}

	// Pillar ranks: descending competition ranking over each total column,
	// ties share the minimum rank.
	pillarRanks := make(map[string][]int, len(c.config.Structure.Pillars))
	for _, pillar := range c.config.Structure.Pillars {
		idx := columnIndex(columns, pillar.TotalCol)
		values := make([]float64, len(kept))
		for i, w := range kept {
			values[i] = safeFloat(cell(w.row, idx))
		}
		pillarRanks[pillar.TotalCol] = competitionRanks(values)
	}

	for i, w := range kept {
		record := adei.CountryData{
			CountryName: w.name,
		}
		if hasADEI {
			record.OverallADEIScore = int(math.Round(safeFloat(cell(w.row, adeiIdx))))
		}
		if hasRank {
			record.OverallADEIRank = int(math.Round(safeFloat(cell(w.row, rankIdx))))
		}

		for _, pillar := range c.config.Structure.Pillars {
			idx := columnIndex(columns, pillar.TotalCol)
			total := safeFloat(cell(w.row, idx))

			record.DimensionSummary = append(record.DimensionSummary, adei.DimensionPillarSummary{
				Dimension: pillar.Dimension,
				Pillar:    pillar.Short,
				Value:     int(math.Round(total)),
				Rank:      pillarRanks[pillar.TotalCol][i],
			})

			detail := adei.PillarData{
				PillarName:       pillar.Name,
				TotalPillarScore: round2(total),
			}
			for _, sub := range pillar.SubPillars {
				detail.SubPillars = append(detail.SubPillars, adei.SubPillar{
					Name:  sub.Name,
					Score: round2(safeFloat(cell(w.row, columnIndex(columns, sub.Col)))),
				})
			}
			record.DetailedPillars = append(record.DetailedPillars, detail)
		}

		result.Records = append(result.Records, record)
	}

	adei.SortByRank(result.Records)
	return result, nil
}

// headerIndex maps normalised header names to column positions. The first
// occurrence wins when a header repeats.
func headerIndex(headers []string) map[string]int {
	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		h = normalizeHeader(h)
		if h == "" {
			continue
		}
		if _, ok := columns[h]; !ok {
			columns[h] = i
		}
	}
	return columns
}

// columnIndex returns the position for name, -1 when the column is absent.
// Absent columns read as zero scores.
func columnIndex(columns map[string]int, name string) int {
	if i, ok := columns[name]; ok {
		return i
	}
	return -1
}

// normalizeHeader trims a header and collapses float renderings of integer
// column codes, "2.0" -> "2".
func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	f, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return h
	}
	if f == math.Trunc(f) {
		return strconv.Itoa(int(f))
	}
	return h
}

// cell returns the value at idx, "" when the row is short or idx is -1.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// safeFloat parses a cell as a float, reading blanks, non-numbers, NaN and
// infinities as 0.
func safeFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// round2 rounds to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// competitionRanks ranks values descending with ties sharing the minimum
// rank: scores 90, 80, 80, 70 rank 1, 2, 2, 4.
func competitionRanks(values []float64) []int {
	ranks := make([]int, len(values))
	for i, v := range values {
		rank := 1
		for _, other := range values {
			if other > v {
				rank++
			}
		}
		ranks[i] = rank
	}
	return ranks
}
