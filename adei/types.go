// Package adei defines the dataset model for the OIC Digital Economy Index:
// the per-country record produced by extraction and conversion, the fixed
// member-state list that drives both, and the display helpers shared by the
// database and web layers. These are the atoms every pipeline stage speaks;
// the stages themselves live in pdfprocessor, excelconv and db.
package adei

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NumPillars is the number of detailed pillars in a complete country record,
// "First Pillar: Institutions" through "Ninth Pillar: Sustainable Development
// Goals".
const NumPillars = 9

// ErrMissingCountryName is returned by Validate when a record carries no
// country name. Such a record cannot be keyed and is rejected everywhere.
var ErrMissingCountryName = errors.New("country record has no country_name")

// CountryData is one country's complete index record. It is the unit of the
// JSON dataset: extraction emits one per member state, conversion one per
// workbook row, and the loader maps one onto the countries/dimension_summaries/
// pillars/sub_pillars tables.
type CountryData struct {
	// CountryName is the report's spelling of the country name
	// (e.g. "Iran, Islamic Rep."), also the unique key in the database.
	CountryName string `json:"country_name"`

	// OverallADEIScore is the country's overall index score, 0-100.
	OverallADEIScore int `json:"overall_adei_score"`

	// OverallADEIRank is the country's rank among the member states.
	OverallADEIRank int `json:"overall_adei_rank"`

	// DimensionSummary is the summary table of dimensions and pillars
	// with integer values and ranks.
	DimensionSummary []DimensionPillarSummary `json:"dimension_summary"`

	// DetailedPillars holds the nine pillars with their sub-pillar scores.
	DetailedPillars []PillarData `json:"detailed_pillars"`
}

// DimensionPillarSummary is one row of a country's dimension/pillar summary
// table: the broad dimension (e.g. "Digital Foundation"), the pillar within
// it, and the pillar's integer score and rank.
type DimensionPillarSummary struct {
	Dimension string `json:"dimension"`
	Pillar    string `json:"pillar"`
	Value     int    `json:"value"`
	Rank      int    `json:"rank"`
}

// PillarData is the detailed record for one of the nine pillars. PillarName
// carries the report's ordinal prefix ("Fourth Pillar: E-Government"); use
// DisplayPillarName to strip it for presentation.
type PillarData struct {
	PillarName       string      `json:"pillar_name"`
	TotalPillarScore float64     `json:"total_pillar_score"`
	SubPillars       []SubPillar `json:"sub_pillars"`
}

// SubPillar is a single indicator within a pillar.
type SubPillar struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Validate checks the structural integrity of a country record: the country
// name must be present, and every pillar, sub-pillar and summary row must be
// named. Empty DimensionSummary and DetailedPillars slices pass; a record
// with no children loads as a bare countries row.
//
// The extraction pipeline validates each LLM reply with this before accepting
// it, and the loader validates each record before writing it.
func (c *CountryData) Validate() error {
	if strings.TrimSpace(c.CountryName) == "" {
		return ErrMissingCountryName
	}
	for i, row := range c.DimensionSummary {
		if strings.TrimSpace(row.Pillar) == "" {
			return fmt.Errorf("%s: dimension_summary[%d] has no pillar name", c.CountryName, i)
		}
	}
	for i, pillar := range c.DetailedPillars {
		if strings.TrimSpace(pillar.PillarName) == "" {
			return fmt.Errorf("%s: detailed_pillars[%d] has no pillar_name", c.CountryName, i)
		}
		for j, sub := range pillar.SubPillars {
			if strings.TrimSpace(sub.Name) == "" {
				return fmt.Errorf("%s: %s: sub_pillars[%d] has no name", c.CountryName, pillar.PillarName, j)
			}
		}
	}
	return nil
}

// Pillar returns the detailed pillar whose stored name matches name, trying
// an exact match first and then the prefix-stripped display form. The second
// return is false when the record has no such pillar.
func (c *CountryData) Pillar(name string) (*PillarData, bool) {
	for i := range c.DetailedPillars {
		if c.DetailedPillars[i].PillarName == name {
			return &c.DetailedPillars[i], true
		}
	}
	for i := range c.DetailedPillars {
		if DisplayPillarName(c.DetailedPillars[i].PillarName) == name {
			return &c.DetailedPillars[i], true
		}
	}
	return nil, false
}

// SortByRank orders records by overall rank ascending, breaking ties by
// country name so output is deterministic. The converter sorts its dataset
// this way before writing.
func SortByRank(records []CountryData) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].OverallADEIRank != records[j].OverallADEIRank {
			return records[i].OverallADEIRank < records[j].OverallADEIRank
		}
		return records[i].CountryName < records[j].CountryName
	})
}
