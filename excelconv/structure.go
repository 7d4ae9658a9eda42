// Package excelconv converts the official ADEI scores workbook into the JSON
// country dataset, producing the same records as the report extraction
// pipeline.
//
// structure.go defines the workbook column layout: which column holds each
// pillar total and which coded columns hold the sub-pillar scores. The
// builtin table matches the published workbook; future report editions can
// override it with a YAML file.
package excelconv

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmptyStructure is returned when a structure holds no pillars.
var ErrEmptyStructure = errors.New("structure defines no pillars")

// SubPillarSpec maps one workbook column code to a sub-pillar display name.
type SubPillarSpec struct {
	// Col is the workbook column header, e.g. "1.1.1".
	Col string `yaml:"col"`

	// Name is the sub-pillar display name.
	Name string `yaml:"name"`
}

// PillarSpec describes one pillar's columns and labels.
type PillarSpec struct {
	// Name is the stored pillar name, e.g. "First Pillar: Institutions".
	Name string `yaml:"name"`

	// Dimension is the dimension label for the summary rows. Some labels
	// contain embedded newlines, matching the published report layout.
	Dimension string `yaml:"dimension"`

	// Short is the pillar label for the summary rows.
	Short string `yaml:"short"`

	// TotalCol is the workbook column holding the pillar total, "1".."9".
	TotalCol string `yaml:"total_col"`

	// SubPillars lists the sub-pillar columns in workbook order.
	SubPillars []SubPillarSpec `yaml:"sub_pillars"`
}

// Structure is the full workbook layout: pillars in report order.
type Structure struct {
	Pillars []PillarSpec `yaml:"pillars"`
}

// Validate checks that the structure is usable: at least one pillar, every
// pillar named with a total column, and no total column claimed twice.
func (s Structure) Validate() error {
	if len(s.Pillars) == 0 {
		return ErrEmptyStructure
	}
	seen := make(map[string]string, len(s.Pillars))
	for i, p := range s.Pillars {
		if p.Name == "" {
			return fmt.Errorf("pillars[%d] has no name", i)
		}
		if p.TotalCol == "" {
			return fmt.Errorf("pillar %q has no total_col", p.Name)
		}
		if other, ok := seen[p.TotalCol]; ok {
			return fmt.Errorf("pillars %q and %q both claim column %q", other, p.Name, p.TotalCol)
		}
		seen[p.TotalCol] = p.Name
		for j, sp := range p.SubPillars {
			if sp.Col == "" || sp.Name == "" {
				return fmt.Errorf("pillar %q sub_pillars[%d] needs both col and name", p.Name, j)
			}
		}
	}
	return nil
}

// LoadStructure reads a YAML structure override from path.
//
// Example file:
//
//	pillars:
//	  - name: "First Pillar: Institutions"
//	    dimension: Digital Foundation
//	    short: Institutions
//	    total_col: "1"
//	    sub_pillars:
//	      - col: "1.1.1"
//	        name: Political Environment
func LoadStructure(path string) (Structure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Structure{}, fmt.Errorf("reading structure file %s: %w", path, err)
	}
	var s Structure
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Structure{}, fmt.Errorf("parsing structure file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Structure{}, fmt.Errorf("structure file %s: %w", path, err)
	}
	return s, nil
}

// BuiltinStructure returns the column layout of the published ADEI workbook.
// Column order matches the workbook exactly.
func BuiltinStructure() Structure {
	return Structure{Pillars: []PillarSpec{
		{
			Name:      "First Pillar: Institutions",
			Dimension: "Digital Foundation",
			Short:     "Institutions",
			TotalCol:  "1",
			SubPillars: []SubPillarSpec{
				{Col: "1.1.1", Name: "Political Environment"},
				{Col: "1.1.2", Name: "Political Stability and Security"},
				{Col: "1.1.3", Name: "Government Effectiveness"},
				{Col: "1.1", Name: "Voice and Accountability"},
				{Col: "1.2.1", Name: "Regulatory Environment"},
				{Col: "1.2.2", Name: "Regulatory Quality"},
				{Col: "1.2.3", Name: "Rule of Law"},
				{Col: "1.2", Name: "Control of Corruption"},
				{Col: "1.3.1", Name: "Technology Governance"},
				{Col: "1.3.2", Name: "Secure Internet Servers"},
				{Col: "1.3.3", Name: "E-Security"},
				{Col: "1.3.4", Name: "Online Shopping"},
				{Col: "1.3.5", Name: "ICT Regulatory Environment"},
				{Col: "1.3.6", Name: "Regulation of Emerging Technologies"},
				{Col: "1.3.7", Name: "E-commerce Legislation"},
				{Col: "1.3", Name: "Protection of content privacy under the law"},
			},
		},
		{
			Name:      "Second Pillar: Infrastructure",
			Dimension: "Digital Foundation",
			Short:     "Infrastructure",
			TotalCol:  "2",
			SubPillars: []SubPillarSpec{
				{Col: "2.1", Name: "Access to ICT"},
				{Col: "2.2", Name: "Use of ICT"},
				{Col: "2.3.1", Name: "Technological Inclusion"},
				{Col: "2.3.2", Name: "E-Participation"},
				{Col: "2.3.3", Name: "Socioeconomic gap in the use of digital payments"},
				{Col: "2.3.4", Name: "Availability of local content online"},
				{Col: "2.3.5", Name: "Gender gap in internet use"},
				{Col: "2.3", Name: "Rural gap in the use of digital payments"},
				{Col: "2.4", Name: "Logistical Performance"},
			},
		},
		{
			Name:      "Third Pillar: Workforce",
			Dimension: "Digital Works",
			Short:     "Workforce",
			TotalCol:  "3",
			SubPillars: []SubPillarSpec{
				{Col: "3.1", Name: "Expenditure on education as a % of GDP"},
				{Col: "3.2", Name: "Knowledge-intensive employment %"},
				{Col: "3.3", Name: "ICT skills in the education system"},
			},
		},
		{
			Name:      "Fourth Pillar: E-Government",
			Dimension: "E-Government",
			Short:     "E-Government",
			TotalCol:  "4",
			SubPillars: []SubPillarSpec{
				{Col: "4.1", Name: "Government services online"},
				{Col: "4.2", Name: "Telecommunication Infrastructure"},
				{Col: "4.3", Name: "Human Capital Component"},
			},
		},
		{
			Name:      "Fifth Pillar: Innovation",
			Dimension: "Innovation",
			Short:     "Innovation",
			TotalCol:  "5",
			SubPillars: []SubPillarSpec{
				{Col: "5.1", Name: "Percentage of total R&D expenditure financed by the business sector"},
				{Col: "5.2", Name: "University-industry collaboration in R&D"},
				{Col: "5.3", Name: "Knowledge impact"},
				{Col: "5.4", Name: "Knowledge absorption"},
			},
		},
		{
			Name:      "Sixth Pillar: Future Technologies",
			Dimension: "Readiness in digital\nfor the citizen",
			Short:     "Future Technologies",
			TotalCol:  "6",
			SubPillars: []SubPillarSpec{
				{Col: "6.1", Name: "Adoption of emerging technologies"},
				{Col: "6.2", Name: "Investment in emerging technologies"},
				{Col: "6.3", Name: "Artificial Intelligence (AI) strategy"},
			},
		},
		{
			Name:      "Seventh Pillar: Market Development and Sophistication",
			Dimension: "Market Development and Sophistication",
			Short:     "Market Development\nand Sophistication",
			TotalCol:  "7",
			SubPillars: []SubPillarSpec{
				{Col: "7.1", Name: "Financing of startups and ease of access"},
				{Col: "7.2", Name: "Domestic credit to private sector, % of GDP"},
				{Col: "7.3", Name: "Diversification of local industry"},
			},
		},
		{
			Name:      "Eighth Pillar: Financial Market Development",
			Dimension: "Financial Market Development",
			Short:     "Financial Market\nDevelopment",
			TotalCol:  "8",
			SubPillars: []SubPillarSpec{
				{Col: "8.1.1", Name: "FinTech and Financial Inclusion"},
				{Col: "8.1.2", Name: "Percentage of population (age 15+) who own bank accounts"},
				{Col: "8.1.3", Name: "Percentage (age 15+) who own a debit or credit card"},
				{Col: "8.1", Name: "Percentage (age 15+) who have made or received a digital payment"},
				{Col: "8.2", Name: "Market capitalization as a % of GDP"},
			},
		},
		{
			Name:      "Ninth Pillar: Sustainable Development Goals",
			Dimension: "Sustainable Development",
			Short:     "Sustainable\nDevelopment",
			TotalCol:  "9",
			SubPillars: []SubPillarSpec{
				{Col: "9.1", Name: "Goal 1: No Poverty"},
				{Col: "9.2", Name: "Goal 2: Zero Hunger"},
				{Col: "9.3", Name: "Goal 3: Good Health and Well-being"},
				{Col: "9.4", Name: "Goal 4: Quality Education"},
				{Col: "9.5", Name: "Goal 8: Decent Work and Economic Growth"},
				{Col: "9.6", Name: "Goal 9: Industry, Innovation and Infrastructure"},
				{Col: "9.7", Name: "Goal 17: Partnerships for the Goals"},
			},
		},
	}}
}
