// Package pdfprocessor turns the annual ADEI report PDF into the JSON country
// dataset.
//
// sections.go implements the section splitter that isolates one country's
// chunks from the chunked report. The report presents countries in member
// order, so a country's section runs from its first mention to the first
// mention of the country that follows it.
package pdfprocessor

import "strings"

// IsolateCountryChunks returns the chunks belonging to one country's section.
// Matching is case-insensitive substring search: collection starts at the
// first chunk mentioning country and stops before the first chunk mentioning
// nextCountry. An empty nextCountry means country is last in the walk order
// and its section runs to the end of the document.
//
// When country's name is contained in nextCountry's ("Guinea" in
// "Guinea-Bissau"), the stop marker is ignored, since every mention of the
// longer name would otherwise cut the shorter name's section off at its own
// first cross-reference.
//
// The returned slice is empty when the country is never mentioned; callers
// treat that as "no content found" and skip the country.
func IsolateCountryChunks(chunks []string, country, nextCountry string) []string {
	countryLower := strings.ToLower(country)
	nextLower := strings.ToLower(nextCountry)
	stopUsable := nextCountry != "" && !strings.Contains(nextLower, countryLower)

	var section []string
	inSection := false
	for _, chunk := range chunks {
		chunkLower := strings.ToLower(chunk)
		if strings.Contains(chunkLower, countryLower) {
			inSection = true
		}
		if inSection && stopUsable && strings.Contains(chunkLower, nextLower) {
			break
		}
		if inSection {
			section = append(section, chunk)
		}
	}
	return section
}

// SectionContext joins a country's chunks into the single context block sent
// to the LLM, separated by blank lines like the page text they came from.
func SectionContext(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}
