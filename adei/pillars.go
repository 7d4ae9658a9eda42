package adei

import "regexp"

// pillarPrefix matches the report's ordinal prefix on stored pillar names,
// e.g. the "Fourth Pillar: " in "Fourth Pillar: E-Government".
var pillarPrefix = regexp.MustCompile(`^\w+\sPillar:\s`)

// DisplayPillarName strips the ordinal prefix from a stored pillar name for
// presentation. Names without the prefix pass through unchanged, so the
// helper is safe on summary-table short names too.
//
// Example:
//
//	adei.DisplayPillarName("First Pillar: Institutions") // "Institutions"
//	adei.DisplayPillarName("Institutions")               // "Institutions"
func DisplayPillarName(stored string) string {
	return pillarPrefix.ReplaceAllString(stored, "")
}
