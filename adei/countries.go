package adei

// Countries is the fixed list of the 57 OIC member states covered by the
// index, in the order the report presents them. Extraction walks this list in
// order, and the section splitter uses each country's successor to find where
// its section ends, so both the spellings and the ordering must match the
// report exactly.
var Countries = []string{
	"United Arab Emirates", "Saudi Arabia", "Malaysia", "Qatar", "Indonesia",
	"Turkey", "Kazakhstan", "Jordan", "Morocco", "Tunisia", "Oman",
	"Uzbekistan", "Bahrain", "Egypt", "Kuwait", "Albania", "Senegal",
	"Azerbaijan", "Algeria", "Iran, Islamic Rep.", "Bangladesh", "Brunei Darussalam",
	"Pakistan", "Nigeria", "Benin", "Uganda", "Cote d'Ivoire", "Lebanon",
	"Cameroon", "Tajikistan", "Mali", "Maldives", "Kyrgyz Republic", "Togo",
	"Suriname", "Mozambique", "Mauritania", "Burkina Faso", "Gabon", "Guyana",
	"Sierra Leone", "Iraq", "Guinea", "Gambia", "Niger", "Yemen",
	"Turkmenistan", "Chad", "Djibouti", "Comoros", "Guinea-Bissau",
	"Palestine", "Syrian Arab Republic", "Libya", "Sudan", "Afghanistan", "Somalia",
}

// iso3 maps report spellings to ISO 3166-1 alpha-3 codes for the choropleth
// map. Report names that differ from the ISO register ("Iran, Islamic Rep.",
// "Cote d'Ivoire", "Kyrgyz Republic", "Syrian Arab Republic") are mapped
// directly rather than normalised.
var iso3 = map[string]string{
	"United Arab Emirates":  "ARE",
	"Saudi Arabia":          "SAU",
	"Malaysia":              "MYS",
	"Qatar":                 "QAT",
	"Indonesia":             "IDN",
	"Turkey":                "TUR",
	"Kazakhstan":            "KAZ",
	"Jordan":                "JOR",
	"Morocco":               "MAR",
	"Tunisia":               "TUN",
	"Oman":                  "OMN",
	"Uzbekistan":            "UZB",
	"Bahrain":               "BHR",
	"Egypt":                 "EGY",
	"Kuwait":                "KWT",
	"Albania":               "ALB",
	"Senegal":               "SEN",
	"Azerbaijan":            "AZE",
	"Algeria":               "DZA",
	"Iran, Islamic Rep.":    "IRN",
	"Bangladesh":            "BGD",
	"Brunei Darussalam":     "BRN",
	"Pakistan":              "PAK",
	"Nigeria":               "NGA",
	"Benin":                 "BEN",
	"Uganda":                "UGA",
	"Cote d'Ivoire":         "CIV",
	"Lebanon":               "LBN",
	"Cameroon":              "CMR",
	"Tajikistan":            "TJK",
	"Mali":                  "MLI",
	"Maldives":              "MDV",
	"Kyrgyz Republic":       "KGZ",
	"Togo":                  "TGO",
	"Suriname":              "SUR",
	"Mozambique":            "MOZ",
	"Mauritania":            "MRT",
	"Burkina Faso":          "BFA",
	"Gabon":                 "GAB",
	"Guyana":                "GUY",
	"Sierra Leone":          "SLE",
	"Iraq":                  "IRQ",
	"Guinea":                "GIN",
	"Gambia":                "GMB",
	"Niger":                 "NER",
	"Yemen":                 "YEM",
	"Turkmenistan":          "TKM",
	"Chad":                  "TCD",
	"Djibouti":              "DJI",
	"Comoros":               "COM",
	"Guinea-Bissau":         "GNB",
	"Palestine":             "PSE",
	"Syrian Arab Republic":  "SYR",
	"Libya":                 "LBY",
	"Sudan":                 "SDN",
	"Afghanistan":           "AFG",
	"Somalia":               "SOM",
}

// CountryISO3 returns the ISO 3166-1 alpha-3 code for a report country name.
// The second return is false for names outside the member list; the map
// endpoint drops such rows rather than erroring.
//
// Example:
//
//	code, ok := adei.CountryISO3("Iran, Islamic Rep.")
//	// code == "IRN", ok == true
func CountryISO3(name string) (string, bool) {
	code, ok := iso3[name]
	return code, ok
}

// IsMember reports whether name is one of the covered member states, using
// the report's exact spelling.
func IsMember(name string) bool {
	_, ok := iso3[name]
	return ok
}
