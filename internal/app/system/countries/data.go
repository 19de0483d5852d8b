// internal/app/system/countries/data.go
package countries

// byAlpha2 keys are upper-case alpha-2 codes.
var byAlpha2 = map[string]Country{
	"TR": {Alpha2: "TR", Name: "Turkey"},
	"US": {Alpha2: "US", Name: "United States"},
	"GB": {Alpha2: "GB", Name: "United Kingdom"},
	"DE": {Alpha2: "DE", Name: "Germany"},
	"FR": {Alpha2: "FR", Name: "France"},
	"NL": {Alpha2: "NL", Name: "Netherlands"},
	"ES": {Alpha2: "ES", Name: "Spain"},
	"IT": {Alpha2: "IT", Name: "Italy"},
	"AZ": {Alpha2: "AZ", Name: "Azerbaijan"},
	"GR": {Alpha2: "GR", Name: "Greece"},
	"BG": {Alpha2: "BG", Name: "Bulgaria"},
	"GE": {Alpha2: "GE", Name: "Georgia"},
}

// byName keys are lower-case free-text names and common aliases.
var byName = func() map[string]Country {
	m := make(map[string]Country, len(byAlpha2)+4)
	for _, c := range byAlpha2 {
		m[foldKey(c.Name)] = c
	}
	m["türkiye"] = byAlpha2["TR"]
	m["turkiye"] = byAlpha2["TR"]
	m["usa"] = byAlpha2["US"]
	m["uk"] = byAlpha2["GB"]
	return m
}()

// citiesByCountry maps alpha-2 → folded city name → towns/districts.
// An empty town slice means towns are not enumerated for that city and any
// non-empty town is accepted.
var citiesByCountry = map[string]map[string][]string{
	"TR": {
		foldKey("İstanbul"): {"Kadıköy", "Beşiktaş", "Üsküdar", "Şişli", "Fatih", "Bakırköy"},
		foldKey("Ankara"):   {"Çankaya", "Keçiören", "Yenimahalle", "Mamak"},
		foldKey("İzmir"):    {"Konak", "Karşıyaka", "Bornova", "Buca"},
		foldKey("Bursa"):    {"Osmangazi", "Nilüfer", "Yıldırım"},
		foldKey("Antalya"):  {"Muratpaşa", "Kepez", "Konyaaltı"},
		foldKey("Adana"):    nil,
		foldKey("Konya"):    nil,
	},
	"US": {
		foldKey("New York"):    {"Manhattan", "Brooklyn", "Queens", "Bronx", "Staten Island"},
		foldKey("Los Angeles"): nil,
		foldKey("Chicago"):     nil,
	},
	"GB": {
		foldKey("London"):     {"Camden", "Hackney", "Islington", "Westminster"},
		foldKey("Manchester"): nil,
	},
	"DE": {
		foldKey("Berlin"):  {"Mitte", "Kreuzberg", "Neukölln", "Pankow"},
		foldKey("Hamburg"): nil,
		foldKey("München"): nil,
	},
}
