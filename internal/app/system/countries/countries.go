// Package countries resolves country codes and validates city/town pairs.
//
// The production service this replaces was an external lookup; here it is an
// embedded dataset behind a small interface so the users store can take a
// fake in tests.
package countries

import "strings"

// Country is a canonical country record.
type Country struct {
	Alpha2 string
	Name   string
}

// Resolver is what the users store consumes.
type Resolver interface {
	// Resolve accepts an alpha-2 code or a free-text name and returns the
	// canonical record.
	Resolve(code string) (Country, bool)
	// ValidateCityTown reports whether the city/town pair is known for the
	// country identified by its alpha-2 code.
	ValidateCityTown(alpha2, city, town string) bool
}

// Service resolves against the embedded dataset.
type Service struct{}

// New returns the dataset-backed resolver.
func New() *Service {
	return &Service{}
}

func (s *Service) Resolve(code string) (Country, bool) {
	key := strings.ToLower(strings.TrimSpace(code))
	if key == "" {
		return Country{}, false
	}
	if c, ok := byAlpha2[strings.ToUpper(key)]; ok {
		return c, true
	}
	if c, ok := byName[key]; ok {
		return c, true
	}
	return Country{}, false
}

func (s *Service) ValidateCityTown(alpha2, city, town string) bool {
	cities, ok := citiesByCountry[strings.ToUpper(strings.TrimSpace(alpha2))]
	if !ok {
		return false
	}
	towns, ok := cities[foldKey(city)]
	if !ok {
		return false
	}
	if len(towns) == 0 {
		// City known, towns not enumerated: accept any non-empty town.
		return strings.TrimSpace(town) != ""
	}
	want := foldKey(town)
	for _, t := range towns {
		if foldKey(t) == want {
			return true
		}
	}
	return false
}

// foldKey lowercases with the Turkish dotted/dotless I collapsed to a plain
// "i", since strings.ToLower maps "İ" to "i" plus a combining dot which
// breaks map lookups. "Istanbul", "İstanbul" and "istanbul" all fold equal.
func foldKey(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch r {
		case 'İ', 'ı':
			b.WriteRune('i')
		default:
			b.WriteRune(r)
		}
	}
	return strings.ToLower(b.String())
}
