package domain

import (
	"strings"
	"time"
)

// KnownBrands lists canonical brand spellings. Listings whose brand matches one
// of these case-insensitively are rewritten to the canonical form so the brand
// facet does not split "toyota" and "Toyota" into two options.
var KnownBrands = []string{
	"Acura", "Audi", "BMW", "Cadillac", "Chevrolet", "Dodge", "Ford", "Genesis",
	"GMC", "Honda", "Hyundai", "Infiniti", "Jeep", "Kia", "Lexus", "Mazda",
	"Mercedes-Benz", "Mitsubishi", "Nissan", "Porsche", "Ram", "Subaru", "Tesla",
	"Toyota", "Volkswagen", "Volvo",
}

// brandAliases maps common shorthand to a canonical brand.
var brandAliases = map[string]string{
	"chevy":    "Chevrolet",
	"mercedes": "Mercedes-Benz",
	"benz":     "Mercedes-Benz",
	"vw":       "Volkswagen",
}

var canonicalBrands = func() map[string]string {
	m := make(map[string]string, len(KnownBrands)+len(brandAliases))
	for _, b := range KnownBrands {
		m[strings.ToLower(b)] = b
	}
	for alias, b := range brandAliases {
		m[alias] = b
	}
	return m
}()

// CanonicalBrand returns the canonical spelling of brand, or the trimmed input
// when the brand is not known.
func CanonicalBrand(brand string) string {
	brand = strings.TrimSpace(brand)
	if c, ok := canonicalBrands[strings.ToLower(brand)]; ok {
		return c
	}
	return brand
}

// MinModelYear is the earliest year we accept.
const MinModelYear = 1900

// MaxModelYear is the latest year we accept at now (current + 1 for next-year models).
func MaxModelYear(now time.Time) int {
	return now.Year() + 1
}
