package domain

import (
	"fmt"
	"strings"
)

// ============================================================
// Budget documents (APBN / APBD)
// ============================================================

// BudgetType distinguishes the national budget from regional budgets.
type BudgetType string

const (
	BudgetTypeAPBN BudgetType = "APBN"
	BudgetTypeAPBD BudgetType = "APBD"
)

// Level is the top-level directory a document lives under.
type Level string

const (
	LevelNational Level = "national"
	LevelRegional Level = "regional"
)

// Valid reports whether l is a known document level.
func (l Level) Valid() bool {
	return l == LevelNational || l == LevelRegional
}

// RegionKind is the sub-directory of a regional document.
type RegionKind string

const (
	RegionProvinces RegionKind = "provinces"
	RegionCities    RegionKind = "cities"
)

// Valid reports whether k is a known region kind.
func (k RegionKind) Valid() bool {
	return k == RegionProvinces || k == RegionCities
}

// BudgetMetadata describes where a document comes from.
type BudgetMetadata struct {
	Year        int        `json:"year"`
	Type        BudgetType `json:"type"`
	Region      string     `json:"region"` // "National" or province/city name
	LastUpdated string     `json:"lastUpdated"`
	Source      string     `json:"source"`
	Currency    string     `json:"currency"`
	Population  *int64     `json:"population,omitempty"`
	Level       string     `json:"level,omitempty"` // province, city, regency
}

// RevenueSources splits revenue by origin.
type RevenueSources struct {
	Tax    int64  `json:"tax"`
	NonTax int64  `json:"non_tax"`
	Grants *int64 `json:"grants,omitempty"`
	Other  *int64 `json:"other,omitempty"`
}

// BudgetRevenue is the income side of a budget.
type BudgetRevenue struct {
	Total     int64          `json:"total"`
	Sources   RevenueSources `json:"sources"`
	Breakdown Categories     `json:"breakdown,omitempty"`
}

// ExpenditureBreakdown splits spending by economic nature.
type ExpenditureBreakdown struct {
	Operational int64  `json:"operational"`
	Capital     int64  `json:"capital"`
	Transfer    int64  `json:"transfer"`
	Other       *int64 `json:"other,omitempty"`
}

// BudgetExpenditure is the spending side of a budget.
// Total is expected to roughly equal the sum of Categories; this is not enforced.
type BudgetExpenditure struct {
	Total      int64                 `json:"total"`
	Categories Categories            `json:"categories"`
	Breakdown  *ExpenditureBreakdown `json:"breakdown,omitempty"`
}

// Financing covers the deficit.
type Financing struct {
	Total    int64 `json:"total"`
	Domestic int64 `json:"domestic"`
	Foreign  int64 `json:"foreign"`
}

// BudgetDocument is one APBN or APBD document as published in the data directory.
type BudgetDocument struct {
	Metadata    BudgetMetadata    `json:"metadata"`
	Revenue     BudgetRevenue     `json:"revenue"`
	Expenditure BudgetExpenditure `json:"expenditure"`
	Deficit     *int64            `json:"deficit,omitempty"`
	Surplus     *int64            `json:"surplus,omitempty"`
	Financing   *Financing        `json:"financing,omitempty"`
}

// CacheKey builds the composite key used by document caches.
func CacheKey(level Level, identifier string) string {
	return string(level) + "/" + identifier
}

// NationalIdentifier is the identifier of the APBN document of a year.
func NationalIdentifier(year int) string {
	return fmt.Sprintf("apbn-%d", year)
}

// RealizationIdentifier is the identifier of the realization report of a year.
func RealizationIdentifier(year int) string {
	return fmt.Sprintf("realisasi-%d", year)
}

// RegionalIdentifier is the identifier of a province or city APBD.
func RegionalIdentifier(kind RegionKind, region string) string {
	return string(kind) + "/" + region
}

// ValidateIdentifier rejects identifiers that could escape the data directory.
// Segments are separated by "/" and may only contain [a-z0-9-].
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return &ErrValidation{Field: "identifier", Message: "required"}
	}
	for _, seg := range strings.Split(identifier, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return &ErrValidation{Field: "identifier", Message: fmt.Sprintf("invalid segment %q", seg)}
		}
		for _, r := range seg {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
				return &ErrValidation{Field: "identifier", Message: fmt.Sprintf("invalid character %q", r)}
			}
		}
	}
	return nil
}

// Region is an entry of the region picker.
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}
