package domain

import "fmt"

// ============================================================
// UI selection state
// ============================================================

// BudgetKind is the selected budget family.
type BudgetKind string

const (
	KindNational BudgetKind = "national"
	KindRegional BudgetKind = "regional"
)

// ChartType is a chart the frontend knows how to draw.
type ChartType string

const (
	ChartPie     ChartType = "pie"
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartTreemap ChartType = "treemap"
	ChartSankey  ChartType = "sankey"
	ChartScatter ChartType = "scatter"
)

// Valid reports whether c is a known chart type.
func (c ChartType) Valid() bool {
	switch c {
	case ChartPie, ChartBar, ChartLine, ChartTreemap, ChartSankey, ChartScatter:
		return true
	}
	return false
}

// AmountRange bounds amounts in a filter.
type AmountRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// BudgetFilter narrows lists and searches.
type BudgetFilter struct {
	Years       []int        `json:"years"`
	Regions     []string     `json:"regions"`
	Categories  []string     `json:"categories"`
	Ministries  []string     `json:"ministries"`
	AmountRange *AmountRange `json:"amountRange,omitempty"`
	Type        []BudgetType `json:"type"`
	Level       []string     `json:"level"`
}

// Clone returns a deep copy so snapshots never share slices with live state.
func (f BudgetFilter) Clone() BudgetFilter {
	out := BudgetFilter{
		Years:      append([]int{}, f.Years...),
		Regions:    append([]string{}, f.Regions...),
		Categories: append([]string{}, f.Categories...),
		Ministries: append([]string{}, f.Ministries...),
		Type:       append([]BudgetType{}, f.Type...),
		Level:      append([]string{}, f.Level...),
	}
	if f.AmountRange != nil {
		r := *f.AmountRange
		out.AmountRange = &r
	}
	return out
}

// Filter keys accepted by UpdateFilter.
const (
	FilterYears       = "years"
	FilterRegions     = "regions"
	FilterCategories  = "categories"
	FilterMinistries  = "ministries"
	FilterAmountRange = "amountRange"
	FilterType        = "type"
	FilterLevel       = "level"
)

// SelectionState is everything a visitor has picked in the UI.
type SelectionState struct {
	SelectedYear   int          `json:"selectedYear"`
	SelectedRegion string       `json:"selectedRegion"`
	SelectedType   BudgetKind   `json:"selectedType"`
	ChartType      ChartType    `json:"chartType"`
	ChartHeight    int          `json:"chartHeight"`
	ShowTooltip    bool         `json:"showTooltip"`
	Filters        BudgetFilter `json:"filters"`
	IsLoading      bool         `json:"isLoading"`
	Error          *string      `json:"error"`
}

// Clone returns a deep copy of the state.
func (s SelectionState) Clone() SelectionState {
	out := s
	out.Filters = s.Filters.Clone()
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}

// SelectionPatch carries the fields of a partial selection update.
type SelectionPatch struct {
	Year        *int        `json:"year,omitempty"`
	Region      *string     `json:"region,omitempty"`
	Type        *BudgetKind `json:"type,omitempty"`
	ChartType   *ChartType  `json:"chartType,omitempty"`
	ChartHeight *int        `json:"chartHeight,omitempty"`
	ShowTooltip *bool       `json:"showTooltip,omitempty"`
}

// Validate rejects values the UI could never select.
func (p SelectionPatch) Validate() error {
	if p.Year != nil && (*p.Year < 1945 || *p.Year > 9999) {
		return &ErrValidation{Field: "year", Message: fmt.Sprintf("invalid year %d", *p.Year)}
	}
	if p.Region != nil && *p.Region == "" {
		return &ErrValidation{Field: "region", Message: "must not be empty"}
	}
	if p.Type != nil && *p.Type != KindNational && *p.Type != KindRegional {
		return &ErrValidation{Field: "type", Message: "must be national or regional"}
	}
	if p.ChartType != nil && !p.ChartType.Valid() {
		return &ErrValidation{Field: "chartType", Message: fmt.Sprintf("unknown chart type %q", *p.ChartType)}
	}
	if p.ChartHeight != nil && *p.ChartHeight <= 0 {
		return &ErrValidation{Field: "chartHeight", Message: "must be positive"}
	}
	return nil
}

// SessionView is returned by the session endpoints.
type SessionView struct {
	ID        string         `json:"id"`
	Selection SelectionState `json:"selection"`
	Cached    []string       `json:"cached"`
}

// SessionBudget is the document shown for a session's selection.
type SessionBudget struct {
	Key      string          `json:"key"`
	Document *BudgetDocument `json:"document"`
}
