package domain

// ============================================================
// Chart records
// ============================================================

// CategoryRecord is one chart-ready category, derived on every request.
type CategoryRecord struct {
	Key        string  `json:"key"`
	Label      string  `json:"label"`
	Amount     int64   `json:"amount"`
	Percentage float64 `json:"percentage"`
	ColorIndex int     `json:"colorIndex"`
	Color      string  `json:"color"`
}

// ChartPoint is the {label, value, color} record charting components consume.
type ChartPoint struct {
	Label      string   `json:"label"`
	Value      int64    `json:"value"`
	Color      string   `json:"color"`
	Percentage *float64 `json:"percentage,omitempty"`
	Formatted  string   `json:"formatted,omitempty"`
}

// ChartView is returned by the chart endpoints.
type ChartView struct {
	Type    ChartType        `json:"type"`
	Locale  string           `json:"locale"`
	Records []CategoryRecord `json:"records"`
	Points  []ChartPoint     `json:"points"`
}

// ============================================================
// Overview
// ============================================================

// Stat is one headline figure.
type Stat struct {
	Title       string `json:"title"`
	Amount      int64  `json:"amount"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// TopCategory is a ranked category of the overview.
type TopCategory struct {
	Rank       int     `json:"rank"`
	Key        string  `json:"key"`
	Category   string  `json:"category"`
	Amount     int64   `json:"amount"`
	Value      string  `json:"value"`
	Percentage float64 `json:"percentage"`
	Share      string  `json:"share"`
}

// OverviewMetadata is the formatted metadata block.
type OverviewMetadata struct {
	Year        int    `json:"year"`
	Type        string `json:"type"`
	Region      string `json:"region"`
	Source      string `json:"source"`
	LastUpdated string `json:"lastUpdated"`
	Population  string `json:"population,omitempty"`
}

// BudgetOverview summarises a document for the landing pages.
type BudgetOverview struct {
	Locale        string           `json:"locale"`
	Revenue       Stat             `json:"revenue"`
	Expenditure   Stat             `json:"expenditure"`
	Balance       Stat             `json:"balance"`
	IsDeficit     bool             `json:"isDeficit"`
	BalanceShare  float64          `json:"balanceShare"`
	TopCategories []TopCategory    `json:"topCategories"`
	Metadata      OverviewMetadata `json:"metadata"`
}

// ============================================================
// Trends & comparisons
// ============================================================

// TrendGrowth holds year-over-year growth percentages.
type TrendGrowth struct {
	Revenue     float64 `json:"revenue"`
	Expenditure float64 `json:"expenditure"`
	Deficit     float64 `json:"deficit"`
}

// BudgetTrend is one year of the national trend.
type BudgetTrend struct {
	Year             int         `json:"year"`
	TotalRevenue     int64       `json:"totalRevenue"`
	TotalExpenditure int64       `json:"totalExpenditure"`
	Deficit          int64       `json:"deficit"`
	Growth           TrendGrowth `json:"growth"`
	Formatted        TrendLabels `json:"formatted"`
}

// TrendLabels are the formatted strings of a trend row.
type TrendLabels struct {
	Revenue           string `json:"revenue"`
	Expenditure       string `json:"expenditure"`
	Deficit           string `json:"deficit"`
	RevenueGrowth     string `json:"revenueGrowth"`
	ExpenditureGrowth string `json:"expenditureGrowth"`
	DeficitGrowth     string `json:"deficitGrowth"`
}

// TrendReport is returned by GET /v1/trends.
type TrendReport struct {
	From    int           `json:"from"`
	To      int           `json:"to"`
	Trends  []BudgetTrend `json:"trends"`
	Missing []int         `json:"missing,omitempty"`
}

// BudgetComparison compares one region with the others.
type BudgetComparison struct {
	Region                string     `json:"region"`
	Year                  int        `json:"year"`
	TotalBudget           int64      `json:"totalBudget"`
	PerCapita             float64    `json:"perCapita"`
	RevenueRatio          float64    `json:"revenueRatio"`
	ExpenditureByCategory Categories `json:"expenditureByCategory"`
	Formatted             string     `json:"formatted"`
}

// ============================================================
// Search
// ============================================================

// BudgetSearch is a category-level search request.
type BudgetSearch struct {
	Query     string       `json:"query"`
	Filters   BudgetFilter `json:"filters"`
	SortBy    string       `json:"sortBy"`    // amount, name
	SortOrder string       `json:"sortOrder"` // asc, desc
	Page      int          `json:"page"`
	Limit     int          `json:"limit"`
	Locale    string       `json:"locale"`
}

// BudgetItem is one search hit.
type BudgetItem struct {
	ID       string     `json:"id"`
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Amount   int64      `json:"amount"`
	Value    string     `json:"value"`
	Year     int        `json:"year"`
	Region   string     `json:"region"`
	Type     BudgetType `json:"type"`
}

// SearchAggregations summarise all hits, not only the current page.
type SearchAggregations struct {
	TotalAmount       int64            `json:"totalAmount"`
	CategoryBreakdown map[string]int64 `json:"categoryBreakdown"`
	YearBreakdown     map[string]int64 `json:"yearBreakdown"`
}

// BudgetSearchResult is returned by GET /v1/search.
type BudgetSearchResult struct {
	Items        []BudgetItem       `json:"items"`
	Total        int                `json:"total"`
	Page         int                `json:"page"`
	HasMore      bool               `json:"hasMore"`
	Aggregations SearchAggregations `json:"aggregations"`
}

// ============================================================
// Metadata about the data itself
// ============================================================

// LocalizedText holds the Indonesian and English variants of a text.
type LocalizedText struct {
	ID string `json:"id"`
	EN string `json:"en"`
}

// DataSource is a publisher the data is collected from.
type DataSource struct {
	ID          string        `json:"id"`
	Name        LocalizedText `json:"name"`
	URL         string        `json:"url"`
	Type        string        `json:"type"`        // government, ministry, regional
	Reliability string        `json:"reliability"` // high, medium, low
	LastUpdated string        `json:"lastUpdated"`
	Coverage    []string      `json:"coverage"`
}

// MethodologyInfo explains how the data was processed.
type MethodologyInfo struct {
	DataCollection  LocalizedText `json:"dataCollection"`
	Processing      LocalizedText `json:"processing"`
	Validation      LocalizedText `json:"validation"`
	Limitations     LocalizedList `json:"limitations"`
	UpdateFrequency string        `json:"updateFrequency"`
}

// LocalizedList holds the Indonesian and English variants of a list.
type LocalizedList struct {
	ID []string `json:"id"`
	EN []string `json:"en"`
}

// SourceCatalog is the content of meta/sources.json.
type SourceCatalog struct {
	DataSources []DataSource     `json:"dataSources"`
	Methodology *MethodologyInfo `json:"methodology,omitempty"`
}

// FormatResult is returned by the formatting endpoints.
type FormatResult struct {
	Input     float64 `json:"input"`
	Value     float64 `json:"value"`
	Locale    string  `json:"locale,omitempty"`
	Formatted string  `json:"formatted"`
}
