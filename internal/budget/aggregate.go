package budget

import (
	"cmp"
	"slices"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/port"
)

// Palette is the fixed chart palette; categories take colours by position.
var Palette = [10]string{
	"#dc2626", // red (primary)
	"#2563eb", // blue
	"#059669", // green
	"#ea580c", // orange
	"#7c3aed", // purple
	"#0891b2", // cyan
	"#ca8a04", // yellow
	"#be185d", // pink
	"#0d9488", // teal
	"#65a30d", // lime
}

// CategoryLabel resolves the display label of a category key, falling back
// to the raw key when the translator has nothing.
func CategoryLabel(tr port.Translator, key string) string {
	if tr != nil {
		if label, ok := tr.Resolve("budget", "categories."+key); ok && label != "" {
			return label
		}
	}
	return key
}

// AggregateCategories turns the expenditure categories into chart records in
// source order. Percentages are relative to exp.Total, not to the category sum.
func AggregateCategories(exp domain.BudgetExpenditure, tr port.Translator) []domain.CategoryRecord {
	records := make([]domain.CategoryRecord, 0, len(exp.Categories))
	for i, c := range exp.Categories {
		idx := i % len(Palette)
		records = append(records, domain.CategoryRecord{
			Key:        c.Key,
			Label:      CategoryLabel(tr, c.Key),
			Amount:     c.Amount,
			Percentage: CalculatePercentage(float64(c.Amount), float64(exp.Total)),
			ColorIndex: idx,
			Color:      Palette[idx],
		})
	}
	return records
}

// TopCategories returns the n largest records, largest first. Ties keep their
// original order. n <= 0 returns every record sorted. The input is not modified.
func TopCategories(records []domain.CategoryRecord, n int) []domain.CategoryRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b domain.CategoryRecord) int {
		return cmp.Compare(b.Amount, a.Amount)
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// ChartPoints maps records to the shape of the given chart. Only pie and bar
// charts have a transform; other types yield no points.
func ChartPoints(records []domain.CategoryRecord, chart domain.ChartType, locale string) []domain.ChartPoint {
	points := make([]domain.ChartPoint, 0, len(records))
	switch chart {
	case domain.ChartPie:
		for _, r := range records {
			pct := r.Percentage
			points = append(points, domain.ChartPoint{
				Label:      r.Label,
				Value:      r.Amount,
				Color:      r.Color,
				Percentage: &pct,
				Formatted:  FormatBudgetAmount(float64(r.Amount), locale),
			})
		}
	case domain.ChartBar:
		for _, r := range records {
			points = append(points, domain.ChartPoint{
				Label:     r.Label,
				Value:     r.Amount,
				Color:     r.Color,
				Formatted: FormatBudgetAmount(float64(r.Amount), locale),
			})
		}
	}
	return points
}
