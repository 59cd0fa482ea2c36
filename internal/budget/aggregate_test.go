package budget_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetforpublic/budget-api/internal/budget"
	"github.com/budgetforpublic/budget-api/internal/domain"
)

type mapTranslator map[string]string

func (m mapTranslator) Resolve(namespace, key string) (string, bool) {
	v, ok := m[namespace+":"+key]
	return v, ok
}

func sampleExpenditure() domain.BudgetExpenditure {
	return domain.BudgetExpenditure{
		Total: 1000,
		Categories: domain.Categories{
			{Key: "pendidikan", Amount: 200},
			{Key: "kesehatan", Amount: 500},
			{Key: "pertahanan", Amount: 300},
		},
	}
}

func TestAggregateCategories_PreservesOrderAndColours(t *testing.T) {
	tr := mapTranslator{
		"budget:categories.pendidikan": "Pendidikan",
		"budget:categories.kesehatan":  "Kesehatan",
	}

	got := budget.AggregateCategories(sampleExpenditure(), tr)

	want := []domain.CategoryRecord{
		{Key: "pendidikan", Label: "Pendidikan", Amount: 200, Percentage: 20, ColorIndex: 0, Color: "#dc2626"},
		{Key: "kesehatan", Label: "Kesehatan", Amount: 500, Percentage: 50, ColorIndex: 1, Color: "#2563eb"},
		{Key: "pertahanan", Label: "pertahanan", Amount: 300, Percentage: 30, ColorIndex: 2, Color: "#059669"},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("AggregateCategories mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateCategories_PaletteWraps(t *testing.T) {
	var cats domain.Categories
	for i := 0; i < 12; i++ {
		cats = append(cats, domain.CategoryAmount{Key: string(rune('a' + i)), Amount: 1})
	}

	got := budget.AggregateCategories(domain.BudgetExpenditure{Total: 12, Categories: cats}, nil)

	require.Len(t, got, 12)
	assert.Equal(t, 0, got[10].ColorIndex)
	assert.Equal(t, budget.Palette[0], got[10].Color)
	assert.Equal(t, budget.Palette[1], got[11].Color)
}

func TestAggregateCategories_ZeroTotal(t *testing.T) {
	exp := sampleExpenditure()
	exp.Total = 0

	for _, r := range budget.AggregateCategories(exp, nil) {
		assert.Equal(t, 0.0, r.Percentage, r.Key)
	}
}

func TestAggregateCategories_Empty(t *testing.T) {
	got := budget.AggregateCategories(domain.BudgetExpenditure{Total: 100}, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCategoryLabel_EmptyTranslationFallsBack(t *testing.T) {
	tr := mapTranslator{"budget:categories.energi_subsidi": ""}
	assert.Equal(t, "energi_subsidi", budget.CategoryLabel(tr, "energi_subsidi"))
}

func TestTopCategories(t *testing.T) {
	records := budget.AggregateCategories(sampleExpenditure(), nil)

	top := budget.TopCategories(records, 2)

	require.Len(t, top, 2)
	assert.Equal(t, "kesehatan", top[0].Key)
	assert.Equal(t, "pertahanan", top[1].Key)
	// input untouched
	assert.Equal(t, "pendidikan", records[0].Key)
}

func TestTopCategories_StableOnTies(t *testing.T) {
	records := []domain.CategoryRecord{
		{Key: "a", Amount: 10},
		{Key: "b", Amount: 20},
		{Key: "c", Amount: 10},
		{Key: "d", Amount: 20},
	}

	top := budget.TopCategories(records, 0)

	keys := make([]string, len(top))
	for i, r := range top {
		keys[i] = r.Key
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, keys)
}

func TestTopCategories_NLargerThanInput(t *testing.T) {
	records := budget.AggregateCategories(sampleExpenditure(), nil)
	assert.Len(t, budget.TopCategories(records, 5), 3)
}

func TestChartPoints_Pie(t *testing.T) {
	records := budget.AggregateCategories(sampleExpenditure(), nil)

	points := budget.ChartPoints(records, domain.ChartPie, "id-ID")

	require.Len(t, points, 3)
	assert.Equal(t, "kesehatan", points[1].Label)
	assert.Equal(t, int64(500), points[1].Value)
	assert.Equal(t, "#2563eb", points[1].Color)
	require.NotNil(t, points[1].Percentage)
	assert.InDelta(t, 50.0, *points[1].Percentage, 1e-9)
	assert.Equal(t, "Rp500", points[1].Formatted)
}

func TestChartPoints_BarHasNoPercentage(t *testing.T) {
	records := budget.AggregateCategories(sampleExpenditure(), nil)

	points := budget.ChartPoints(records, domain.ChartBar, "id-ID")

	require.Len(t, points, 3)
	for _, p := range points {
		assert.Nil(t, p.Percentage)
	}
}

func TestChartPoints_UnsupportedTypeIsEmpty(t *testing.T) {
	records := budget.AggregateCategories(sampleExpenditure(), nil)

	for _, ct := range []domain.ChartType{domain.ChartLine, domain.ChartTreemap, domain.ChartSankey, domain.ChartScatter} {
		points := budget.ChartPoints(records, ct, "id-ID")
		assert.NotNil(t, points, ct)
		assert.Empty(t, points, ct)
	}
}

func TestAggregateCategories_Shares(t *testing.T) {
	exp := domain.BudgetExpenditure{
		Total: 800_000_000_000_000,
		Categories: domain.Categories{
			{Key: "pendidikan", Amount: 500_000_000_000_000},
			{Key: "kesehatan", Amount: 300_000_000_000_000},
		},
	}

	got := budget.AggregateCategories(exp, nil)

	require.Len(t, got, 2)
	assert.InDelta(t, 62.5, got[0].Percentage, 1e-9)
	assert.InDelta(t, 37.5, got[1].Percentage, 1e-9)
	assert.Equal(t, budget.Palette[0], got[0].Color)
	assert.Equal(t, budget.Palette[1], got[1].Color)
}
