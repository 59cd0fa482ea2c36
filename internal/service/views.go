package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/budgetforpublic/budget-api/internal/budget"
	"github.com/budgetforpublic/budget-api/internal/domain"
)

const (
	topCategoryCount = 5
	maxTrendSpan     = 50
)

// Overview summarises a document: headline totals, the balance and the five
// largest spending categories.
func (b *Budget) Overview(doc *domain.BudgetDocument, locale string) *domain.BudgetOverview {
	locale = b.Locale(locale)
	cat := b.bundle.For(locale)
	rev, exp := doc.Revenue.Total, doc.Expenditure.Total

	isDeficit := exp > rev
	balance := exp - rev
	if balance < 0 {
		balance = -balance
	}
	share := budget.CalculatePercentage(float64(balance), float64(rev))

	balanceTitle := cat.Text("budget", "surplus")
	if isDeficit {
		balanceTitle = cat.Text("budget", "deficit")
	}

	records := budget.AggregateCategories(doc.Expenditure, cat)
	top := budget.TopCategories(records, topCategoryCount)
	topCategories := make([]domain.TopCategory, 0, len(top))
	for i, r := range top {
		topCategories = append(topCategories, domain.TopCategory{
			Rank:       i + 1,
			Key:        r.Key,
			Category:   r.Label,
			Amount:     r.Amount,
			Value:      budget.FormatBudgetAmount(float64(r.Amount), locale),
			Percentage: r.Percentage,
			Share:      budget.FormatPercentage(r.Percentage),
		})
	}

	meta := domain.OverviewMetadata{
		Year:        doc.Metadata.Year,
		Type:        string(doc.Metadata.Type),
		Region:      doc.Metadata.Region,
		Source:      doc.Metadata.Source,
		LastUpdated: cat.FormatISODate(doc.Metadata.LastUpdated),
	}
	if doc.Metadata.Population != nil {
		meta.Population = budget.FormatNumber(float64(*doc.Metadata.Population), locale)
	}

	return &domain.BudgetOverview{
		Locale: locale,
		Revenue: domain.Stat{
			Title:       cat.Text("budget", "revenue"),
			Amount:      rev,
			Value:       budget.FormatBudgetAmount(float64(rev), locale),
			Description: cat.Text("budget", "revenueDescription"),
		},
		Expenditure: domain.Stat{
			Title:       cat.Text("budget", "expenditure"),
			Amount:      exp,
			Value:       budget.FormatBudgetAmount(float64(exp), locale),
			Description: cat.Text("budget", "expenditureDescription"),
		},
		Balance: domain.Stat{
			Title:       balanceTitle,
			Amount:      balance,
			Value:       budget.FormatBudgetAmount(float64(balance), locale),
			Description: budget.FormatPercentage(share) + " " + cat.Text("budget", "ofRevenue"),
		},
		IsDeficit:     isDeficit,
		BalanceShare:  share,
		TopCategories: topCategories,
		Metadata:      meta,
	}
}

// Chart returns the category records of a document shaped for chartType.
func (b *Budget) Chart(doc *domain.BudgetDocument, chartType domain.ChartType, locale string) (*domain.ChartView, error) {
	if chartType == "" {
		chartType = domain.ChartPie
	}
	if !chartType.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: fmt.Sprintf("unknown chart type %q", chartType)}
	}
	locale = b.Locale(locale)

	records := budget.AggregateCategories(doc.Expenditure, b.bundle.For(locale))
	return &domain.ChartView{
		Type:    chartType,
		Locale:  locale,
		Records: records,
		Points:  budget.ChartPoints(records, chartType, locale),
	}, nil
}

// Trends loads the national documents of [from, to] concurrently and
// computes year-over-year growth. Years that cannot be loaded are listed in
// Missing and growth is taken against the previous loaded year.
func (b *Budget) Trends(ctx context.Context, from, to int, locale string) (*domain.TrendReport, error) {
	ctx, span := tracer.Start(ctx, "Budget.Trends")
	defer span.End()

	if from == 0 {
		from = b.opts.FirstYear
	}
	if to == 0 {
		to = b.opts.LastYear
	}
	if err := validateYear(from); err != nil {
		return nil, err
	}
	if err := validateYear(to); err != nil {
		return nil, err
	}
	if from > to {
		return nil, &domain.ErrValidation{Field: "from", Message: "must not be after to"}
	}
	if to-from >= maxTrendSpan {
		return nil, &domain.ErrValidation{Field: "to", Message: fmt.Sprintf("at most %d years", maxTrendSpan)}
	}
	locale = b.Locale(locale)

	docs := make([]*domain.BudgetDocument, to-from+1)
	g, gCtx := errgroup.WithContext(ctx)
	for i := range docs {
		i := i
		year := from + i
		g.Go(func() error {
			if err := b.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer b.bulkhead.Release()

			doc, err := b.National(gCtx, year)
			if err != nil {
				b.logger.Warn("trend year unavailable", zap.Int("year", year), zap.Error(err))
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &domain.TrendReport{From: from, To: to, Trends: []domain.BudgetTrend{}}
	var prev *domain.BudgetTrend
	for i, doc := range docs {
		if doc == nil {
			report.Missing = append(report.Missing, from+i)
			continue
		}
		t := domain.BudgetTrend{
			Year:             from + i,
			TotalRevenue:     doc.Revenue.Total,
			TotalExpenditure: doc.Expenditure.Total,
			Deficit:          deficitOf(doc),
		}
		if prev != nil {
			t.Growth = domain.TrendGrowth{
				Revenue:     budget.CalculateGrowth(float64(t.TotalRevenue), float64(prev.TotalRevenue)),
				Expenditure: budget.CalculateGrowth(float64(t.TotalExpenditure), float64(prev.TotalExpenditure)),
				Deficit:     budget.CalculateGrowth(float64(t.Deficit), float64(prev.Deficit)),
			}
		}
		t.Formatted = domain.TrendLabels{
			Revenue:           budget.FormatBudgetAmount(float64(t.TotalRevenue), locale),
			Expenditure:       budget.FormatBudgetAmount(float64(t.TotalExpenditure), locale),
			Deficit:           budget.FormatBudgetAmount(float64(t.Deficit), locale),
			RevenueGrowth:     budget.FormatPercentage(t.Growth.Revenue),
			ExpenditureGrowth: budget.FormatPercentage(t.Growth.Expenditure),
			DeficitGrowth:     budget.FormatPercentage(t.Growth.Deficit),
		}
		report.Trends = append(report.Trends, t)
		prev = &report.Trends[len(report.Trends)-1]
	}

	if len(report.Trends) == 0 {
		return nil, &domain.ErrNotFound{Resource: "budget trends", ID: fmt.Sprintf("%d-%d", from, to)}
	}
	return report, nil
}

// Compare loads the APBD of each region and compares totals, spending per
// capita and how much of the spending is covered by revenue. A non-zero year
// must match every document.
func (b *Budget) Compare(ctx context.Context, kind domain.RegionKind, regions []string, year int, locale string) ([]domain.BudgetComparison, error) {
	ctx, span := tracer.Start(ctx, "Budget.Compare")
	defer span.End()

	if len(regions) == 0 {
		return nil, &domain.ErrValidation{Field: "regions", Message: "at least one region is required"}
	}
	locale = b.Locale(locale)

	out := make([]domain.BudgetComparison, len(regions))
	g, gCtx := errgroup.WithContext(ctx)
	for i, region := range regions {
		i, region := i, region
		g.Go(func() error {
			if err := b.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer b.bulkhead.Release()

			k := kind
			if k == "" {
				k = b.regionKind(region)
			}
			doc, err := b.Regional(gCtx, k, region)
			if err != nil {
				return err
			}
			if year != 0 && doc.Metadata.Year != year {
				return &domain.ErrNotFound{Resource: "budget data", ID: fmt.Sprintf("%s for %d", region, year)}
			}

			var perCapita float64
			if p := doc.Metadata.Population; p != nil && *p > 0 {
				perCapita = float64(doc.Expenditure.Total) / float64(*p)
			}
			out[i] = domain.BudgetComparison{
				Region:                region,
				Year:                  doc.Metadata.Year,
				TotalBudget:           doc.Expenditure.Total,
				PerCapita:             perCapita,
				RevenueRatio:          budget.CalculatePercentage(float64(doc.Revenue.Total), float64(doc.Expenditure.Total)),
				ExpenditureByCategory: doc.Expenditure.Categories,
				Formatted:             budget.FormatBudgetAmount(float64(doc.Expenditure.Total), locale),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalBudget > out[j].TotalBudget })
	return out, nil
}

// deficitOf prefers the published deficit and otherwise derives it. A
// surplus yields a negative deficit.
func deficitOf(doc *domain.BudgetDocument) int64 {
	if doc.Deficit != nil {
		return *doc.Deficit
	}
	if doc.Surplus != nil {
		return -*doc.Surplus
	}
	return doc.Expenditure.Total - doc.Revenue.Total
}
