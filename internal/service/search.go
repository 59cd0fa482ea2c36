package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/budgetforpublic/budget-api/internal/budget"
	"github.com/budgetforpublic/budget-api/internal/domain"
)

// Search paging limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

type searchDoc struct {
	region string
	doc    *domain.BudgetDocument
}

// Search finds expenditure categories across the loaded national and regional
// documents. Aggregations cover every match, not only the returned page.
func (b *Budget) Search(ctx context.Context, q domain.BudgetSearch) (*domain.BudgetSearchResult, error) {
	ctx, span := tracer.Start(ctx, "Budget.Search")
	defer span.End()

	if err := normalizeSearch(&q); err != nil {
		return nil, err
	}
	locale := b.Locale(q.Locale)
	cat := b.bundle.For(locale)

	docs, err := b.searchDocuments(ctx, q.Filters)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(q.Query))
	var items []domain.BudgetItem
	for _, sd := range docs {
		doc := sd.doc
		for i, c := range doc.Expenditure.Categories {
			label := budget.CategoryLabel(cat, c.Key)
			if query != "" && !strings.Contains(strings.ToLower(label), query) && !strings.Contains(c.Key, query) {
				continue
			}
			if len(q.Filters.Categories) > 0 && !slices.Contains(q.Filters.Categories, c.Key) {
				continue
			}
			if r := q.Filters.AmountRange; r != nil && (c.Amount < r.Min || (r.Max > 0 && c.Amount > r.Max)) {
				continue
			}
			year := doc.Metadata.Year
			items = append(items, domain.BudgetItem{
				ID:       budget.Slugify(fmt.Sprintf("%s %d %s", sd.region, year, c.Key)),
				Code:     fmt.Sprintf("%s-%d-%02d", doc.Metadata.Type, year, i+1),
				Name:     label,
				Category: c.Key,
				Amount:   c.Amount,
				Value:    budget.FormatBudgetAmount(float64(c.Amount), locale),
				Year:     year,
				Region:   sd.region,
				Type:     doc.Metadata.Type,
			})
		}
	}

	sortItems(items, q.SortBy, q.SortOrder)

	agg := domain.SearchAggregations{
		CategoryBreakdown: make(map[string]int64),
		YearBreakdown:     make(map[string]int64),
	}
	for _, it := range items {
		agg.TotalAmount += it.Amount
		agg.CategoryBreakdown[it.Category] += it.Amount
		agg.YearBreakdown[strconv.Itoa(it.Year)] += it.Amount
	}

	page, hasMore := paginate(items, q.Page, q.Limit)

	return &domain.BudgetSearchResult{
		Items:        page,
		Total:        len(items),
		Page:         q.Page,
		HasMore:      hasMore,
		Aggregations: agg,
	}, nil
}

// paginate returns the 1-based page of items. Pages past the end are empty.
func paginate(items []domain.BudgetItem, page, limit int) ([]domain.BudgetItem, bool) {
	if page-1 >= (len(items)+limit-1)/limit {
		return []domain.BudgetItem{}, false
	}
	start := (page - 1) * limit
	end := min(start+limit, len(items))
	return items[start:end], end < len(items)
}

// searchDocuments loads every document the filters can match. Documents
// that fail to load are skipped.
func (b *Budget) searchDocuments(ctx context.Context, f domain.BudgetFilter) ([]searchDoc, error) {
	years := f.Years
	if len(years) == 0 {
		years = b.AvailableYears()
	}
	wantNational := len(f.Type) == 0 || slices.Contains(f.Type, domain.BudgetTypeAPBN)
	wantRegional := slices.Contains(f.Type, domain.BudgetTypeAPBD) || len(f.Regions) > 0

	type job struct {
		region string
		load   func(context.Context) (*domain.BudgetDocument, error)
	}
	var jobs []job
	if wantNational {
		for _, y := range years {
			y := y
			jobs = append(jobs, job{region: "national", load: func(ctx context.Context) (*domain.BudgetDocument, error) {
				return b.National(ctx, y)
			}})
		}
	}
	if wantRegional {
		regions := f.Regions
		if len(regions) == 0 {
			for _, r := range b.opts.Regions {
				regions = append(regions, r.ID)
			}
		}
		for _, r := range regions {
			r := r
			jobs = append(jobs, job{region: r, load: func(ctx context.Context) (*domain.BudgetDocument, error) {
				return b.Regional(ctx, b.regionKind(r), r)
			}})
		}
	}

	out := make([]searchDoc, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if err := b.bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer b.bulkhead.Release()

			doc, err := j.load(gCtx)
			if err != nil {
				return nil
			}
			if j.region != "national" && !slices.Contains(years, doc.Metadata.Year) {
				return nil
			}
			out[i] = searchDoc{region: j.region, doc: doc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := out[:0]
	for _, sd := range out {
		if sd.doc != nil {
			loaded = append(loaded, sd)
		}
	}
	return loaded, nil
}

func normalizeSearch(q *domain.BudgetSearch) error {
	if q.Page <= 0 {
		q.Page = 1
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultSearchLimit
	case q.Limit > MaxSearchLimit:
		q.Limit = MaxSearchLimit
	}
	switch q.SortBy {
	case "":
		q.SortBy = "amount"
	case "amount", "name":
	default:
		return &domain.ErrValidation{Field: "sort", Message: "must be amount or name"}
	}
	switch q.SortOrder {
	case "":
		q.SortOrder = "desc"
		if q.SortBy == "name" {
			q.SortOrder = "asc"
		}
	case "asc", "desc":
	default:
		return &domain.ErrValidation{Field: "order", Message: "must be asc or desc"}
	}
	if r := q.Filters.AmountRange; r != nil && r.Max > 0 && r.Min > r.Max {
		return &domain.ErrValidation{Field: "amountRange", Message: "min must not exceed max"}
	}
	return nil
}

func sortItems(items []domain.BudgetItem, by, order string) {
	less := func(a, b domain.BudgetItem) bool {
		if by == "name" {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		return a.Amount < b.Amount
	}
	sort.SliceStable(items, func(i, j int) bool {
		if order == "desc" {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}
