package service

import (
	"context"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/infra/observability"
	"github.com/budgetforpublic/budget-api/internal/session"
)

// SessionBudget returns the document for a session's current selection.
// The session's own cache is consulted first; a load marks the session as
// loading and records its outcome, like the site's data hooks did.
func (b *Budget) SessionBudget(ctx context.Context, store *session.Store) (*domain.BudgetDocument, string, error) {
	ctx, span := tracer.Start(ctx, "Budget.SessionBudget")
	defer span.End()

	level, identifier, err := b.selectionTarget(store.State())
	if err != nil {
		return nil, "", err
	}
	key := domain.CacheKey(level, identifier)

	if doc, ok := store.GetBudgetData(key); ok {
		b.metrics.IncrCacheHit(observability.CacheSession)
		return doc, key, nil
	}
	b.metrics.IncrCacheMiss(observability.CacheSession)

	store.SetLoading(true)
	doc, err := b.Document(ctx, level, identifier)
	store.SetError(err)
	store.SetLoading(false)
	if err != nil {
		return nil, key, err
	}

	store.SetBudgetData(key, doc)
	return doc, key, nil
}

// selectionTarget maps a selection to the document it shows.
func (b *Budget) selectionTarget(st domain.SelectionState) (domain.Level, string, error) {
	if st.SelectedType == domain.KindRegional {
		if st.SelectedRegion == "" || st.SelectedRegion == session.DefaultRegion {
			return "", "", &domain.ErrValidation{Field: "selectedRegion", Message: "a regional selection needs a region"}
		}
		return domain.LevelRegional, domain.RegionalIdentifier(b.regionKind(st.SelectedRegion), st.SelectedRegion), nil
	}
	if err := validateYear(st.SelectedYear); err != nil {
		return "", "", err
	}
	return domain.LevelNational, domain.NationalIdentifier(st.SelectedYear), nil
}
