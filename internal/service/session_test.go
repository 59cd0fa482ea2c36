package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/session"
)

func TestSessionBudget_LoadsThenHitsSessionCache(t *testing.T) {
	src := searchSource()
	svc, metrics := newService(t, src)
	store := session.NewStore(nil)

	var mu sync.Mutex
	var loading []bool
	store.Subscribe(func(_, next domain.SelectionState) {
		mu.Lock()
		defer mu.Unlock()
		loading = append(loading, next.IsLoading)
	})

	doc, key, err := svc.SessionBudget(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "national/apbn-2025", key)
	assert.Equal(t, 2025, doc.Metadata.Year)
	assert.Equal(t, []string{"national/apbn-2025"}, store.CachedKeys())
	assert.Equal(t, []bool{true, true, false}, loading)

	st := store.State()
	assert.False(t, st.IsLoading)
	assert.Nil(t, st.Error)

	_, _, err = svc.SessionBudget(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	snap := metrics.GetCacheSnapshot()
	assert.Equal(t, int64(1), snap.SessionHits)
	assert.Equal(t, int64(1), snap.SessionMisses)
}

func TestSessionBudget_RecordsError(t *testing.T) {
	svc, _ := newService(t, searchSource())
	store := session.NewStore(nil)
	store.SetYear(2021)

	_, _, err := svc.SessionBudget(context.Background(), store)

	var notFound *domain.ErrNotFound
	require.True(t, errors.As(err, &notFound))
	st := store.State()
	require.NotNil(t, st.Error)
	assert.Contains(t, *st.Error, "national/apbn-2021")
	assert.False(t, st.IsLoading)
	assert.Empty(t, store.CachedKeys())
}

func TestSessionBudget_Regional(t *testing.T) {
	svc, _ := newService(t, searchSource())
	store := session.NewStore(nil)
	store.SetType(domain.KindRegional)

	_, _, err := svc.SessionBudget(context.Background(), store)
	var validation *domain.ErrValidation
	assert.True(t, errors.As(err, &validation))

	store.SetRegion("banten")
	doc, key, err := svc.SessionBudget(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, "regional/provinces/banten", key)
	assert.Equal(t, "Banten", doc.Metadata.Region)
}
