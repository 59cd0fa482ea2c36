// Package session holds per-visitor selection state and the document cache
// that goes with it.
package session

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/infra/cache"
	"github.com/budgetforpublic/budget-api/internal/port"
)

// Initial selection values.
const (
	DefaultYear        = 2025
	DefaultRegion      = "national"
	DefaultChartHeight = 400
)

// InitialState returns the selection a new session starts with.
func InitialState() domain.SelectionState {
	return domain.SelectionState{
		SelectedYear:   DefaultYear,
		SelectedRegion: DefaultRegion,
		SelectedType:   domain.KindNational,
		ChartType:      domain.ChartPie,
		ChartHeight:    DefaultChartHeight,
		ShowTooltip:    true,
		Filters:        InitialFilters(),
	}
}

// InitialFilters returns the filters of a new session.
func InitialFilters() domain.BudgetFilter {
	return domain.BudgetFilter{
		Years:      []int{DefaultYear},
		Regions:    []string{},
		Categories: []string{},
		Ministries: []string{},
		Type:       []domain.BudgetType{domain.BudgetTypeAPBN},
		Level:      []string{},
	}
}

// Listener observes one transition. Listeners may read the store but must not
// mutate it; the next transition waits until every listener has returned.
type Listener func(prev, next domain.SelectionState)

type subscriber struct {
	id int
	fn Listener
}

// Store is one visitor's selection state. Every action is a single atomic
// transition; listeners see each transition exactly once, in order.
type Store struct {
	txMu sync.Mutex // serializes transitions and their notifications
	mu   sync.Mutex

	state     domain.SelectionState
	cache     port.Cache[*domain.BudgetDocument]
	listeners []subscriber
	nextID    int
}

// NewStore creates a store in its initial state. A nil docs cache gets an
// unbounded in-memory one.
func NewStore(docs port.Cache[*domain.BudgetDocument]) *Store {
	if docs == nil {
		docs = cache.New[*domain.BudgetDocument](0)
	}
	return &Store{
		state:     InitialState(),
		cache:     docs,
	}
}

// State returns a copy of the current selection.
func (s *Store) State() domain.SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers l and returns a function that removes it. Listeners
// run in the order they subscribed.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, subscriber{id: id, fn: l})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(sub subscriber) bool { return sub.id == id })
	}
}

// transition applies fn as one state change and notifies listeners.
func (s *Store) transition(fn func(st *domain.SelectionState)) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	prev := s.state.Clone()
	fn(&s.state)
	next := s.state.Clone()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.fn(prev, next)
	}
}

// SetYear selects a year and narrows the year filter to it.
func (s *Store) SetYear(year int) {
	s.transition(func(st *domain.SelectionState) { setYear(st, year) })
}

// SetRegion selects a region. "national" clears the region filter.
func (s *Store) SetRegion(region string) {
	s.transition(func(st *domain.SelectionState) { setRegion(st, region) })
}

// SetType selects national or regional budgets and the matching type filter.
func (s *Store) SetType(kind domain.BudgetKind) {
	s.transition(func(st *domain.SelectionState) { setType(st, kind) })
}

// SetChartType selects the chart type.
func (s *Store) SetChartType(ct domain.ChartType) {
	s.transition(func(st *domain.SelectionState) { st.ChartType = ct })
}

// SetChartHeight sets the chart height in pixels.
func (s *Store) SetChartHeight(height int) {
	s.transition(func(st *domain.SelectionState) { st.ChartHeight = height })
}

// SetShowTooltip toggles chart tooltips.
func (s *Store) SetShowTooltip(show bool) {
	s.transition(func(st *domain.SelectionState) { st.ShowTooltip = show })
}

// SetFilters replaces every filter.
func (s *Store) SetFilters(f domain.BudgetFilter) {
	f = f.Clone()
	s.transition(func(st *domain.SelectionState) { st.Filters = f })
}

// UpdateFilter replaces a single filter. value must have the filter's type:
// []int for years, *AmountRange for amountRange, []BudgetType for type and
// []string for the others.
func (s *Store) UpdateFilter(key string, value any) error {
	apply, err := filterSetter(key, value)
	if err != nil {
		return err
	}
	s.transition(func(st *domain.SelectionState) { apply(&st.Filters) })
	return nil
}

// SetLoading flags an in-flight load.
func (s *Store) SetLoading(loading bool) {
	s.transition(func(st *domain.SelectionState) { st.IsLoading = loading })
}

// SetError records the last load error; nil clears it.
func (s *Store) SetError(err error) {
	s.transition(func(st *domain.SelectionState) {
		if err == nil {
			st.Error = nil
			return
		}
		msg := err.Error()
		st.Error = &msg
	})
}

// Apply sets every non-nil field of p in one transition, deriving filters
// the same way the individual setters do.
func (s *Store) Apply(p domain.SelectionPatch) {
	s.transition(func(st *domain.SelectionState) {
		if p.Year != nil {
			setYear(st, *p.Year)
		}
		if p.Region != nil {
			setRegion(st, *p.Region)
		}
		if p.Type != nil {
			setType(st, *p.Type)
		}
		if p.ChartType != nil {
			st.ChartType = *p.ChartType
		}
		if p.ChartHeight != nil {
			st.ChartHeight = *p.ChartHeight
		}
		if p.ShowTooltip != nil {
			st.ShowTooltip = *p.ShowTooltip
		}
	})
}

// Reset restores the initial selection and empties the document cache in
// one transition.
func (s *Store) Reset() {
	s.transition(func(st *domain.SelectionState) {
		*st = InitialState()
		s.cache.Clear()
	})
}

// GetBudgetData returns a cached document.
func (s *Store) GetBudgetData(key string) (*domain.BudgetDocument, bool) {
	return s.cache.Get(key)
}

// SetBudgetData caches a document under key. Cache changes are not
// selection transitions and are not announced to listeners.
func (s *Store) SetBudgetData(key string, doc *domain.BudgetDocument) {
	s.cache.Set(key, doc)
}

// ClearBudgetData removes the given keys, or every entry when none is given.
func (s *Store) ClearBudgetData(keys ...string) {
	if len(keys) == 0 {
		s.cache.Clear()
		return
	}
	for _, k := range keys {
		s.cache.Delete(k)
	}
}

// CachedKeys lists the cached document keys.
func (s *Store) CachedKeys() []string {
	return s.cache.Keys()
}

func setYear(st *domain.SelectionState, year int) {
	st.SelectedYear = year
	st.Filters.Years = []int{year}
}

func setRegion(st *domain.SelectionState, region string) {
	st.SelectedRegion = region
	if region == DefaultRegion {
		st.Filters.Regions = []string{}
	} else {
		st.Filters.Regions = []string{region}
	}
}

func setType(st *domain.SelectionState, kind domain.BudgetKind) {
	st.SelectedType = kind
	if kind == domain.KindNational {
		st.Filters.Type = []domain.BudgetType{domain.BudgetTypeAPBN}
	} else {
		st.Filters.Type = []domain.BudgetType{domain.BudgetTypeAPBD}
	}
}

func filterSetter(key string, value any) (func(*domain.BudgetFilter), error) {
	bad := func() error {
		return &domain.ErrValidation{Field: key, Message: fmt.Sprintf("unexpected value of type %T", value)}
	}

	switch key {
	case domain.FilterYears:
		v, ok := value.([]int)
		if !ok {
			return nil, bad()
		}
		v = append([]int{}, v...)
		return func(f *domain.BudgetFilter) { f.Years = v }, nil
	case domain.FilterRegions, domain.FilterCategories, domain.FilterMinistries, domain.FilterLevel:
		v, ok := value.([]string)
		if !ok {
			return nil, bad()
		}
		v = append([]string{}, v...)
		return func(f *domain.BudgetFilter) {
			switch key {
			case domain.FilterRegions:
				f.Regions = v
			case domain.FilterCategories:
				f.Categories = v
			case domain.FilterMinistries:
				f.Ministries = v
			default:
				f.Level = v
			}
		}, nil
	case domain.FilterType:
		v, ok := value.([]domain.BudgetType)
		if !ok {
			return nil, bad()
		}
		v = append([]domain.BudgetType{}, v...)
		return func(f *domain.BudgetFilter) { f.Type = v }, nil
	case domain.FilterAmountRange:
		v, ok := value.(*domain.AmountRange)
		if !ok {
			return nil, bad()
		}
		if v != nil {
			r := *v
			v = &r
		}
		return func(f *domain.BudgetFilter) { f.AmountRange = v }, nil
	}
	return nil, &domain.ErrValidation{Field: "key", Message: fmt.Sprintf("unknown filter %q", key)}
}

// DecodeFilterValue decodes a JSON filter value into the Go type UpdateFilter
// expects for key.
func DecodeFilterValue(key string, raw json.RawMessage) (any, error) {
	var (
		v   any
		err error
	)
	switch key {
	case domain.FilterYears:
		var years []int
		err = json.Unmarshal(raw, &years)
		v = years
	case domain.FilterRegions, domain.FilterCategories, domain.FilterMinistries, domain.FilterLevel:
		var list []string
		err = json.Unmarshal(raw, &list)
		v = list
	case domain.FilterType:
		var types []domain.BudgetType
		err = json.Unmarshal(raw, &types)
		for _, t := range types {
			if t != domain.BudgetTypeAPBN && t != domain.BudgetTypeAPBD {
				return nil, &domain.ErrValidation{Field: key, Message: fmt.Sprintf("unknown budget type %q", t)}
			}
		}
		v = types
	case domain.FilterAmountRange:
		var r *domain.AmountRange
		err = json.Unmarshal(raw, &r)
		v = r
	default:
		return nil, &domain.ErrValidation{Field: "key", Message: fmt.Sprintf("unknown filter %q", key)}
	}
	if err != nil {
		return nil, &domain.ErrValidation{Field: key, Message: err.Error()}
	}
	return v, nil
}
