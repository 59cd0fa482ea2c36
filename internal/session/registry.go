package session

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/infra/cache"
	"github.com/budgetforpublic/budget-api/internal/infra/observability"
)

// Registry keeps sessions alive while they are used. A session idle for
// longer than the TTL is dropped together with its document cache.
type Registry struct {
	sessions *cache.InMemory[*Store]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewRegistry creates a registry whose sessions expire after ttl of idleness.
func NewRegistry(ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Registry {
	return &Registry{
		sessions: cache.New[*Store](ttl),
		metrics:  metrics,
		logger:   logger,
	}
}

// Create starts a new session in its initial state.
func (r *Registry) Create() (string, *Store) {
	id := uuid.New().String()
	store := NewStore(cache.New[*domain.BudgetDocument](0))
	store.Subscribe(r.track(id))

	r.sessions.Set(id, store)
	r.reportActive()

	r.logger.Debug("session created", zap.String("session_id", id))
	return id, store
}

// Get returns a session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Store, error) {
	store, ok := r.sessions.Touch(id)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "session", ID: id}
	}
	return store, nil
}

// Delete ends a session.
func (r *Registry) Delete(id string) error {
	if _, ok := r.sessions.Get(id); !ok {
		return &domain.ErrNotFound{Resource: "session", ID: id}
	}
	r.sessions.Delete(id)
	r.reportActive()
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Close stops the expiry janitor.
func (r *Registry) Close() {
	r.sessions.Close()
}

// track reports year and chart type changes, the two selections the site
// measures.
func (r *Registry) track(id string) Listener {
	return func(prev, next domain.SelectionState) {
		if prev.SelectedYear != next.SelectedYear {
			r.logger.Info("budget_year_changed",
				zap.String("session_id", id),
				zap.Int("year", next.SelectedYear),
			)
			if r.metrics != nil {
				r.metrics.IncrSelectionChange("year")
			}
		}
		if prev.ChartType != next.ChartType {
			r.logger.Info("chart_type_changed",
				zap.String("session_id", id),
				zap.String("chart_type", string(next.ChartType)),
			)
			if r.metrics != nil {
				r.metrics.IncrSelectionChange("chart_type")
			}
		}
	}
}

func (r *Registry) reportActive() {
	if r.metrics != nil {
		r.metrics.SetActiveSessions(r.sessions.Len())
	}
}
