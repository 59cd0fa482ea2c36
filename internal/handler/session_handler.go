package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/service"
	"github.com/budgetforpublic/budget-api/internal/session"
)

func sessionView(id string, store *session.Store) domain.SessionView {
	return domain.SessionView{ID: id, Selection: store.State(), Cached: store.CachedKeys()}
}

// withSession resolves {id} and hands the session to fn.
func withSession(sessions *session.Registry, logger *zap.Logger, fn func(w http.ResponseWriter, r *http.Request, id string, store *session.Store)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		store, err := sessions.Get(id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		fn(w, r, id, store)
	}
}

// POST /v1/sessions
func createSessionHandler(sessions *session.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, store := sessions.Create()
		writeJSON(w, http.StatusCreated, sessionView(id, store))
	}
}

// GET /v1/sessions/{id}
func getSessionHandler(sessions *session.Registry, logger *zap.Logger) http.HandlerFunc {
	return withSession(sessions, logger, func(w http.ResponseWriter, r *http.Request, id string, store *session.Store) {
		writeJSON(w, http.StatusOK, sessionView(id, store))
	})
}

// DELETE /v1/sessions/{id}
func deleteSessionHandler(sessions *session.Registry, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := sessions.Delete(id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "session deleted", ID: id})
	}
}

// PATCH /v1/sessions/{id}/selection
func patchSelectionHandler(sessions *session.Registry, logger *zap.Logger) http.HandlerFunc {
	return withSession(sessions, logger, func(w http.ResponseWriter, r *http.Request, id string, store *session.Store) {
		var patch domain.SelectionPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := patch.Validate(); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		store.Apply(patch)
		writeJSON(w, http.StatusOK, sessionView(id, store))
	})
}

// PUT /v1/sessions/{id}/filters
func putFiltersHandler(sessions *session.Registry, logger *zap.Logger) http.HandlerFunc {
	return withSession(sessions, logger, func(w http.ResponseWriter, r *http.Request, id string, store *session.Store) {
		filters := session.InitialFilters()
		if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		store.SetFilters(filters)
		writeJSON(w, http.StatusOK, sessionView(id, store))
	})
}

// PATCH /v1/sessions/{id}/filters/{key}
// Body: the JSON value of the filter, e.g. [2024, 2025].
func patchFilterHandler(sessions *session.Registry, logger *zap.Logger) http.HandlerFunc {
	return withSession(sessions, logger, func(w http.ResponseWriter, r *http.Request, id string, store *session.Store) {
		key := chi.URLParam(r, "key")

		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		value, err := session.DecodeFilterValue(key, raw)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := store.UpdateFilter(key, value); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sessionView(id, store))
	})
}

// POST /v1/sessions/{id}/reset
func resetSessionHandler(sessions *session.Registry, logger *zap.Logger) http.HandlerFunc {
	return withSession(sessions, logger, func(w http.ResponseWriter, r *http.Request, id string, store *session.Store) {
		store.Reset()
		writeJSON(w, http.StatusOK, sessionView(id, store))
	})
}

// GET /v1/sessions/{id}/budget
func sessionBudgetHandler(svc *service.Budget, sessions *session.Registry, logger *zap.Logger) http.HandlerFunc {
	return withSession(sessions, logger, func(w http.ResponseWriter, r *http.Request, id string, store *session.Store) {
		ctx, span := tracer.Start(r.Context(), "handler.SessionBudget")
		defer span.End()
		span.SetAttributes(attribute.String("session.id", id))

		doc, key, err := svc.SessionBudget(ctx, store)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SessionBudget{Key: key, Document: doc})
	})
}

// DELETE /v1/sessions/{id}/cache[?key=]
func clearSessionCacheHandler(sessions *session.Registry, logger *zap.Logger) http.HandlerFunc {
	return withSession(sessions, logger, func(w http.ResponseWriter, r *http.Request, id string, store *session.Store) {
		if key := r.URL.Query().Get("key"); key != "" {
			store.ClearBudgetData(key)
		} else {
			store.ClearBudgetData()
		}
		writeJSON(w, http.StatusOK, sessionView(id, store))
	})
}
