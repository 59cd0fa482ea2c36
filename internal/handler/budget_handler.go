package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/service"
)

// docLoader resolves the document a request addresses.
type docLoader func(r *http.Request) (*domain.BudgetDocument, error)

func nationalLoader(svc *service.Budget) docLoader {
	return func(r *http.Request) (*domain.BudgetDocument, error) {
		year, err := pathYear(chi.URLParam(r, "year"))
		if err != nil {
			return nil, err
		}
		return svc.National(r.Context(), year)
	}
}

func realizationLoader(svc *service.Budget) docLoader {
	return func(r *http.Request) (*domain.BudgetDocument, error) {
		year, err := pathYear(chi.URLParam(r, "year"))
		if err != nil {
			return nil, err
		}
		return svc.Realization(r.Context(), year)
	}
}

func regionalLoader(svc *service.Budget) docLoader {
	return func(r *http.Request) (*domain.BudgetDocument, error) {
		kind := domain.RegionKind(chi.URLParam(r, "kind"))
		return svc.Regional(r.Context(), kind, chi.URLParam(r, "region"))
	}
}

// GET /v1/budgets/national/{year}, /v1/budgets/regional/{kind}/{region}
func documentHandler(load docLoader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := load(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

// GET .../overview?locale=
func overviewHandler(svc *service.Budget, load docLoader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := load(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, svc.Overview(doc, locale(r)))
	}
}

// GET .../chart?type=&locale=
func chartHandler(svc *service.Budget, load docLoader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := load(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		view, err := svc.Chart(doc, domain.ChartType(r.URL.Query().Get("type")), locale(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// GET /v1/trends?from=&to=&locale=
func trendsHandler(svc *service.Budget, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := queryInt(r, "from", 0)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := queryInt(r, "to", 0)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		report, err := svc.Trends(r.Context(), from, to, locale(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// GET /v1/compare?kind=&regions=a,b&year=&locale=
func compareHandler(svc *service.Budget, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := queryInt(r, "year", 0)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		kind := domain.RegionKind(r.URL.Query().Get("kind"))

		out, err := svc.Compare(r.Context(), kind, queryList(r, "regions"), year, locale(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.BudgetComparison]{Data: out, Total: len(out)})
	}
}

// GET /v1/search?q=&year=&region=&category=&type=&min=&max=&sort=&order=&page=&limit=&locale=
func searchHandler(svc *service.Budget, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.Search")
		defer span.End()

		q, err := parseSearch(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("search.query", q.Query))

		res, err := svc.Search(ctx, q)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("search.total", res.Total))
		writeJSON(w, http.StatusOK, res)
	}
}

func parseSearch(r *http.Request) (domain.BudgetSearch, error) {
	query := r.URL.Query()
	q := domain.BudgetSearch{
		Query:     query.Get("q"),
		SortBy:    query.Get("sort"),
		SortOrder: query.Get("order"),
		Locale:    locale(r),
		Filters: domain.BudgetFilter{
			Regions:    queryList(r, "region"),
			Categories: queryList(r, "category"),
		},
	}

	for _, y := range queryList(r, "year") {
		year, err := strconv.Atoi(y)
		if err != nil {
			return q, &domain.ErrValidation{Field: "year", Message: "must be an integer"}
		}
		q.Filters.Years = append(q.Filters.Years, year)
	}
	for _, t := range queryList(r, "type") {
		bt := domain.BudgetType(t)
		if bt != domain.BudgetTypeAPBN && bt != domain.BudgetTypeAPBD {
			return q, &domain.ErrValidation{Field: "type", Message: "must be APBN or APBD"}
		}
		q.Filters.Type = append(q.Filters.Type, bt)
	}

	minAmount, maxAmount := query.Get("min"), query.Get("max")
	if minAmount != "" || maxAmount != "" {
		rng := &domain.AmountRange{}
		var err error
		if minAmount != "" {
			if rng.Min, err = strconv.ParseInt(minAmount, 10, 64); err != nil {
				return q, &domain.ErrValidation{Field: "min", Message: "must be an integer"}
			}
		}
		if maxAmount != "" {
			if rng.Max, err = strconv.ParseInt(maxAmount, 10, 64); err != nil {
				return q, &domain.ErrValidation{Field: "max", Message: "must be an integer"}
			}
		}
		q.Filters.AmountRange = rng
	}

	var err error
	if q.Page, err = queryInt(r, "page", 1); err != nil {
		return q, err
	}
	if q.Limit, err = queryInt(r, "limit", 0); err != nil {
		return q, err
	}
	return q, nil
}
