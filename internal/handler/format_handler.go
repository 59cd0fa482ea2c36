package handler

import (
	"math"
	"net/http"

	"go.uber.org/zap"

	"github.com/budgetforpublic/budget-api/internal/budget"
	"github.com/budgetforpublic/budget-api/internal/domain"
	"github.com/budgetforpublic/budget-api/internal/service"
)

// GET /v1/format/amount?amount=&locale=
func formatAmountHandler(svc *service.Budget, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		amount, err := queryFloat(r, "amount")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		loc := svc.Locale(locale(r))
		writeJSON(w, http.StatusOK, domain.FormatResult{
			Input:     amount,
			Value:     amount,
			Locale:    loc,
			Formatted: budget.FormatBudgetAmount(amount, loc),
		})
	}
}

// GET /v1/format/percentage?value=&decimals=
func formatPercentageHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, err := queryFloat(r, "value")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		decimals, err := queryInt(r, "decimals", 1)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.FormatResult{
			Input:     value,
			Value:     value,
			Formatted: budget.FormatPercentageN(value, decimals),
		})
	}
}

// GET /v1/format/growth?current=&previous=
func formatGrowthHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := queryFloat(r, "current")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		previous, err := queryFloat(r, "previous")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		growth := budget.CalculateGrowth(current, previous)
		if math.IsInf(growth, 0) {
			handleServiceError(w, &domain.ErrValidation{Field: "previous", Message: "growth is out of range"}, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.FormatResult{
			Input:     current,
			Value:     growth,
			Formatted: budget.FormatPercentage(growth),
		})
	}
}
