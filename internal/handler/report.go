package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
	"github.com/segyhp/microloan-engine/pkg/response"
)

const dateLayout = "2006-01-02"

// ListCollections handles GET /collections?label=&search=
func (h *LoanHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := domain.CollectionFilter{Search: strings.TrimSpace(query.Get("search"))}
	if raw := query.Get("label"); raw != "" {
		label, err := domain.ParseDueLabel(raw)
		if err != nil {
			h.respondError(w, r, customError.WrapInvalidInput("label", err.Error()))
			return
		}
		filter.Label = label
	}

	items, err := h.service.ListCollections(r.Context(), h.service.Now(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, items)
}

func (h *LoanHandler) PortfolioReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.PortfolioReport(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, report)
}

// MonthlyCollections handles GET /reports/monthly?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Without a range it covers the last twelve months including the current one.
func (h *LoanHandler) MonthlyCollections(w http.ResponseWriter, r *http.Request) {
	now := h.service.Now()
	loc := now.Location()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	from, err := parseDate(r.URL.Query().Get("from"), "from", loc, thisMonth.AddDate(0, -11, 0))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"), "to", loc, thisMonth.AddDate(0, 1, 0))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if !to.After(from) {
		h.respondError(w, r, customError.WrapInvalidInput("to", "must be after from"))
		return
	}

	months, err := h.service.MonthlyCollections(r.Context(), from, to)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, months)
}

func (h *LoanHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, stats)
}

// UpdatePlan handles PUT /plans/{planId}
func (h *LoanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	planID, err := strconv.ParseInt(mux.Vars(r)["planId"], 10, 64)
	if err != nil || planID <= 0 {
		h.respondError(w, r, customError.WrapInvalidInput("planId", "must be a positive integer"))
		return
	}

	var req domain.UpdatePlanRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	plan, err := h.service.UpdatePlan(r.Context(), planID, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, plan)
}

func parseDate(raw, field string, loc *time.Location, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, customError.WrapInvalidInput(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}
