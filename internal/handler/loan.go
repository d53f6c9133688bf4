package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
	"github.com/segyhp/microloan-engine/pkg/response"
)

// LoanService is the part of the service layer exposed over HTTP
type LoanService interface {
	Now() time.Time
	CreateLoan(ctx context.Context, req domain.CreateLoanRequest) (*domain.Loan, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	TransitionStatus(ctx context.Context, loanID uuid.UUID, target domain.LoanStatus) (*domain.Loan, error)
	ListPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)
	GetScheduleSummary(ctx context.Context, loanID uuid.UUID) (*domain.ScheduleSummary, error)
	ClassifyDue(ctx context.Context, loanID uuid.UUID, now time.Time) (domain.DueLabel, error)
	AddPayment(ctx context.Context, loanID uuid.UUID, payee string, amount, penalty decimal.Decimal) (*domain.Loan, *domain.Payment, error)
	EditPayment(ctx context.Context, paymentID uuid.UUID, payee string, amount, penalty decimal.Decimal) (*domain.Loan, *domain.Payment, error)
	DeletePayment(ctx context.Context, paymentID uuid.UUID) (*domain.Loan, error)
	ReconcileLoan(ctx context.Context, loanID uuid.UUID) (bool, error)
	ReconcileAll(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	ListCollections(ctx context.Context, now time.Time, filter domain.CollectionFilter) ([]domain.CollectionItem, error)
	PortfolioReport(ctx context.Context) (*domain.PortfolioReport, error)
	MonthlyCollections(ctx context.Context, from, to time.Time) ([]domain.MonthlyCollection, error)
	DashboardStats(ctx context.Context) (*domain.DashboardStats, error)
	UpdatePlan(ctx context.Context, planID int64, req domain.UpdatePlanRequest) (*domain.LoanPlan, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLoanHandler(service LoanService, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: newValidator(),
		logger:    logger.With(zap.String("component", "loan_handler")),
	}
}

type DueResponse struct {
	LoanID string          `json:"loan_id"`
	Label  domain.DueLabel `json:"label"`
	AsOf   time.Time       `json:"as_of"`
}

type ReconcileResponse struct {
	Closed []uuid.UUID `json:"closed"`
}

type ReconcileLoanResponse struct {
	LoanID string `json:"loan_id"`
	Closed bool   `json:"closed"`
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, customError.WrapInvalidInput(name, "must be a valid UUID")
	}
	return id, nil
}

func (h *LoanHandler) decodeAndValidate(r *http.Request, v interface{}) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	if err := h.validator.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Created(w, loan)
}

// Calculate handles POST /calculator. Nothing is stored.
func (h *LoanHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req domain.CalculatorRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	quote, err := domain.QuoteLoan(req.Principal, req.Rate, req.Months)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, quote)
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, loan)
}

// TransitionStatus handles PUT /loans/{loanId}/status with a named target status
func (h *LoanHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req domain.TransitionRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	target, err := domain.ParseLoanStatus(req.Status)
	if err != nil {
		h.respondError(w, r, customError.WrapInvalidInput("status", err.Error()))
		return
	}

	loan, err := h.service.TransitionStatus(r.Context(), loanID, target)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, loan)
}

func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	summary, err := h.service.GetScheduleSummary(r.Context(), loanID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, summary)
}

func (h *LoanHandler) GetDue(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	now := h.service.Now()
	label, err := h.service.ClassifyDue(r.Context(), loanID, now)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, DueResponse{LoanID: loanID.String(), Label: label, AsOf: now})
}

func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	payments, err := h.service.ListPayments(r.Context(), loanID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, payments)
}

// AddPayment handles POST /loans/{loanId}/payments
func (h *LoanHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req domain.PaymentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	loan, payment, err := h.service.AddPayment(r.Context(), loanID, req.Payee, req.Amount, req.PenaltyAmount)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Created(w, domain.PaymentResponse{Loan: loan, Payment: payment})
}

func (h *LoanHandler) EditPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := pathUUID(r, "paymentId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req domain.PaymentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	loan, payment, err := h.service.EditPayment(r.Context(), paymentID, req.Payee, req.Amount, req.PenaltyAmount)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, domain.PaymentResponse{Loan: loan, Payment: payment})
}

func (h *LoanHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := pathUUID(r, "paymentId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	loan, err := h.service.DeletePayment(r.Context(), paymentID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, domain.PaymentResponse{Loan: loan})
}

func (h *LoanHandler) ReconcileLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	closed, err := h.service.ReconcileLoan(r.Context(), loanID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	response.Success(w, ReconcileLoanResponse{LoanID: loanID.String(), Closed: closed})
}

// ReconcileAll runs the closure sweep on demand. Partial failures are
// logged and the loans that did close are still reported.
func (h *LoanHandler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	closed, err := h.service.ReconcileAll(r.Context(), h.service.Now())
	if err != nil {
		h.logger.Warn("Reconcile sweep finished with failures", zap.Error(err), zap.Int("closed", len(closed)))
		if len(closed) == 0 {
			h.respondError(w, r, err)
			return
		}
	}
	if closed == nil {
		closed = []uuid.UUID{}
	}

	response.Success(w, ReconcileResponse{Closed: closed})
}
