package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"
)

type LoanHandler struct {
	service loan.LoanService
	engine  *ledger.Engine
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, e *ledger.Engine, l *slog.Logger) *LoanHandler {
	return &LoanHandler{
		service: s,
		engine:  e,
		logger:  l.With("component", "LoanHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field := http.StatusInternalServerError, "An unexpected error occurred.", ""
	var validationError *apperrors.ValidationError
	var appErr *apperrors.AppError

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrPaymentBelowMinimum),
		errors.Is(err, apperrors.ErrPaymentExceedsTotal),
		errors.Is(err, apperrors.ErrPaymentTypeMismatch),
		errors.Is(err, apperrors.ErrLoanFullyPaid):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrInvalidTransition),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrAlreadyExists),
		errors.Is(err, apperrors.ErrPaymentAlreadyProcessed),
		errors.Is(err, apperrors.ErrDuplicateParticipation),
		errors.Is(err, apperrors.ErrParticipationExceedsLoan):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "Unauthorized."
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.As(err, &appErr):
		message = appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message: message,
			Field:   field,
		},
	}
	respondJSON(w, status, resp)
}

func getLoanIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "loanID")
	if idStr == "" {
		return 0, fmt.Errorf("loanID not found in URL path")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// referenceDateFromQuery reads the optional date query parameter, defaulting
// to today.
func referenceDateFromQuery(r *http.Request) (time.Time, error) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339[:10], dateStr)
}

// ApplyForLoan handles a new loan application.
//
// @Summary Apply for a new loan
// @Description Creates a loan application with the given principal, annual interest rate, annual overdue rate and term. The loan starts in the APPLIED status.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan application payload"
// @Success 201 {object} dto.LoanResponse "Loan application created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload or validation error"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) ApplyForLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	principal, _ := decimal.NewFromString(req.Principal)
	annualRate, _ := decimal.NewFromString(req.AnnualInterestRate)
	overdueRate, _ := decimal.NewFromString(req.AnnualOverdueRate)

	created, err := h.service.ApplyForLoan(r.Context(), req.BorrowerID, principal, annualRate, overdueRate, req.TermMonths, req.Alias)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created, false))
}

// GetLoan retrieves the details of a specific loan.
//
// @Summary Retrieve loan details
// @Description Retrieves a loan by its ID. The ledger movements can be included by adding the query parameter `include=movements`.
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param include query string false "Optional parameter to include ledger movements (use 'movements')"
// @Success 200 {object} dto.LoanResponse "Loan details"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	includeMovements := r.URL.Query().Get("include") == "movements"
	domainLoan, err := h.service.GetLoan(r.Context(), loanID, includeMovements)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(domainLoan, includeMovements))
}

// Review moves a loan into review.
//
// @Summary Move a loan into review
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Optional reviewer comment"
// @Success 200 {object} dto.LoanResponse "Loan moved to REVIEWING"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID or payload"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed from the current status"
// @Router /loans/{loanID}/review [post]
// @Security BearerAuth
func (h *LoanHandler) Review(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.Review)
}

// Approve approves a reviewed loan.
//
// @Summary Approve a loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Optional approval comment"
// @Success 200 {object} dto.LoanResponse "Loan moved to APPROVED"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID or payload"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed from the current status"
// @Router /loans/{loanID}/approve [post]
// @Security BearerAuth
func (h *LoanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.Approve)
}

// Reject rejects a reviewed loan.
//
// @Summary Reject a loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Optional rejection comment"
// @Success 200 {object} dto.LoanResponse "Loan moved to REJECTED"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID or payload"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed from the current status"
// @Router /loans/{loanID}/reject [post]
// @Security BearerAuth
func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.Reject)
}

// Fund opens a loan for lender funding.
//
// @Summary Open a loan for funding
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.TransitionRequest false "Optional comment"
// @Success 200 {object} dto.LoanResponse "Loan moved to FUNDING"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID or payload"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed from the current status"
// @Router /loans/{loanID}/fund [post]
// @Security BearerAuth
func (h *LoanHandler) Fund(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, h.service.Fund)
}

func (h *LoanHandler) runTransition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, loanID int64, comment string) error) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.TransitionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
			return
		}
	}

	if err := apply(r.Context(), loanID, req.Comment); err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.service.GetLoan(r.Context(), loanID, false)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(updated, false))
}

// Disburse pays out a funded loan and generates its installment schedule.
//
// @Summary Disburse a loan
// @Description Moves a FUNDING loan to DISBURSED, sets its start date and generates the amortization schedule. The schedule is returned in the response.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.DisburseLoanRequest true "Disbursement payload"
// @Success 200 {object} dto.LoanResponse "Loan disbursed with its installment schedule"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID or payload"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan is not in the FUNDING status"
// @Router /loans/{loanID}/disburse [post]
// @Security BearerAuth
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.DisburseLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	startDate, _ := time.Parse(time.RFC3339[:10], req.StartDate)

	disbursed, err := h.service.Disburse(r.Context(), loanID, startDate)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewLoanResponse(disbursed, true))
}

// GetMinimumDue computes the minimum payment amount for a loan.
//
// @Summary Retrieve the minimum payment due
// @Description Computes the smallest acceptable payment at the reference date: installments due or due within five days plus accrued overdue interest. Defaults to today; override with the `date` query parameter.
// @Tags Payments
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param date query string false "Reference date (YYYY-MM-DD)"
// @Success 200 {object} dto.PaymentAmountResponse "Minimum amount due"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID or date"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/minimum-due [get]
// @Security BearerAuth
func (h *LoanHandler) GetMinimumDue(w http.ResponseWriter, r *http.Request) {
	h.paymentAmount(w, r, h.engine.MinimumPaymentAmount)
}

// GetTotalDue computes the total amount owed on a loan.
//
// @Summary Retrieve the total amount due
// @Description Computes the amount that settles the loan in full at the reference date: the minimum due plus all remaining principal. Defaults to today; override with the `date` query parameter.
// @Tags Payments
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param date query string false "Reference date (YYYY-MM-DD)"
// @Success 200 {object} dto.PaymentAmountResponse "Total amount due"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID or date"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/total-due [get]
// @Security BearerAuth
func (h *LoanHandler) GetTotalDue(w http.ResponseWriter, r *http.Request) {
	h.paymentAmount(w, r, h.engine.TotalPaymentAmount)
}

func (h *LoanHandler) paymentAmount(w http.ResponseWriter, r *http.Request, compute func(ctx context.Context, loanID int64, referenceDate time.Time) (*ledger.PaymentAmount, error)) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	ref, err := referenceDateFromQuery(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid date format (use YYYY-MM-DD)", apperrors.ErrInvalidArgument))
		return
	}

	if _, err := h.service.GetLoan(r.Context(), loanID, false); err != nil {
		respondError(w, err)
		return
	}

	amount, err := compute(r.Context(), loanID, ref)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewPaymentAmountResponse(loanID, ledger.NormalizeDate(ref), amount))
}
