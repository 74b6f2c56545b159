package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/payment"
	"lending-engine/internal/pkg/apperrors"
)

type PaymentHandler struct {
	processor *payment.Processor
	logger    *slog.Logger
}

func NewPaymentHandler(p *payment.Processor, l *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		processor: p,
		logger:    l.With("component", "PaymentHandler"),
	}
}

func getMovementIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "movementID")
	if idStr == "" {
		return 0, fmt.Errorf("movementID not found in URL path")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// SubmitPayment registers an incoming payment against a loan.
//
// @Summary Submit a payment
// @Description Validates the amount against the minimum and total due, records the payment movement and enqueues it for reconciliation. The type is optional; when omitted it is inferred from the amount.
// @Tags Payments
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.CreatePaymentRequest true "Payment payload"
// @Success 202 {object} dto.MovementResponse "Payment accepted for reconciliation"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload, amount below minimum, above total or type mismatch"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan is not disbursed or already fully paid"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/payments [post]
// @Security BearerAuth
func (h *PaymentHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.CreatePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	amount, _ := decimal.NewFromString(req.Amount)
	paymentDate, _ := time.Parse(time.RFC3339[:10], req.PaymentDate)

	created, err := h.processor.CreatePayment(r.Context(), payment.CreatePaymentInput{
		LoanID:      loanID,
		Amount:      amount,
		PaymentDate: paymentDate,
		Type:        req.PaymentType(),
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, dto.NewMovementResponse(created))
}

// ReconcilePayment settles a registered payment against the ledger.
//
// @Summary Reconcile a payment
// @Description Marks the covered movements as paid, re-amortizes the schedule on overpayment and optionally attaches a proof file. Reconciliation normally runs through the queue consumer; this endpoint lets operators drive it by hand.
// @Tags Payments
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param movementID path int true "Payment movement ID"
// @Param request body dto.ReconcilePaymentRequest false "Optional proof of payment"
// @Success 200 {object} map[string]string "Payment reconciled"
// @Failure 400 {object} dto.ErrorResponse "Invalid IDs or payload"
// @Failure 404 {object} dto.ErrorResponse "Loan or movement not found"
// @Failure 409 {object} dto.ErrorResponse "Payment already processed or loan locked by another worker"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/payments/{movementID}/reconcile [post]
// @Security BearerAuth
func (h *PaymentHandler) ReconcilePayment(w http.ResponseWriter, r *http.Request) {
	if _, err := getLoanIDFromURL(r); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	movementID, err := getMovementIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.ReconcilePaymentRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
			return
		}
		if err := req.Validate(); err != nil {
			respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
			return
		}
	}

	var proof *payment.ProofFile
	if req.Proof != nil {
		proof = &payment.ProofFile{
			Name:          req.Proof.Name,
			ContentBase64: req.Proof.ContentBase64,
		}
	}

	if err := h.processor.ReconcilePayment(r.Context(), movementID, proof); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Payment reconciled"})
}
