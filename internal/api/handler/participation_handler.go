package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/participation"
	"lending-engine/internal/pkg/apperrors"
)

type ParticipationHandler struct {
	service participation.Service
	logger  *slog.Logger
}

func NewParticipationHandler(s participation.Service, l *slog.Logger) *ParticipationHandler {
	return &ParticipationHandler{
		service: s,
		logger:  l.With("component", "ParticipationHandler"),
	}
}

// CreateParticipation records a lender's stake in a funding loan.
//
// @Summary Participate in a loan's funding round
// @Description Records a lender's contribution to a FUNDING loan. A lender may participate at most once per loan and the combined participations cannot exceed the principal. An optional proof file is uploaded after the participation is stored.
// @Tags Participations
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID"
// @Param request body dto.CreateParticipationRequest true "Participation payload"
// @Success 201 {object} dto.ParticipationResponse "Participation created"
// @Failure 400 {object} dto.ErrorResponse "Invalid payload"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Loan not funding, duplicate lender or amount above the remaining headroom"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/participations [post]
// @Security BearerAuth
func (h *ParticipationHandler) CreateParticipation(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	var req dto.CreateParticipationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	amount, _ := decimal.NewFromString(req.Amount)

	var proof *participation.ProofFile
	if req.Proof != nil {
		proof = &participation.ProofFile{
			Name:          req.Proof.Name,
			ContentBase64: req.Proof.ContentBase64,
		}
	}

	created, err := h.service.CreateParticipation(r.Context(), participation.CreateParticipationInput{
		LoanID:   loanID,
		LenderID: req.LenderID,
		Amount:   amount,
		Proof:    proof,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.NewParticipationResponse(created))
}

// GetFundingProgress reports how far a loan's funding round has come.
//
// @Summary Retrieve funding progress
// @Description Returns the funded amount, the remaining headroom and all recorded participations for a loan.
// @Tags Participations
// @Produce json
// @Param loanID path int true "Loan ID"
// @Success 200 {object} dto.FundingProgressResponse "Funding progress"
// @Failure 400 {object} dto.ErrorResponse "Invalid loan ID"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /loans/{loanID}/participations [get]
// @Security BearerAuth
func (h *ParticipationHandler) GetFundingProgress(w http.ResponseWriter, r *http.Request) {
	loanID, err := getLoanIDFromURL(r)
	if err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	progress, err := h.service.GetFundingProgress(r.Context(), loanID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewFundingProgressResponse(progress))
}
