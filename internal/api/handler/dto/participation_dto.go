package dto

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"lending-engine/internal/domain/participation"
)

type CreateParticipationRequest struct {
	LenderID int64             `json:"lenderId"`
	Amount   string            `json:"amount"`
	Proof    *ProofFileRequest `json:"proof,omitempty"`
}

func (r *CreateParticipationRequest) Validate() error {
	if r.LenderID <= 0 {
		return fmt.Errorf("lenderId must be positive")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil || !amount.IsPositive() {
		return fmt.Errorf("amount must be a positive decimal string")
	}
	if r.Proof != nil {
		return r.Proof.Validate()
	}
	return nil
}

type ParticipationResponse struct {
	ID        string    `json:"id"`
	LoanID    string    `json:"loanId"`
	LenderID  string    `json:"lenderId"`
	Amount    string    `json:"amount"`
	ProofURL  string    `json:"proofUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type FundingProgressResponse struct {
	LoanID         string                  `json:"loanId"`
	Principal      string                  `json:"principal"`
	Funded         string                  `json:"funded"`
	Remaining      string                  `json:"remaining"`
	FullyFunded    bool                    `json:"fullyFunded"`
	Participations []ParticipationResponse `json:"participations"`
}

func NewParticipationResponse(p *participation.Participation) ParticipationResponse {
	return ParticipationResponse{
		ID:        strconv.FormatInt(p.ID, 10),
		LoanID:    strconv.FormatInt(p.LoanID, 10),
		LenderID:  strconv.FormatInt(p.LenderID, 10),
		Amount:    p.Amount.String(),
		ProofURL:  p.ProofURL,
		CreatedAt: p.CreatedAt,
	}
}

func NewFundingProgressResponse(progress *participation.FundingProgress) FundingProgressResponse {
	resp := FundingProgressResponse{
		LoanID:         strconv.FormatInt(progress.LoanID, 10),
		Principal:      progress.Principal.String(),
		Funded:         progress.Funded.String(),
		Remaining:      progress.Remaining.String(),
		FullyFunded:    progress.FullyFunded,
		Participations: make([]ParticipationResponse, len(progress.Participations)),
	}
	for i, p := range progress.Participations {
		resp.Participations[i] = NewParticipationResponse(&p)
	}
	return resp
}
