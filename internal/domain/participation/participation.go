// Package participation tracks lender funding commitments against loans in
// the FUNDING stage.
package participation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Participation struct {
	ID        int64
	LoanID    int64
	LenderID  int64
	Amount    decimal.Decimal
	ProofURL  string
	CreatedAt time.Time
}

type Repository interface {
	CreateParticipation(ctx context.Context, p *Participation) (*Participation, error)

	GetParticipationsByLoanID(ctx context.Context, loanID int64) ([]Participation, error)

	// HasLenderParticipation reports whether the lender already funded part
	// of the loan.
	HasLenderParticipation(ctx context.Context, loanID, lenderID int64) (bool, error)

	UpdateParticipationProofURL(ctx context.Context, participationID int64, url string) error
}
