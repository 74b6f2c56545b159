package participation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"lending-engine/internal/domain/loan"
	"lending-engine/internal/event"
	"lending-engine/internal/pkg/apperrors"
)

// ProofStore mirrors the payment proof uploader; participation receipts land
// under the same object storage.
type ProofStore interface {
	Upload(ctx context.Context, contentBase64, path string) (url string, err error)
}

type CreateParticipationInput struct {
	LoanID   int64
	LenderID int64
	Amount   decimal.Decimal
	Proof    *ProofFile
}

type ProofFile struct {
	Name          string
	ContentBase64 string
}

// FundingProgress summarizes how far a loan's funding round has come.
type FundingProgress struct {
	LoanID         int64
	Principal      decimal.Decimal
	Funded         decimal.Decimal
	Remaining      decimal.Decimal
	FullyFunded    bool
	Participations []Participation
}

type Service interface {
	CreateParticipation(ctx context.Context, input CreateParticipationInput) (*Participation, error)
	GetFundingProgress(ctx context.Context, loanID int64) (*FundingProgress, error)
}

type serviceImpl struct {
	repo      Repository
	loans     loan.Repository
	publisher event.Publisher
	proofs    ProofStore
	logger    *slog.Logger
}

func NewService(repo Repository, loans loan.Repository, publisher event.Publisher, proofs ProofStore, logger *slog.Logger) Service {
	return &serviceImpl{
		repo:      repo,
		loans:     loans,
		publisher: publisher,
		proofs:    proofs,
		logger:    logger.With("component", "ParticipationService"),
	}
}

// CreateParticipation commits a lender's amount to a loan in FUNDING. A
// lender funds a given loan at most once, and the committed total never
// exceeds the loan principal.
func (s *serviceImpl) CreateParticipation(ctx context.Context, input CreateParticipationInput) (*Participation, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: participation amount must be positive", apperrors.ErrInvalidArgument)
	}

	l, err := s.loans.GetLoanByID(ctx, input.LoanID)
	if err != nil {
		return nil, fmt.Errorf("loading loan %d: %w", input.LoanID, err)
	}
	if l.Status != loan.StatusFunding {
		return nil, fmt.Errorf("%w: loan %d is %s, participations require FUNDING", apperrors.ErrConflict, l.ID, l.Status)
	}

	exists, err := s.repo.HasLenderParticipation(ctx, l.ID, input.LenderID)
	if err != nil {
		return nil, fmt.Errorf("checking existing participation: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: lender %d already participates in loan %d",
			apperrors.ErrDuplicateParticipation, input.LenderID, l.ID)
	}

	funded, _, err := s.fundedAmount(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	headroom := l.Principal.Sub(funded)
	if input.Amount.GreaterThan(headroom) {
		return nil, fmt.Errorf("%w: amount %s exceeds remaining funding headroom %s",
			apperrors.ErrParticipationExceedsLoan, input.Amount, headroom)
	}

	created, err := s.repo.CreateParticipation(ctx, &Participation{
		LoanID:   l.ID,
		LenderID: input.LenderID,
		Amount:   input.Amount,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to save participation: %v", apperrors.ErrInternalServer, err)
	}

	fullyFunded := input.Amount.Equal(headroom)
	evt := event.ParticipationCreatedEvent{
		ParticipationID: created.ID,
		LoanID:          l.ID,
		LenderID:        input.LenderID,
		Amount:          input.Amount.String(),
		FullyFunded:     fullyFunded,
		Timestamp:       time.Now(),
	}
	if err := s.publisher.PublishParticipationCreated(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish participation event",
			"participation_id", created.ID, "loan_id", l.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "Participation created", "participation_id", created.ID,
		"loan_id", l.ID, "lender_id", input.LenderID, "amount", input.Amount.String(),
		"fully_funded", fullyFunded)

	s.attachProof(ctx, created, input.Proof)
	return created, nil
}

func (s *serviceImpl) GetFundingProgress(ctx context.Context, loanID int64) (*FundingProgress, error) {
	l, err := s.loans.GetLoanByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("loading loan %d: %w", loanID, err)
	}

	funded, participations, err := s.fundedAmount(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return &FundingProgress{
		LoanID:         loanID,
		Principal:      l.Principal,
		Funded:         funded,
		Remaining:      l.Principal.Sub(funded),
		FullyFunded:    funded.GreaterThanOrEqual(l.Principal),
		Participations: participations,
	}, nil
}

func (s *serviceImpl) fundedAmount(ctx context.Context, loanID int64) (decimal.Decimal, []Participation, error) {
	participations, err := s.repo.GetParticipationsByLoanID(ctx, loanID)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("fetching participations for loan %d: %w", loanID, err)
	}
	funded := decimal.Zero
	for _, p := range participations {
		funded = funded.Add(p.Amount)
	}
	return funded, participations, nil
}

func (s *serviceImpl) attachProof(ctx context.Context, p *Participation, proof *ProofFile) {
	if proof == nil || s.proofs == nil {
		return
	}
	path := fmt.Sprintf("loans/%d/participations/%d/%s", p.LoanID, p.ID, proof.Name)
	url, err := s.proofs.Upload(ctx, proof.ContentBase64, path)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to upload participation proof",
			"participation_id", p.ID, "error", err)
		return
	}
	if err := s.repo.UpdateParticipationProofURL(ctx, p.ID, url); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist participation proof URL",
			"participation_id", p.ID, "url", url, "error", err)
		return
	}
	p.ProofURL = url
}
