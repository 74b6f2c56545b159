package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"lending-engine/internal/domain/schedule"
	"lending-engine/internal/event"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/pkg/apperrors"
)

// LoanService owns the loan lifecycle: application and the guarded status
// transitions. Disbursement generates and persists the installment schedule.
type LoanService interface {
	ApplyForLoan(ctx context.Context, borrowerID int64, principal, annualRate, overdueRate decimal.Decimal, termMonths int, alias string) (*Loan, error)

	Review(ctx context.Context, loanID int64, comment string) error

	Approve(ctx context.Context, loanID int64, comment string) error

	Reject(ctx context.Context, loanID int64, comment string) error

	Fund(ctx context.Context, loanID int64, comment string) error

	Disburse(ctx context.Context, loanID int64, startDate time.Time) (*Loan, error)

	MarkPaid(ctx context.Context, loanID int64, comment string) error

	GetLoan(ctx context.Context, loanID int64, includeMovements bool) (*Loan, error)
}

type loanServiceImpl struct {
	repo      Repository
	publisher event.Publisher
	logger    *slog.Logger
}

func NewLoanService(repo Repository, publisher event.Publisher, logger *slog.Logger) LoanService {
	return &loanServiceImpl{repo: repo, publisher: publisher, logger: logger.With("component", "LoanService")}
}

func (s *loanServiceImpl) ApplyForLoan(ctx context.Context, borrowerID int64, principal, annualRate, overdueRate decimal.Decimal, termMonths int, alias string) (*Loan, error) {
	s.logger.InfoContext(ctx, "Creating loan application", "borrower_id", borrowerID, "term_months", termMonths)

	l, err := NewLoan(borrowerID, principal, annualRate, overdueRate, termMonths, alias)
	if err != nil {
		s.logger.ErrorContext(ctx, "Invalid loan application", "error", err)
		return nil, err
	}

	created, err := s.repo.CreateLoan(ctx, l)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist loan application", "error", err)
		return nil, fmt.Errorf("%w: failed to save loan application: %v", apperrors.ErrInternalServer, err)
	}

	s.publishStatusEvent(ctx, created, event.RoutingKeyLoanApplication)
	monitoring.RecordLoanTransition(string(StatusApplied))
	s.logger.InfoContext(ctx, "Loan application created", "loan_id", created.ID)
	return created, nil
}

func (s *loanServiceImpl) Review(ctx context.Context, loanID int64, comment string) error {
	return s.transition(ctx, loanID, StatusReviewing, comment, event.RoutingKeyLoanInReview)
}

func (s *loanServiceImpl) Approve(ctx context.Context, loanID int64, comment string) error {
	return s.transition(ctx, loanID, StatusApproved, comment, event.RoutingKeyLoanApproved)
}

func (s *loanServiceImpl) Reject(ctx context.Context, loanID int64, comment string) error {
	return s.transition(ctx, loanID, StatusRejected, comment, event.RoutingKeyLoanRejected)
}

func (s *loanServiceImpl) Fund(ctx context.Context, loanID int64, comment string) error {
	return s.transition(ctx, loanID, StatusFunding, comment, event.RoutingKeyLoanInFunding)
}

func (s *loanServiceImpl) MarkPaid(ctx context.Context, loanID int64, comment string) error {
	return s.transition(ctx, loanID, StatusPaid, comment, "")
}

func (s *loanServiceImpl) transition(ctx context.Context, loanID int64, target LoanStatus, comment, routingKey string) error {
	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return err
	}

	if err := l.TransitionTo(target, comment); err != nil {
		s.logger.WarnContext(ctx, "Rejected loan status transition", "loan_id", loanID, "target", target, "error", err)
		return err
	}

	if err := s.repo.UpdateLoanStatus(ctx, loanID, target, comment); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist loan status", "loan_id", loanID, "target", target, "error", err)
		return fmt.Errorf("%w: failed to update loan status: %v", apperrors.ErrInternalServer, err)
	}

	if routingKey != "" {
		s.publishStatusEvent(ctx, l, routingKey)
	}
	monitoring.RecordLoanTransition(string(target))
	s.logger.InfoContext(ctx, "Loan status updated", "loan_id", loanID, "status", target)
	return nil
}

// Disburse moves a FUNDING loan to DISBURSED: it sets the start date,
// amortizes the principal into the installment schedule and persists
// everything atomically.
func (s *loanServiceImpl) Disburse(ctx context.Context, loanID int64, startDate time.Time) (*Loan, error) {
	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if err := l.TransitionTo(StatusDisbursed, ""); err != nil {
		s.logger.WarnContext(ctx, "Rejected disbursement", "loan_id", loanID, "error", err)
		return nil, err
	}

	installments, err := schedule.ComputeSchedule(l.Principal, l.AnnualInterestRate, l.TermMonths, startDate)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to compute installment schedule", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf("failed to compute schedule for loan %d: %w", loanID, err)
	}

	movements := make([]Movement, 0, len(installments))
	notPaid := false
	for _, inst := range installments {
		movements = append(movements, Movement{
			LoanID:     loanID,
			Type:       MovementLoanInstallment,
			Amount:     inst.Amount,
			Interest:   inst.Interest,
			Principal:  inst.Principal,
			Balance:    inst.Balance,
			DueDate:    inst.DueDate,
			Paid:       &notPaid,
			Generation: 1,
		})
	}

	if err := s.repo.DisburseLoan(ctx, loanID, startDate, movements); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist disbursement", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf("%w: failed to disburse loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}

	l.StartDate = &startDate
	l.Movements = movements
	s.publishStatusEvent(ctx, l, event.RoutingKeyLoanDisbursement)
	monitoring.RecordLoanTransition(string(StatusDisbursed))
	s.logger.InfoContext(ctx, "Loan disbursed", "loan_id", loanID, "installments", len(movements))
	return l, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64, includeMovements bool) (*Loan, error) {
	l, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if includeMovements {
		movements, err := s.repo.GetMovementsByLoanID(ctx, loanID, false)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to load loan movements", "loan_id", loanID, "error", err)
			return nil, fmt.Errorf("%w: failed to load movements for loan %d: %v", apperrors.ErrInternalServer, loanID, err)
		}
		l.Movements = movements
	}
	return l, nil
}

func (s *loanServiceImpl) getLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "loan_id", loanID)
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf("%w: failed to get loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}
	return l, nil
}

// publishStatusEvent is best-effort: the status change is already committed
// and a lost notification must not fail the operation.
func (s *loanServiceImpl) publishStatusEvent(ctx context.Context, l *Loan, routingKey string) {
	evt := event.LoanStatusChangedEvent{
		LoanID:     l.ID,
		BorrowerID: l.BorrowerID,
		Status:     string(l.Status),
		Comment:    l.Comment,
		Timestamp:  time.Now(),
	}
	if err := s.publisher.PublishLoanStatusChanged(ctx, routingKey, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan status event", "loan_id", l.ID, "routing_key", routingKey, "error", err)
	}
}
