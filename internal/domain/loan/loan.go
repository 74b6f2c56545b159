package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lending-engine/internal/pkg/apperrors"
)

type LoanStatus string

const (
	StatusApplied   LoanStatus = "APPLIED"
	StatusReviewing LoanStatus = "REVIEWING"
	StatusApproved  LoanStatus = "APPROVED"
	StatusRejected  LoanStatus = "REJECTED"
	StatusFunding   LoanStatus = "FUNDING"
	StatusDisbursed LoanStatus = "DISBURSED"
	StatusPaid      LoanStatus = "PAID"
)

type MovementType string

const (
	MovementLoanInstallment MovementType = "LOAN_INSTALLMENT"
	MovementOverdueInterest MovementType = "OVERDUE_INTEREST"
	MovementPayment         MovementType = "PAYMENT"
	MovementTermReduction   MovementType = "PAYMENT_TERM_REDUCTION"
	MovementAmountReduction MovementType = "PAYMENT_INSTALLMENT_AMOUNT_REDUCTION"
)

// ValidTerms are the loan terms, in months, that borrowers may apply for.
var ValidTerms = []int{6, 12, 18, 24, 36}

func IsValidTerm(months int) bool {
	for _, t := range ValidTerms {
		if t == months {
			return true
		}
	}
	return false
}

type Loan struct {
	ID                 int64
	BorrowerID         int64
	Alias              string
	Comment            string
	Principal          decimal.Decimal
	AnnualInterestRate decimal.Decimal
	AnnualOverdueRate  decimal.Decimal
	TermMonths         int
	StartDate          *time.Time
	Status             LoanStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Movements          []Movement
}

// Movement is one entry of a loan's append-only ledger. Installments are
// positive amounts; payments are stored negated. Replaced installments are
// never edited in place: a superseding generation is inserted and the old rows
// get SupersededAt set, so the full history is preserved.
type Movement struct {
	ID           int64
	LoanID       int64
	Type         MovementType
	Amount       decimal.Decimal
	Interest     decimal.Decimal
	Principal    decimal.Decimal
	Balance      decimal.Decimal
	DueDate      time.Time
	MovementDate *time.Time
	Paid         *bool
	Processed    *bool
	Comment      string
	ProofURL     string
	Generation   int
	SupersededAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (m *Movement) IsPaid() bool {
	return m.Paid != nil && *m.Paid
}

func (m *Movement) IsProcessed() bool {
	return m.Processed != nil && *m.Processed
}

// MonthlyRate is the loan's periodic interest rate used by both amortization
// and term-reduction interest recomputation.
func (l *Loan) MonthlyRate() decimal.Decimal {
	return l.AnnualInterestRate.Div(decimal.NewFromInt(12))
}

var transitions = map[LoanStatus]map[LoanStatus]bool{
	StatusApplied:   {StatusReviewing: true},
	StatusReviewing: {StatusApproved: true, StatusRejected: true},
	StatusApproved:  {StatusFunding: true},
	StatusFunding:   {StatusDisbursed: true},
	StatusDisbursed: {StatusPaid: true},
}

// expectedFrom names the single state a transition target may be reached from,
// used to build the conflict message on a rejected transition.
var expectedFrom = map[LoanStatus]LoanStatus{
	StatusReviewing: StatusApplied,
	StatusApproved:  StatusReviewing,
	StatusRejected:  StatusReviewing,
	StatusFunding:   StatusApproved,
	StatusDisbursed: StatusFunding,
	StatusPaid:      StatusDisbursed,
}

// CanTransitionTo reports whether the loan may move to the target status.
// Terminal states (REJECTED, PAID) allow no further transitions.
func (l *Loan) CanTransitionTo(target LoanStatus) bool {
	allowed, ok := transitions[l.Status]
	if !ok {
		return false
	}
	return allowed[target]
}

// TransitionTo moves the loan to the target status, or fails with a conflict
// error naming the state the loan was expected to be in.
func (l *Loan) TransitionTo(target LoanStatus, comment string) error {
	if !l.CanTransitionTo(target) {
		expected := expectedFrom[target]
		return fmt.Errorf("%w: loan %d cannot move to %s from %s (expected %s)",
			apperrors.ErrInvalidTransition, l.ID, target, l.Status, expected)
	}
	l.Status = target
	if comment != "" {
		l.Comment = comment
	}
	return nil
}

func NewLoan(borrowerID int64, principal, annualRate, overdueRate decimal.Decimal, termMonths int, alias string) (*Loan, error) {
	if !principal.IsPositive() {
		return nil, fmt.Errorf("%w: principal must be positive", apperrors.ErrInvalidArgument)
	}
	if annualRate.IsNegative() || overdueRate.IsNegative() {
		return nil, fmt.Errorf("%w: interest rates cannot be negative", apperrors.ErrInvalidArgument)
	}
	if !IsValidTerm(termMonths) {
		return nil, fmt.Errorf("%w: term must be one of %v months", apperrors.ErrInvalidArgument, ValidTerms)
	}

	return &Loan{
		BorrowerID:         borrowerID,
		Alias:              alias,
		Principal:          principal,
		AnnualInterestRate: annualRate,
		AnnualOverdueRate:  overdueRate,
		TermMonths:         termMonths,
		Status:             StatusApplied,
	}, nil
}
