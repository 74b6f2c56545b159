package loan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Repository is the persistence boundary for loans and their movement ledger.
// Movement reads only ever return current-generation rows (superseded_at IS
// NULL) unless stated otherwise.
type Repository interface {
	CreateLoan(ctx context.Context, l *Loan) (*Loan, error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	ListLoansByStatus(ctx context.Context, status LoanStatus) ([]*Loan, error)

	UpdateLoanStatus(ctx context.Context, loanID int64, status LoanStatus, comment string) error

	// DisburseLoan atomically sets the start date, moves the loan to DISBURSED
	// and batch-inserts the installment schedule.
	DisburseLoan(ctx context.Context, loanID int64, startDate time.Time, schedule []Movement) error

	CreateMovement(ctx context.Context, m *Movement) (*Movement, error)

	CreateMovements(ctx context.Context, loanID int64, movements []Movement) error

	GetMovementByID(ctx context.Context, movementID int64) (*Movement, error)

	// GetMovementsByLoanID returns the loan's ledger ordered by due date.
	// Superseded generations are included only when requested.
	GetMovementsByLoanID(ctx context.Context, loanID int64, includeSuperseded bool) ([]Movement, error)

	// GetUnpaidInstallments returns unpaid LOAN_INSTALLMENT movements ordered
	// by due date ascending.
	GetUnpaidInstallments(ctx context.Context, loanID int64) ([]Movement, error)

	// GetUnpaidOverdueInterest returns unpaid OVERDUE_INTEREST movements with
	// a due date on or before the given date, ordered by due date ascending.
	GetUnpaidOverdueInterest(ctx context.Context, loanID int64, onOrBefore time.Time) ([]Movement, error)

	// GetOverdueChargeDates returns the due dates of every OVERDUE_INTEREST
	// movement of the loan, paid or not, for the accrual idempotency check.
	GetOverdueChargeDates(ctx context.Context, loanID int64) ([]time.Time, error)

	// GetLatestPaidInstallmentDueDate returns the due date of the most
	// recently due installment already marked paid, or ErrNotFound.
	GetLatestPaidInstallmentDueDate(ctx context.Context, loanID int64) (time.Time, error)

	UpdateMovementProofURL(ctx context.Context, movementID int64, url string) error

	GetPaymentForUpdate(ctx context.Context, tx pgx.Tx, movementID int64) (*Movement, error)

	MarkMovementsPaidInTx(ctx context.Context, tx pgx.Tx, movementIDs []int64) error

	SupersedeInstallmentsInTx(ctx context.Context, tx pgx.Tx, movementIDs []int64) error

	CreateMovementsInTx(ctx context.Context, tx pgx.Tx, loanID int64, movements []Movement) error

	CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (int, error)

	MarkPaymentProcessedInTx(ctx context.Context, tx pgx.Tx, movementID int64, comment string) error

	UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status LoanStatus) error

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
