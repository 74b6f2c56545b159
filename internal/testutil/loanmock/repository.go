// Package loanmock provides a function-backed mock of loan.Repository for
// unit tests. Only the methods a test assigns are exercised; the rest return
// zero values or ErrNotFound.
package loanmock

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"
)

type Repo struct {
	CreateLoanFn                      func(ctx context.Context, l *loan.Loan) (*loan.Loan, error)
	GetLoanByIDFn                     func(ctx context.Context, loanID int64) (*loan.Loan, error)
	ListLoansByStatusFn               func(ctx context.Context, status loan.LoanStatus) ([]*loan.Loan, error)
	UpdateLoanStatusFn                func(ctx context.Context, loanID int64, status loan.LoanStatus, comment string) error
	DisburseLoanFn                    func(ctx context.Context, loanID int64, startDate time.Time, schedule []loan.Movement) error
	CreateMovementFn                  func(ctx context.Context, m *loan.Movement) (*loan.Movement, error)
	CreateMovementsFn                 func(ctx context.Context, loanID int64, movements []loan.Movement) error
	GetMovementByIDFn                 func(ctx context.Context, movementID int64) (*loan.Movement, error)
	GetMovementsByLoanIDFn            func(ctx context.Context, loanID int64, includeSuperseded bool) ([]loan.Movement, error)
	GetUnpaidInstallmentsFn           func(ctx context.Context, loanID int64) ([]loan.Movement, error)
	GetUnpaidOverdueInterestFn        func(ctx context.Context, loanID int64, onOrBefore time.Time) ([]loan.Movement, error)
	GetOverdueChargeDatesFn           func(ctx context.Context, loanID int64) ([]time.Time, error)
	GetLatestPaidInstallmentDueDateFn func(ctx context.Context, loanID int64) (time.Time, error)
	UpdateMovementProofURLFn          func(ctx context.Context, movementID int64, url string) error
	GetPaymentForUpdateFn             func(ctx context.Context, tx pgx.Tx, movementID int64) (*loan.Movement, error)
	MarkMovementsPaidInTxFn           func(ctx context.Context, tx pgx.Tx, movementIDs []int64) error
	SupersedeInstallmentsInTxFn       func(ctx context.Context, tx pgx.Tx, movementIDs []int64) error
	CreateMovementsInTxFn             func(ctx context.Context, tx pgx.Tx, loanID int64, movements []loan.Movement) error
	CountUnpaidInstallmentsInTxFn     func(ctx context.Context, tx pgx.Tx, loanID int64) (int, error)
	MarkPaymentProcessedInTxFn        func(ctx context.Context, tx pgx.Tx, movementID int64, comment string) error
	UpdateLoanStatusInTxFn            func(ctx context.Context, tx pgx.Tx, loanID int64, status loan.LoanStatus) error
	BeginTxFn                         func(ctx context.Context) (pgx.Tx, error)
	CommitTxFn                        func(ctx context.Context, tx pgx.Tx) error
	RollbackTxFn                      func(ctx context.Context, tx pgx.Tx) error
}

var _ loan.Repository = (*Repo)(nil)

func (m *Repo) CreateLoan(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
	if m.CreateLoanFn != nil {
		return m.CreateLoanFn(ctx, l)
	}
	return l, nil
}

func (m *Repo) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	if m.GetLoanByIDFn != nil {
		return m.GetLoanByIDFn(ctx, loanID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *Repo) ListLoansByStatus(ctx context.Context, status loan.LoanStatus) ([]*loan.Loan, error) {
	if m.ListLoansByStatusFn != nil {
		return m.ListLoansByStatusFn(ctx, status)
	}
	return nil, nil
}

func (m *Repo) UpdateLoanStatus(ctx context.Context, loanID int64, status loan.LoanStatus, comment string) error {
	if m.UpdateLoanStatusFn != nil {
		return m.UpdateLoanStatusFn(ctx, loanID, status, comment)
	}
	return nil
}

func (m *Repo) DisburseLoan(ctx context.Context, loanID int64, startDate time.Time, schedule []loan.Movement) error {
	if m.DisburseLoanFn != nil {
		return m.DisburseLoanFn(ctx, loanID, startDate, schedule)
	}
	return nil
}

func (m *Repo) CreateMovement(ctx context.Context, mv *loan.Movement) (*loan.Movement, error) {
	if m.CreateMovementFn != nil {
		return m.CreateMovementFn(ctx, mv)
	}
	return mv, nil
}

func (m *Repo) CreateMovements(ctx context.Context, loanID int64, movements []loan.Movement) error {
	if m.CreateMovementsFn != nil {
		return m.CreateMovementsFn(ctx, loanID, movements)
	}
	return nil
}

func (m *Repo) GetMovementByID(ctx context.Context, movementID int64) (*loan.Movement, error) {
	if m.GetMovementByIDFn != nil {
		return m.GetMovementByIDFn(ctx, movementID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *Repo) GetMovementsByLoanID(ctx context.Context, loanID int64, includeSuperseded bool) ([]loan.Movement, error) {
	if m.GetMovementsByLoanIDFn != nil {
		return m.GetMovementsByLoanIDFn(ctx, loanID, includeSuperseded)
	}
	return nil, nil
}

func (m *Repo) GetUnpaidInstallments(ctx context.Context, loanID int64) ([]loan.Movement, error) {
	if m.GetUnpaidInstallmentsFn != nil {
		return m.GetUnpaidInstallmentsFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) GetUnpaidOverdueInterest(ctx context.Context, loanID int64, onOrBefore time.Time) ([]loan.Movement, error) {
	if m.GetUnpaidOverdueInterestFn != nil {
		return m.GetUnpaidOverdueInterestFn(ctx, loanID, onOrBefore)
	}
	return nil, nil
}

func (m *Repo) GetOverdueChargeDates(ctx context.Context, loanID int64) ([]time.Time, error) {
	if m.GetOverdueChargeDatesFn != nil {
		return m.GetOverdueChargeDatesFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) GetLatestPaidInstallmentDueDate(ctx context.Context, loanID int64) (time.Time, error) {
	if m.GetLatestPaidInstallmentDueDateFn != nil {
		return m.GetLatestPaidInstallmentDueDateFn(ctx, loanID)
	}
	return time.Time{}, apperrors.ErrNotFound
}

func (m *Repo) UpdateMovementProofURL(ctx context.Context, movementID int64, url string) error {
	if m.UpdateMovementProofURLFn != nil {
		return m.UpdateMovementProofURLFn(ctx, movementID, url)
	}
	return nil
}

func (m *Repo) GetPaymentForUpdate(ctx context.Context, tx pgx.Tx, movementID int64) (*loan.Movement, error) {
	if m.GetPaymentForUpdateFn != nil {
		return m.GetPaymentForUpdateFn(ctx, tx, movementID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *Repo) MarkMovementsPaidInTx(ctx context.Context, tx pgx.Tx, movementIDs []int64) error {
	if m.MarkMovementsPaidInTxFn != nil {
		return m.MarkMovementsPaidInTxFn(ctx, tx, movementIDs)
	}
	return nil
}

func (m *Repo) SupersedeInstallmentsInTx(ctx context.Context, tx pgx.Tx, movementIDs []int64) error {
	if m.SupersedeInstallmentsInTxFn != nil {
		return m.SupersedeInstallmentsInTxFn(ctx, tx, movementIDs)
	}
	return nil
}

func (m *Repo) CreateMovementsInTx(ctx context.Context, tx pgx.Tx, loanID int64, movements []loan.Movement) error {
	if m.CreateMovementsInTxFn != nil {
		return m.CreateMovementsInTxFn(ctx, tx, loanID, movements)
	}
	return nil
}

func (m *Repo) CountUnpaidInstallmentsInTx(ctx context.Context, tx pgx.Tx, loanID int64) (int, error) {
	if m.CountUnpaidInstallmentsInTxFn != nil {
		return m.CountUnpaidInstallmentsInTxFn(ctx, tx, loanID)
	}
	return 0, nil
}

func (m *Repo) MarkPaymentProcessedInTx(ctx context.Context, tx pgx.Tx, movementID int64, comment string) error {
	if m.MarkPaymentProcessedInTxFn != nil {
		return m.MarkPaymentProcessedInTxFn(ctx, tx, movementID, comment)
	}
	return nil
}

func (m *Repo) UpdateLoanStatusInTx(ctx context.Context, tx pgx.Tx, loanID int64, status loan.LoanStatus) error {
	if m.UpdateLoanStatusInTxFn != nil {
		return m.UpdateLoanStatusInTxFn(ctx, tx, loanID, status)
	}
	return nil
}

func (m *Repo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	if m.BeginTxFn != nil {
		return m.BeginTxFn(ctx)
	}
	return nil, nil
}

func (m *Repo) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if m.CommitTxFn != nil {
		return m.CommitTxFn(ctx, tx)
	}
	return nil
}

func (m *Repo) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	if m.RollbackTxFn != nil {
		return m.RollbackTxFn(ctx, tx)
	}
	return nil
}
