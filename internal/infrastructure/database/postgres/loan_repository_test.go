package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"
)

func newMockRepo(t *testing.T) (*LoanRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewLoanRepository(mockPool, logger), mockPool
}

func loanRow(id int64) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"id", "borrower_id", "alias", "comment", "principal", "annual_interest_rate",
		"annual_overdue_rate", "term_months", "start_date", "status", "created_at", "updated_at",
	}).AddRow(
		id, int64(42), "home improvement", "", decimal.NewFromInt(1000000),
		decimal.NewFromFloat(0.42), decimal.NewFromFloat(0.72), 6, (*time.Time)(nil),
		loan.StatusFunding, now, now,
	)
}

func TestGetLoanByID(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery(`SELECT .+ FROM loans WHERE id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(loanRow(7))

	l, err := repo.GetLoanByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), l.ID)
	assert.Equal(t, loan.StatusFunding, l.Status)
	assert.True(t, l.Principal.Equal(decimal.NewFromInt(1000000)))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetLoanByIDNotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery(`SELECT .+ FROM loans WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(assert.AnError)

	_, err := repo.GetLoanByID(context.Background(), 99)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}

func TestUpdateLoanStatusNotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectExec(`UPDATE loans SET status = \$1, comment = \$2`).
		WithArgs(loan.StatusReviewing, "under review", int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateLoanStatus(context.Background(), 99, loan.StatusReviewing, "under review")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetUnpaidInstallments(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	now := time.Now()
	notPaid := false

	rows := pgxmock.NewRows([]string{
		"id", "loan_id", "type", "amount", "interest", "principal", "balance",
		"due_date", "movement_date", "paid", "processed", "comment", "proof_url",
		"generation", "superseded_at", "created_at", "updated_at",
	}).AddRow(
		int64(100), int64(7), loan.MovementLoanInstallment,
		decimal.NewFromFloat(187668.206), decimal.NewFromInt(35000),
		decimal.NewFromFloat(152668.206), decimal.NewFromFloat(847331.794),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), (*time.Time)(nil),
		&notPaid, (*bool)(nil), "", "", 1, (*time.Time)(nil), now, now,
	)

	mockPool.ExpectQuery(`SELECT .+ FROM movements`).
		WithArgs(int64(7), loan.MovementLoanInstallment).
		WillReturnRows(rows)

	installments, err := repo.GetUnpaidInstallments(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, installments, 1)
	assert.Equal(t, int64(100), installments[0].ID)
	assert.False(t, installments[0].IsPaid())
	assert.Equal(t, 1, installments[0].Generation)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestMarkMovementsPaidInTx(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	ctx := context.Background()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE movements SET paid = TRUE`).
		WithArgs([]int64{100, 101}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.MarkMovementsPaidInTx(ctx, tx, []int64{100, 101}))
	require.NoError(t, repo.CommitTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestMarkMovementsPaidInTxRowCountMismatch(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	ctx := context.Background()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE movements SET paid = TRUE`).
		WithArgs([]int64{100, 101}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockPool.ExpectRollback()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	err = repo.MarkMovementsPaidInTx(ctx, tx, []int64{100, 101})
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	require.NoError(t, repo.RollbackTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDisburseLoanBatchInsertsSchedule(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	ctx := context.Background()
	startDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	notPaid := false
	schedule := []loan.Movement{
		{Type: loan.MovementLoanInstallment, Amount: decimal.NewFromInt(100), DueDate: startDate.AddDate(0, 0, 30), Paid: &notPaid, Generation: 1},
		{Type: loan.MovementLoanInstallment, Amount: decimal.NewFromInt(100), DueDate: startDate.AddDate(0, 0, 60), Paid: &notPaid, Generation: 1},
	}

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE loans SET status = \$1, start_date = \$2`).
		WithArgs(loan.StatusDisbursed, startDate, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	batch := mockPool.ExpectBatch()
	batch.ExpectExec(`INSERT INTO movements`).
		WithArgs(int64(7), schedule[0].Type, schedule[0].Amount, schedule[0].Interest, schedule[0].Principal,
			schedule[0].Balance, schedule[0].DueDate, schedule[0].MovementDate, schedule[0].Paid,
			schedule[0].Processed, schedule[0].Comment, schedule[0].ProofURL, schedule[0].Generation).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec(`INSERT INTO movements`).
		WithArgs(int64(7), schedule[1].Type, schedule[1].Amount, schedule[1].Interest, schedule[1].Principal,
			schedule[1].Balance, schedule[1].DueDate, schedule[1].MovementDate, schedule[1].Paid,
			schedule[1].Processed, schedule[1].Comment, schedule[1].ProofURL, schedule[1].Generation).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectCommit()
	mockPool.ExpectRollback()

	err := repo.DisburseLoan(ctx, 7, startDate, schedule)
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCountUnpaidInstallmentsInTx(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	ctx := context.Background()

	mockPool.ExpectBegin()
	mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM movements`).
		WithArgs(int64(7), loan.MovementLoanInstallment).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mockPool.ExpectCommit()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	count, err := repo.CountUnpaidInstallmentsInTx(ctx, tx, 7)
	require.NoError(t, err)
	assert.Zero(t, count)
	require.NoError(t, repo.CommitTx(ctx, tx))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
