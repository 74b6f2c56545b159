package loan_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-engine/internal/domain/loan"
	"lending-engine/internal/event"
	"lending-engine/internal/pkg/apperrors"
	"lending-engine/internal/testutil/eventmock"
	"lending-engine/internal/testutil/loanmock"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

func testLoan(id int64, status loan.LoanStatus) *loan.Loan {
	return &loan.Loan{
		ID:                 id,
		BorrowerID:         42,
		Principal:          decimal.NewFromInt(1_000_000),
		AnnualInterestRate: decimal.NewFromFloat(0.42),
		AnnualOverdueRate:  decimal.NewFromFloat(0.6),
		TermMonths:         6,
		Status:             status,
	}
}

func TestApplyForLoan(t *testing.T) {
	repo := &loanmock.Repo{
		CreateLoanFn: func(ctx context.Context, l *loan.Loan) (*loan.Loan, error) {
			l.ID = 11
			return l, nil
		},
	}
	pub := &eventmock.Publisher{}
	svc := loan.NewLoanService(repo, pub, logger)

	created, err := svc.ApplyForLoan(context.Background(), 42,
		decimal.NewFromInt(1_000_000), decimal.NewFromFloat(0.42), decimal.NewFromFloat(0.6), 12, "moto")
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)
	assert.Equal(t, loan.StatusApplied, created.Status)

	require.Len(t, pub.RoutingKeys, 1)
	assert.Equal(t, event.RoutingKeyLoanApplication, pub.RoutingKeys[0])
	assert.Equal(t, int64(11), pub.StatusEvents[0].LoanID)
}

func TestApplyForLoanInvalidTerm(t *testing.T) {
	svc := loan.NewLoanService(&loanmock.Repo{}, &eventmock.Publisher{}, logger)

	_, err := svc.ApplyForLoan(context.Background(), 42,
		decimal.NewFromInt(1000), decimal.NewFromFloat(0.1), decimal.NewFromFloat(0.2), 13, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestTransitionsPublishEvents(t *testing.T) {
	cases := []struct {
		name       string
		from       loan.LoanStatus
		call       func(svc loan.LoanService) error
		routingKey string
	}{
		{"review", loan.StatusApplied, func(s loan.LoanService) error { return s.Review(context.Background(), 1, "") }, event.RoutingKeyLoanInReview},
		{"approve", loan.StatusReviewing, func(s loan.LoanService) error { return s.Approve(context.Background(), 1, "ok") }, event.RoutingKeyLoanApproved},
		{"reject", loan.StatusReviewing, func(s loan.LoanService) error { return s.Reject(context.Background(), 1, "no") }, event.RoutingKeyLoanRejected},
		{"fund", loan.StatusApproved, func(s loan.LoanService) error { return s.Fund(context.Background(), 1, "") }, event.RoutingKeyLoanInFunding},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var persisted loan.LoanStatus
			repo := &loanmock.Repo{
				GetLoanByIDFn: func(ctx context.Context, loanID int64) (*loan.Loan, error) {
					return testLoan(1, tc.from), nil
				},
				UpdateLoanStatusFn: func(ctx context.Context, loanID int64, status loan.LoanStatus, comment string) error {
					persisted = status
					return nil
				},
			}
			pub := &eventmock.Publisher{}
			svc := loan.NewLoanService(repo, pub, logger)

			require.NoError(t, tc.call(svc))
			require.Len(t, pub.RoutingKeys, 1)
			assert.Equal(t, tc.routingKey, pub.RoutingKeys[0])
			assert.NotEmpty(t, persisted)
		})
	}
}

func TestTransitionFromWrongState(t *testing.T) {
	repo := &loanmock.Repo{
		GetLoanByIDFn: func(ctx context.Context, loanID int64) (*loan.Loan, error) {
			return testLoan(1, loan.StatusApplied), nil
		},
	}
	pub := &eventmock.Publisher{}
	svc := loan.NewLoanService(repo, pub, logger)

	err := svc.Approve(context.Background(), 1, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Empty(t, pub.RoutingKeys, "no event on rejected transition")
}

func TestDisburseGeneratesSchedule(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	var savedSchedule []loan.Movement
	repo := &loanmock.Repo{
		GetLoanByIDFn: func(ctx context.Context, loanID int64) (*loan.Loan, error) {
			return testLoan(1, loan.StatusFunding), nil
		},
		DisburseLoanFn: func(ctx context.Context, loanID int64, startDate time.Time, schedule []loan.Movement) error {
			savedSchedule = schedule
			return nil
		},
	}
	pub := &eventmock.Publisher{}
	svc := loan.NewLoanService(repo, pub, logger)

	disbursed, err := svc.Disburse(context.Background(), 1, start)
	require.NoError(t, err)
	require.Len(t, savedSchedule, 6)

	assert.Equal(t, loan.StatusDisbursed, disbursed.Status)
	assert.Equal(t, start.AddDate(0, 0, 30), savedSchedule[0].DueDate)

	sum := decimal.Zero
	for _, m := range savedSchedule {
		assert.Equal(t, loan.MovementLoanInstallment, m.Type)
		assert.False(t, m.IsPaid())
		assert.Equal(t, 1, m.Generation)
		sum = sum.Add(m.Principal)
	}
	assert.True(t, sum.Sub(decimal.NewFromInt(1_000_000)).Abs().LessThanOrEqual(decimal.NewFromFloat(0.001)))

	require.Len(t, pub.RoutingKeys, 1)
	assert.Equal(t, event.RoutingKeyLoanDisbursement, pub.RoutingKeys[0])
}

func TestDisburseFromWrongState(t *testing.T) {
	repo := &loanmock.Repo{
		GetLoanByIDFn: func(ctx context.Context, loanID int64) (*loan.Loan, error) {
			return testLoan(1, loan.StatusApproved), nil
		},
	}
	svc := loan.NewLoanService(repo, &eventmock.Publisher{}, logger)

	_, err := svc.Disburse(context.Background(), 1, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestGetLoanNotFound(t *testing.T) {
	svc := loan.NewLoanService(&loanmock.Repo{}, &eventmock.Publisher{}, logger)

	_, err := svc.GetLoan(context.Background(), 99, false)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetLoanWithMovements(t *testing.T) {
	repo := &loanmock.Repo{
		GetLoanByIDFn: func(ctx context.Context, loanID int64) (*loan.Loan, error) {
			return testLoan(1, loan.StatusDisbursed), nil
		},
		GetMovementsByLoanIDFn: func(ctx context.Context, loanID int64, includeSuperseded bool) ([]loan.Movement, error) {
			assert.False(t, includeSuperseded)
			return []loan.Movement{{ID: 1, Type: loan.MovementLoanInstallment}}, nil
		},
	}
	svc := loan.NewLoanService(repo, &eventmock.Publisher{}, logger)

	l, err := svc.GetLoan(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Len(t, l.Movements, 1)
}
