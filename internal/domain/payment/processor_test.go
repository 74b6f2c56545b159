package payment_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-engine/internal/config"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/payment"
	"lending-engine/internal/domain/schedule"
	"lending-engine/internal/pkg/apperrors"
	"lending-engine/internal/testutil/eventmock"
	"lending-engine/internal/testutil/loanmock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBusinessConfig() config.BusinessConfig {
	return config.BusinessConfig{
		DefaultCountry:     "CO",
		ForgivableRounding: map[string]float64{"CO": 500},
		OverdueDayCount:    360,
	}
}

type stubLocker struct {
	acquired int
	released int
}

func (s *stubLocker) AcquireLoanLock(_ context.Context, _ int64) (func(), error) {
	s.acquired++
	return func() { s.released++ }, nil
}

type stubProofs struct {
	paths []string
}

func (s *stubProofs) Upload(_ context.Context, _ string, path string) (string, error) {
	s.paths = append(s.paths, path)
	return "https://files.local/" + path, nil
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func disbursedLoan() *loan.Loan {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &loan.Loan{
		ID:                 7,
		BorrowerID:         42,
		Principal:          dec("1000000"),
		AnnualInterestRate: dec("0.42"),
		AnnualOverdueRate:  dec("0.6"),
		TermMonths:         6,
		StartDate:          &start,
		Status:             loan.StatusDisbursed,
	}
}

// testInstallments amortizes the fixture loan and returns its ledger rows
// with IDs assigned from 100 upward.
func testInstallments(t *testing.T, l *loan.Loan) []loan.Movement {
	t.Helper()
	installments, err := schedule.ComputeSchedule(l.Principal, l.AnnualInterestRate, l.TermMonths, *l.StartDate)
	require.NoError(t, err)

	notPaid := false
	out := make([]loan.Movement, 0, len(installments))
	for i, inst := range installments {
		out = append(out, loan.Movement{
			ID:         int64(100 + i),
			LoanID:     l.ID,
			Type:       loan.MovementLoanInstallment,
			Amount:     inst.Amount,
			Interest:   inst.Interest,
			Principal:  inst.Principal,
			Balance:    inst.Balance,
			DueDate:    inst.DueDate,
			Paid:       &notPaid,
			Generation: 1,
		})
	}
	return out
}

func newProcessor(repo *loanmock.Repo, pub *eventmock.Publisher, locker payment.LoanLocker, proofs payment.ProofStore) *payment.Processor {
	return payment.NewProcessor(repo, ledger.NewEngine(repo, testLogger()), pub, locker, proofs, testBusinessConfig(), testLogger())
}

func TestCreatePaymentRequiresDisbursedLoan(t *testing.T) {
	l := disbursedLoan()
	l.Status = loan.StatusApproved
	repo := &loanmock.Repo{
		GetLoanByIDFn: func(_ context.Context, _ int64) (*loan.Loan, error) { return l, nil },
	}
	proc := newProcessor(repo, &eventmock.Publisher{}, &stubLocker{}, nil)

	_, err := proc.CreatePayment(context.Background(), payment.CreatePaymentInput{
		LoanID:      l.ID,
		Amount:      dec("187668.206"),
		PaymentDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCreatePaymentBelowMinimum(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)
	repo := &loanmock.Repo{
		GetLoanByIDFn:           func(_ context.Context, _ int64) (*loan.Loan, error) { return l, nil },
		GetUnpaidInstallmentsFn: func(_ context.Context, _ int64) ([]loan.Movement, error) { return installments, nil },
	}
	proc := newProcessor(repo, &eventmock.Publisher{}, &stubLocker{}, nil)

	_, err := proc.CreatePayment(context.Background(), payment.CreatePaymentInput{
		LoanID:      l.ID,
		Amount:      dec("100"),
		PaymentDate: installments[0].DueDate,
	})
	assert.ErrorIs(t, err, apperrors.ErrPaymentBelowMinimum)
}

func TestCreatePaymentExactMinimum(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)
	var saved *loan.Movement
	repo := &loanmock.Repo{
		GetLoanByIDFn:           func(_ context.Context, _ int64) (*loan.Loan, error) { return l, nil },
		GetUnpaidInstallmentsFn: func(_ context.Context, _ int64) ([]loan.Movement, error) { return installments, nil },
		CreateMovementFn: func(_ context.Context, m *loan.Movement) (*loan.Movement, error) {
			saved = m
			created := *m
			created.ID = 900
			return &created, nil
		},
	}
	pub := &eventmock.Publisher{}
	proc := newProcessor(repo, pub, &stubLocker{}, nil)

	minimum := installments[0].Amount
	created, err := proc.CreatePayment(context.Background(), payment.CreatePaymentInput{
		LoanID:      l.ID,
		Amount:      minimum,
		PaymentDate: installments[0].DueDate,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Equal(t, loan.MovementPayment, created.Type)
	assert.True(t, created.Amount.Equal(minimum.Neg()), "payment must be stored negated, got %s", created.Amount)
	assert.False(t, created.IsProcessed())
	require.Len(t, pub.PaymentEvents, 1)
	assert.Equal(t, int64(900), pub.PaymentEvents[0].MovementID)
	assert.Equal(t, l.ID, pub.PaymentEvents[0].LoanID)
}

func TestCreatePaymentOverpaymentDefaultsToAmountReduction(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)
	repo := &loanmock.Repo{
		GetLoanByIDFn:           func(_ context.Context, _ int64) (*loan.Loan, error) { return l, nil },
		GetUnpaidInstallmentsFn: func(_ context.Context, _ int64) ([]loan.Movement, error) { return installments, nil },
		CreateMovementFn: func(_ context.Context, m *loan.Movement) (*loan.Movement, error) {
			created := *m
			created.ID = 901
			return &created, nil
		},
	}
	proc := newProcessor(repo, &eventmock.Publisher{}, &stubLocker{}, nil)

	created, err := proc.CreatePayment(context.Background(), payment.CreatePaymentInput{
		LoanID:      l.ID,
		Amount:      installments[0].Amount.Add(dec("0.001")),
		PaymentDate: installments[0].DueDate,
	})
	require.NoError(t, err)
	assert.Equal(t, loan.MovementAmountReduction, created.Type)
}

func TestCreatePaymentExplicitTypeMismatch(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)
	repo := &loanmock.Repo{
		GetLoanByIDFn:           func(_ context.Context, _ int64) (*loan.Loan, error) { return l, nil },
		GetUnpaidInstallmentsFn: func(_ context.Context, _ int64) ([]loan.Movement, error) { return installments, nil },
	}
	proc := newProcessor(repo, &eventmock.Publisher{}, &stubLocker{}, nil)
	minimum := installments[0].Amount

	tests := []struct {
		name   string
		amount decimal.Decimal
		ptype  loan.MovementType
	}{
		{"plain payment above minimum", minimum.Add(dec("50000")), loan.MovementPayment},
		{"term reduction at exactly minimum", minimum, loan.MovementTermReduction},
		{"amount reduction at exactly minimum", minimum, loan.MovementAmountReduction},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ptype := tc.ptype
			_, err := proc.CreatePayment(context.Background(), payment.CreatePaymentInput{
				LoanID:      l.ID,
				Amount:      tc.amount,
				PaymentDate: installments[0].DueDate,
				Type:        &ptype,
			})
			assert.ErrorIs(t, err, apperrors.ErrPaymentTypeMismatch)
		})
	}
}

func TestCreatePaymentExceedsTotal(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)
	repo := &loanmock.Repo{
		GetLoanByIDFn:           func(_ context.Context, _ int64) (*loan.Loan, error) { return l, nil },
		GetUnpaidInstallmentsFn: func(_ context.Context, _ int64) ([]loan.Movement, error) { return installments, nil },
	}
	proc := newProcessor(repo, &eventmock.Publisher{}, &stubLocker{}, nil)

	// Total due at the first due date: first installment plus the remaining
	// principal. Anything past total + forgivable rounding is rejected.
	total := installments[0].Amount
	for _, inst := range installments[1:] {
		total = total.Add(inst.Principal)
	}
	_, err := proc.CreatePayment(context.Background(), payment.CreatePaymentInput{
		LoanID:      l.ID,
		Amount:      total.Add(dec("500.001")),
		PaymentDate: installments[0].DueDate,
	})
	assert.ErrorIs(t, err, apperrors.ErrPaymentExceedsTotal)
}

func TestCreatePaymentClampsFinalPayment(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)
	var saved *loan.Movement
	repo := &loanmock.Repo{
		GetLoanByIDFn:           func(_ context.Context, _ int64) (*loan.Loan, error) { return l, nil },
		GetUnpaidInstallmentsFn: func(_ context.Context, _ int64) ([]loan.Movement, error) { return installments, nil },
		CreateMovementFn: func(_ context.Context, m *loan.Movement) (*loan.Movement, error) {
			saved = m
			return m, nil
		},
	}
	proc := newProcessor(repo, &eventmock.Publisher{}, &stubLocker{}, nil)

	total := installments[0].Amount
	for _, inst := range installments[1:] {
		total = total.Add(inst.Principal)
	}
	// Paying total plus forgivable rounding dust stores exactly -total.
	created, err := proc.CreatePayment(context.Background(), payment.CreatePaymentInput{
		LoanID:      l.ID,
		Amount:      total.Add(dec("300")),
		PaymentDate: installments[0].DueDate,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, created.Amount.Equal(total.Neg()),
		"final payment must clamp to -total, got %s want %s", created.Amount, total.Neg())
	assert.Equal(t, loan.MovementAmountReduction, created.Type)
}

func TestCreatePaymentFullyPaidLoan(t *testing.T) {
	l := disbursedLoan()
	repo := &loanmock.Repo{
		GetLoanByIDFn: func(_ context.Context, _ int64) (*loan.Loan, error) { return l, nil },
	}
	proc := newProcessor(repo, &eventmock.Publisher{}, &stubLocker{}, nil)

	_, err := proc.CreatePayment(context.Background(), payment.CreatePaymentInput{
		LoanID:      l.ID,
		Amount:      dec("1000"),
		PaymentDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, apperrors.ErrLoanFullyPaid)
}

// reconcileHarness wires a stateful mock around one payment movement so the
// reconciliation flow can be observed end to end.
type reconcileHarness struct {
	repo        *loanmock.Repo
	locker      *stubLocker
	proofs      *stubProofs
	paidIDs     []int64
	superseded  []int64
	inserted    []loan.Movement
	processedID int64
	comment     string
	committed   bool
	rolledBack  bool
	finalStatus loan.LoanStatus
}

func newReconcileHarness(l *loan.Loan, pay *loan.Movement, installments []loan.Movement) *reconcileHarness {
	h := &reconcileHarness{locker: &stubLocker{}, proofs: &stubProofs{}}
	h.repo = &loanmock.Repo{
		GetLoanByIDFn:     func(_ context.Context, _ int64) (*loan.Loan, error) { return l, nil },
		GetMovementByIDFn: func(_ context.Context, _ int64) (*loan.Movement, error) { return pay, nil },
		GetPaymentForUpdateFn: func(_ context.Context, _ pgx.Tx, _ int64) (*loan.Movement, error) {
			return pay, nil
		},
		GetUnpaidInstallmentsFn: func(_ context.Context, _ int64) ([]loan.Movement, error) {
			return installments, nil
		},
		BeginTxFn: func(_ context.Context) (pgx.Tx, error) { return nil, nil },
		CommitTxFn: func(_ context.Context, _ pgx.Tx) error {
			h.committed = true
			return nil
		},
		RollbackTxFn: func(_ context.Context, _ pgx.Tx) error {
			h.rolledBack = true
			return nil
		},
		MarkMovementsPaidInTxFn: func(_ context.Context, _ pgx.Tx, ids []int64) error {
			h.paidIDs = append(h.paidIDs, ids...)
			return nil
		},
		SupersedeInstallmentsInTxFn: func(_ context.Context, _ pgx.Tx, ids []int64) error {
			h.superseded = append(h.superseded, ids...)
			return nil
		},
		CreateMovementsInTxFn: func(_ context.Context, _ pgx.Tx, _ int64, movements []loan.Movement) error {
			h.inserted = append(h.inserted, movements...)
			return nil
		},
		CountUnpaidInstallmentsInTxFn: func(_ context.Context, _ pgx.Tx, _ int64) (int, error) {
			n := 0
			supersededSet := make(map[int64]bool)
			for _, id := range h.superseded {
				supersededSet[id] = true
			}
			paidSet := make(map[int64]bool)
			for _, id := range h.paidIDs {
				paidSet[id] = true
			}
			for _, inst := range installments {
				if !paidSet[inst.ID] && !supersededSet[inst.ID] {
					n++
				}
			}
			return n + len(h.inserted), nil
		},
		MarkPaymentProcessedInTxFn: func(_ context.Context, _ pgx.Tx, movementID int64, comment string) error {
			h.processedID = movementID
			h.comment = comment
			return nil
		},
		UpdateLoanStatusInTxFn: func(_ context.Context, _ pgx.Tx, _ int64, status loan.LoanStatus) error {
			h.finalStatus = status
			return nil
		},
	}
	return h
}

func paymentMovement(l *loan.Loan, id int64, amount decimal.Decimal, ptype loan.MovementType, date time.Time) *loan.Movement {
	notProcessed := false
	return &loan.Movement{
		ID:           id,
		LoanID:       l.ID,
		Type:         ptype,
		Amount:       amount.Neg(),
		MovementDate: &date,
		Processed:    &notProcessed,
	}
}

func TestReconcileAlreadyProcessed(t *testing.T) {
	l := disbursedLoan()
	processed := true
	pay := &loan.Movement{ID: 900, LoanID: l.ID, Type: loan.MovementPayment, Processed: &processed}
	locker := &stubLocker{}
	repo := &loanmock.Repo{
		GetMovementByIDFn: func(_ context.Context, _ int64) (*loan.Movement, error) { return pay, nil },
	}
	proc := newProcessor(repo, &eventmock.Publisher{}, locker, nil)

	err := proc.ReconcilePayment(context.Background(), 900, nil)
	assert.ErrorIs(t, err, apperrors.ErrPaymentAlreadyProcessed)
	assert.Zero(t, locker.acquired, "idempotency fast path must not take the loan lock")
}

func TestReconcileRejectsNonPaymentMovement(t *testing.T) {
	l := disbursedLoan()
	inst := testInstallments(t, l)[0]
	repo := &loanmock.Repo{
		GetMovementByIDFn: func(_ context.Context, _ int64) (*loan.Movement, error) { return &inst, nil },
	}
	proc := newProcessor(repo, &eventmock.Publisher{}, &stubLocker{}, nil)

	err := proc.ReconcilePayment(context.Background(), inst.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestReconcileExactPayment(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)
	pay := paymentMovement(l, 900, installments[0].Amount, loan.MovementPayment, installments[0].DueDate)
	h := newReconcileHarness(l, pay, installments)
	proc := newProcessor(h.repo, &eventmock.Publisher{}, h.locker, h.proofs)

	err := proc.ReconcilePayment(context.Background(), 900, nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{installments[0].ID}, h.paidIDs)
	assert.Empty(t, h.superseded, "an exact payment must not re-amortize")
	assert.Empty(t, h.inserted)
	assert.Equal(t, int64(900), h.processedID)
	assert.True(t, h.committed)
	assert.Equal(t, 1, h.locker.acquired)
	assert.Equal(t, 1, h.locker.released)
	assert.Equal(t, loan.LoanStatus(""), h.finalStatus, "loan still has unpaid installments")
}

func TestReconcileFinalPaymentSettlesLoan(t *testing.T) {
	l := disbursedLoan()
	all := testInstallments(t, l)
	// Only the last installment is still unpaid and it is already due.
	last := all[len(all)-1]
	pay := paymentMovement(l, 901, last.Amount, loan.MovementPayment, last.DueDate)
	h := newReconcileHarness(l, pay, []loan.Movement{last})
	proc := newProcessor(h.repo, &eventmock.Publisher{}, h.locker, h.proofs)

	err := proc.ReconcilePayment(context.Background(), 901, nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{last.ID}, h.paidIDs)
	assert.Equal(t, loan.StatusPaid, h.finalStatus)
	assert.True(t, h.committed)
}

func TestReconcileTermReduction(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)

	// Minimum covers the first installment; the excess retires roughly two
	// more installments' worth of principal.
	excess := installments[1].Principal.Add(installments[2].Principal).Add(dec("10000"))
	amount := installments[0].Amount.Add(excess)
	pay := paymentMovement(l, 902, amount, loan.MovementTermReduction, installments[0].DueDate)
	h := newReconcileHarness(l, pay, installments)
	proc := newProcessor(h.repo, &eventmock.Publisher{}, h.locker, h.proofs)

	err := proc.ReconcilePayment(context.Background(), 902, nil)
	require.NoError(t, err)

	assert.Equal(t, []int64{installments[0].ID}, h.paidIDs)
	assert.Len(t, h.superseded, 5, "all remaining installments are superseded")
	require.NotEmpty(t, h.inserted)
	assert.Less(t, len(h.inserted), 5, "term reduction must shorten the schedule")

	remainingPrincipal := decimal.Zero
	for _, inst := range installments[1:] {
		remainingPrincipal = remainingPrincipal.Add(inst.Principal)
	}
	newDebt := remainingPrincipal.Sub(excess)

	insertedPrincipal := decimal.Zero
	for _, m := range h.inserted {
		assert.Equal(t, loan.MovementLoanInstallment, m.Type)
		assert.Equal(t, 2, m.Generation)
		insertedPrincipal = insertedPrincipal.Add(m.Principal)
	}
	assert.True(t, insertedPrincipal.Equal(newDebt),
		"re-amortized principal %s must equal reduced debt %s", insertedPrincipal, newDebt)

	final := h.inserted[len(h.inserted)-1]
	assert.True(t, final.Balance.IsZero(), "final installment closes the balance")
	// Untouched installments keep their original due dates.
	assert.True(t, h.inserted[0].DueDate.Equal(installments[1].DueDate))
}

func TestReconcileAmountReduction(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)

	excess := dec("150000")
	amount := installments[0].Amount.Add(excess)
	pay := paymentMovement(l, 903, amount, loan.MovementAmountReduction, installments[0].DueDate)
	h := newReconcileHarness(l, pay, installments)
	proc := newProcessor(h.repo, &eventmock.Publisher{}, h.locker, h.proofs)

	err := proc.ReconcilePayment(context.Background(), 903, nil)
	require.NoError(t, err)

	assert.Len(t, h.superseded, 5)
	require.Len(t, h.inserted, 5, "amount reduction keeps the installment count")

	remainingPrincipal := decimal.Zero
	for _, inst := range installments[1:] {
		remainingPrincipal = remainingPrincipal.Add(inst.Principal)
	}
	newDebt := remainingPrincipal.Sub(excess)

	insertedPrincipal := decimal.Zero
	for _, m := range h.inserted {
		insertedPrincipal = insertedPrincipal.Add(m.Principal)
		assert.Equal(t, 2, m.Generation)
	}
	assert.True(t, insertedPrincipal.Equal(newDebt))

	// The new schedule is anchored at the due date of the installment settled
	// this cycle, so the next due date is thirty days after it.
	wantFirstDue := installments[0].DueDate.AddDate(0, 0, 30)
	assert.True(t, h.inserted[0].DueDate.Equal(wantFirstDue),
		"first re-amortized due date %s, want %s", h.inserted[0].DueDate, wantFirstDue)

	// Smaller debt over the same term means a smaller installment amount.
	assert.True(t, h.inserted[0].Amount.LessThan(installments[1].Amount))
}

func TestReconcileOverpaymentSettlingAllPrincipal(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)

	remainingPrincipal := decimal.Zero
	for _, inst := range installments[1:] {
		remainingPrincipal = remainingPrincipal.Add(inst.Principal)
	}
	amount := installments[0].Amount.Add(remainingPrincipal)
	pay := paymentMovement(l, 904, amount, loan.MovementAmountReduction, installments[0].DueDate)
	h := newReconcileHarness(l, pay, installments)
	proc := newProcessor(h.repo, &eventmock.Publisher{}, h.locker, h.proofs)

	err := proc.ReconcilePayment(context.Background(), 904, nil)
	require.NoError(t, err)

	assert.Len(t, h.superseded, 5)
	assert.Empty(t, h.inserted, "no debt remains, nothing to re-amortize")
	assert.Equal(t, loan.StatusPaid, h.finalStatus)
}

func TestReconcileUploadsProofAfterCommit(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)
	pay := paymentMovement(l, 905, installments[0].Amount, loan.MovementPayment, installments[0].DueDate)
	h := newReconcileHarness(l, pay, installments)

	var proofURL string
	h.repo.UpdateMovementProofURLFn = func(_ context.Context, _ int64, url string) error {
		proofURL = url
		return nil
	}
	proc := newProcessor(h.repo, &eventmock.Publisher{}, h.locker, h.proofs)

	err := proc.ReconcilePayment(context.Background(), 905, &payment.ProofFile{
		Name:          "receipt.pdf",
		ContentBase64: "dGVzdA==",
	})
	require.NoError(t, err)
	require.Len(t, h.proofs.paths, 1)
	assert.Equal(t, "loans/7/payments/905/receipt.pdf", h.proofs.paths[0])
	assert.Equal(t, "https://files.local/loans/7/payments/905/receipt.pdf", proofURL)
	assert.True(t, h.committed)
}

func TestReconcileRollsBackOnFailure(t *testing.T) {
	l := disbursedLoan()
	installments := testInstallments(t, l)
	pay := paymentMovement(l, 906, installments[0].Amount, loan.MovementPayment, installments[0].DueDate)
	h := newReconcileHarness(l, pay, installments)
	h.repo.MarkMovementsPaidInTxFn = func(_ context.Context, _ pgx.Tx, _ []int64) error {
		return assert.AnError
	}
	proc := newProcessor(h.repo, &eventmock.Publisher{}, h.locker, h.proofs)

	err := proc.ReconcilePayment(context.Background(), 906, nil)
	require.Error(t, err)
	assert.True(t, h.rolledBack)
	assert.False(t, h.committed)
	assert.Equal(t, 1, h.locker.released, "lock must release on failure")
}
