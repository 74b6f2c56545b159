// Package payment applies borrower payments against a loan's ledger: it
// validates and records incoming payments, and reconciles them against the
// minimum due, re-amortizing the remaining balance on overpayment.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"lending-engine/internal/config"
	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/schedule"
	"lending-engine/internal/event"
	"lending-engine/internal/infrastructure/monitoring"
	"lending-engine/internal/pkg/apperrors"
)

// LoanLocker serializes reconciliation per loan. Two concurrent
// reconciliations of the same loan can double-count minimum-payment
// installments or race on re-amortization.
type LoanLocker interface {
	AcquireLoanLock(ctx context.Context, loanID int64) (release func(), err error)
}

// ProofStore is the object-storage collaborator for payment proof documents.
type ProofStore interface {
	Upload(ctx context.Context, contentBase64, path string) (url string, err error)
}

type CreatePaymentInput struct {
	LoanID      int64
	Amount      decimal.Decimal
	PaymentDate time.Time
	// Type is optional; when absent it is inferred from the amount.
	Type *loan.MovementType
}

type ProofFile struct {
	Name          string
	ContentBase64 string
}

type Processor struct {
	repo        loan.Repository
	engine      *ledger.Engine
	publisher   event.Publisher
	locker      LoanLocker
	proofs      ProofStore
	forgiveness decimal.Decimal
	logger      *slog.Logger
}

func NewProcessor(
	repo loan.Repository,
	engine *ledger.Engine,
	publisher event.Publisher,
	locker LoanLocker,
	proofs ProofStore,
	cfg config.BusinessConfig,
	logger *slog.Logger,
) *Processor {
	forgiveness := decimal.Zero
	if v, ok := cfg.ForgivableRounding[cfg.DefaultCountry]; ok {
		forgiveness = decimal.NewFromFloat(v)
	}
	return &Processor{
		repo:        repo,
		engine:      engine,
		publisher:   publisher,
		locker:      locker,
		proofs:      proofs,
		forgiveness: forgiveness,
		logger:      logger.With("component", "PaymentProcessor"),
	}
}

// CreatePayment validates a payment request against the loan's ledger and
// records it as a movement with a negated amount. Reconciliation itself runs
// asynchronously: the published payment_created event triggers it.
func (p *Processor) CreatePayment(ctx context.Context, input CreatePaymentInput) (*loan.Movement, error) {
	l, err := p.repo.GetLoanByID(ctx, input.LoanID)
	if err != nil {
		monitoring.RecordPayment("failure_loan_lookup")
		return nil, fmt.Errorf("loading loan %d: %w", input.LoanID, err)
	}
	if l.Status != loan.StatusDisbursed {
		monitoring.RecordPayment("failure_not_disbursed")
		return nil, fmt.Errorf("%w: loan %d is %s, payments require DISBURSED", apperrors.ErrConflict, l.ID, l.Status)
	}

	minimum, err := p.engine.MinimumPaymentAmount(ctx, l.ID, input.PaymentDate)
	if err != nil {
		monitoring.RecordPayment("failure_internal")
		return nil, err
	}
	if !minimum.HasMovements() {
		monitoring.RecordPayment("failure_fully_paid")
		return nil, fmt.Errorf("%w: loan %d has nothing due", apperrors.ErrLoanFullyPaid, l.ID)
	}

	if input.Amount.LessThan(minimum.TotalAmount) {
		monitoring.RecordPayment("failure_below_minimum")
		return nil, fmt.Errorf("%w: amount %s is below the minimum %s",
			apperrors.ErrPaymentBelowMinimum, input.Amount, minimum.TotalAmount)
	}

	if input.Type != nil {
		if err := validateExplicitType(*input.Type, input.Amount, minimum.TotalAmount); err != nil {
			monitoring.RecordPayment("failure_type_mismatch")
			return nil, err
		}
	}

	total, err := p.engine.TotalPaymentAmount(ctx, l.ID, input.PaymentDate)
	if err != nil {
		monitoring.RecordPayment("failure_internal")
		return nil, err
	}
	if input.Amount.GreaterThan(total.TotalAmount.Add(p.forgiveness)) {
		monitoring.RecordPayment("failure_exceeds_total")
		return nil, fmt.Errorf("%w: amount %s exceeds the total due %s",
			apperrors.ErrPaymentExceedsTotal, input.Amount, total.TotalAmount)
	}

	paymentType := inferType(input.Type, input.Amount, minimum.TotalAmount)

	// Payments are debits against the loan, stored negated. A final payment
	// covering the full remainder is clamped to the exact total so rounding
	// dust never leaves a negative residual.
	stored := input.Amount.Neg()
	if input.Amount.GreaterThanOrEqual(total.TotalAmount) {
		stored = total.TotalAmount.Neg()
	}

	paymentDate := input.PaymentDate
	notProcessed := false
	movement := &loan.Movement{
		LoanID:       l.ID,
		Type:         paymentType,
		Amount:       stored,
		MovementDate: &paymentDate,
		Processed:    &notProcessed,
	}

	created, err := p.repo.CreateMovement(ctx, movement)
	if err != nil {
		monitoring.RecordPayment("failure_internal")
		return nil, fmt.Errorf("%w: failed to save payment: %v", apperrors.ErrInternalServer, err)
	}

	evt := event.PaymentCreatedEvent{
		MovementID:  created.ID,
		LoanID:      l.ID,
		Amount:      created.Amount.String(),
		PaymentDate: paymentDate,
		Timestamp:   time.Now(),
	}
	if err := p.publisher.PublishPaymentCreated(ctx, evt); err != nil {
		// The payment row exists; without the event nothing reconciles it.
		// Operators re-publish from the audit trail on this failure.
		p.logger.ErrorContext(ctx, "Failed to enqueue payment reconciliation",
			"movement_id", created.ID, "loan_id", l.ID, "error", err)
		monitoring.RecordPayment("failure_enqueue")
		return nil, fmt.Errorf("%w: payment %d saved but reconciliation could not be enqueued: %v",
			apperrors.ErrInternalServer, created.ID, err)
	}

	monitoring.RecordPayment("success")
	p.logger.InfoContext(ctx, "Payment created", "movement_id", created.ID, "loan_id", l.ID,
		"amount", created.Amount.String(), "type", paymentType)
	return created, nil
}

func validateExplicitType(t loan.MovementType, amount, minimum decimal.Decimal) error {
	switch t {
	case loan.MovementPayment:
		if !amount.Equal(minimum) {
			return fmt.Errorf("%w: PAYMENT requires the exact minimum %s, got %s",
				apperrors.ErrPaymentTypeMismatch, minimum, amount)
		}
	case loan.MovementTermReduction, loan.MovementAmountReduction:
		if !amount.GreaterThan(minimum) {
			return fmt.Errorf("%w: %s requires an amount above the minimum %s",
				apperrors.ErrPaymentTypeMismatch, t, minimum)
		}
	default:
		return fmt.Errorf("%w: %s is not a payment type", apperrors.ErrInvalidArgument, t)
	}
	return nil
}

func inferType(explicit *loan.MovementType, amount, minimum decimal.Decimal) loan.MovementType {
	if explicit != nil {
		return *explicit
	}
	if amount.GreaterThan(minimum) {
		return loan.MovementAmountReduction
	}
	return loan.MovementPayment
}

// ReconcilePayment applies a recorded payment against the ledger exactly
// once: it marks the covered installments and overdue charges paid and, on
// overpayment, supersedes the remaining installments with a re-amortized
// generation. The whole mutation runs in one transaction under both a
// per-loan lock and a row lock on the payment itself.
func (p *Processor) ReconcilePayment(ctx context.Context, movementID int64, proof *ProofFile) (err error) {
	started := time.Now()
	status := "failure"
	defer func() {
		monitoring.RecordReconciliation(status, time.Since(started))
	}()

	peek, err := p.repo.GetMovementByID(ctx, movementID)
	if err != nil {
		return fmt.Errorf("loading payment movement %d: %w", movementID, err)
	}
	if !isPaymentType(peek.Type) {
		return fmt.Errorf("%w: movement %d is %s, not a payment", apperrors.ErrInvalidArgument, movementID, peek.Type)
	}
	if peek.IsProcessed() {
		return fmt.Errorf("%w: movement %d", apperrors.ErrPaymentAlreadyProcessed, movementID)
	}

	release, err := p.locker.AcquireLoanLock(ctx, peek.LoanID)
	if err != nil {
		return fmt.Errorf("acquiring reconciliation lock for loan %d: %w", peek.LoanID, err)
	}
	defer release()

	l, err := p.repo.GetLoanByID(ctx, peek.LoanID)
	if err != nil {
		return fmt.Errorf("loading loan %d: %w", peek.LoanID, err)
	}

	tx, err := p.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}
	defer func() {
		if pnc := recover(); pnc != nil {
			_ = p.repo.RollbackTx(ctx, tx)
			panic(pnc)
		} else if err != nil {
			_ = p.repo.RollbackTx(ctx, tx)
		}
	}()

	pay, err := p.repo.GetPaymentForUpdate(ctx, tx, movementID)
	if err != nil {
		return fmt.Errorf("locking payment movement %d: %w", movementID, err)
	}
	if pay.IsProcessed() {
		return fmt.Errorf("%w: movement %d", apperrors.ErrPaymentAlreadyProcessed, movementID)
	}

	referenceDate := time.Now()
	if pay.MovementDate != nil {
		referenceDate = *pay.MovementDate
	}

	minimum, err := p.engine.MinimumPaymentAmount(ctx, l.ID, referenceDate)
	if err != nil {
		return err
	}

	paidAmount := pay.Amount.Abs()
	if minimum.HasMovements() && paidAmount.LessThan(minimum.TotalAmount) {
		// createPayment already enforced this; an inconsistent ledger at
		// reconciliation time must not half-apply the payment.
		return fmt.Errorf("%w: payment %s no longer covers the minimum %s for loan %d",
			apperrors.ErrPaymentBelowMinimum, paidAmount, minimum.TotalAmount, l.ID)
	}

	coveredIDs := movementIDs(minimum.Movements)
	if len(coveredIDs) > 0 {
		if err = p.repo.MarkMovementsPaidInTx(ctx, tx, coveredIDs); err != nil {
			return fmt.Errorf("marking covered movements paid: %w", err)
		}
	}

	comment := ""
	if paidAmount.GreaterThan(minimum.TotalAmount) {
		comment, err = p.applyOverpayment(ctx, tx, l, pay, minimum, paidAmount)
		if err != nil {
			return err
		}
	}

	unpaid, err := p.repo.CountUnpaidInstallmentsInTx(ctx, tx, l.ID)
	if err != nil {
		return fmt.Errorf("counting remaining installments: %w", err)
	}
	if unpaid == 0 {
		if err = p.repo.UpdateLoanStatusInTx(ctx, tx, l.ID, loan.StatusPaid); err != nil {
			return fmt.Errorf("marking loan %d paid: %w", l.ID, err)
		}
		p.logger.InfoContext(ctx, "Loan fully settled", "loan_id", l.ID)
	}

	if err = p.repo.MarkPaymentProcessedInTx(ctx, tx, movementID, comment); err != nil {
		return fmt.Errorf("marking payment processed: %w", err)
	}

	if err = p.repo.CommitTx(ctx, tx); err != nil {
		return fmt.Errorf("%w: could not commit reconciliation: %v", apperrors.ErrInternalServer, err)
	}

	status = "success"
	p.logger.InfoContext(ctx, "Payment reconciled", "movement_id", movementID, "loan_id", l.ID,
		"amount", paidAmount.String(), "covered_movements", len(coveredIDs))

	p.attachProof(ctx, l.ID, movementID, proof)
	return nil
}

// applyOverpayment distributes the excess over the minimum across the
// remaining installments. The old unpaid installments are superseded and a
// fresh generation is inserted; history is never edited in place.
func (p *Processor) applyOverpayment(ctx context.Context, tx pgx.Tx, l *loan.Loan, pay *loan.Movement, minimum *ledger.PaymentAmount, paidAmount decimal.Decimal) (string, error) {
	remaining, err := p.remainingInstallments(ctx, l.ID, minimum)
	if err != nil {
		return "", err
	}
	if len(remaining) == 0 {
		return "", nil
	}

	totalPrincipalDebt := decimal.Zero
	for _, inst := range remaining {
		totalPrincipalDebt = totalPrincipalDebt.Add(inst.Principal)
	}
	excess := paidAmount.Sub(minimum.TotalAmount)
	newPrincipalDebt := totalPrincipalDebt.Sub(excess)

	var replacements []loan.Movement
	var comment string
	if newPrincipalDebt.IsPositive() {
		switch pay.Type {
		case loan.MovementTermReduction:
			replacements = buildTermReduction(l, remaining, newPrincipalDebt)
			comment = fmt.Sprintf("re-amortized by term reduction: principal %s over %d installments",
				newPrincipalDebt, len(replacements))
		default:
			replacements, err = p.buildAmountReduction(ctx, l, remaining, minimum, newPrincipalDebt)
			if err != nil {
				return "", err
			}
			comment = fmt.Sprintf("re-amortized by installment amount reduction: principal %s over %d installments",
				newPrincipalDebt, len(replacements))
		}
	} else {
		comment = "overpayment settled all remaining principal"
	}

	if err := p.repo.SupersedeInstallmentsInTx(ctx, tx, movementIDs(remaining)); err != nil {
		return "", fmt.Errorf("superseding installments: %w", err)
	}
	if len(replacements) > 0 {
		if err := p.repo.CreateMovementsInTx(ctx, tx, l.ID, replacements); err != nil {
			return "", fmt.Errorf("inserting re-amortized installments: %w", err)
		}
	}

	p.logger.InfoContext(ctx, "Overpayment re-amortized", "loan_id", l.ID, "type", pay.Type,
		"excess", excess.String(), "new_principal_debt", newPrincipalDebt.String(),
		"installments_before", len(remaining), "installments_after", len(replacements))
	return comment, nil
}

// remainingInstallments returns the unpaid installments not covered by the
// minimum payment this cycle, ordered by due date.
func (p *Processor) remainingInstallments(ctx context.Context, loanID int64, minimum *ledger.PaymentAmount) ([]loan.Movement, error) {
	covered := make(map[int64]bool, len(minimum.Movements))
	for _, m := range minimum.Movements {
		covered[m.ID] = true
	}

	installments, err := p.repo.GetUnpaidInstallments(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("fetching remaining installments: %w", err)
	}

	remaining := make([]loan.Movement, 0, len(installments))
	for _, inst := range installments {
		if !covered[inst.ID] {
			remaining = append(remaining, inst)
		}
	}
	return remaining, nil
}

// buildTermReduction greedily consumes the reduced principal across the
// existing installments, keeping their due dates. The installment where the
// debt runs out becomes the final one with its interest recomputed; everything
// after it is dropped, shortening the term.
func buildTermReduction(l *loan.Loan, remaining []loan.Movement, newPrincipalDebt decimal.Decimal) []loan.Movement {
	gen := nextGeneration(remaining)
	monthlyRate := l.MonthlyRate()
	notPaid := false

	out := make([]loan.Movement, 0, len(remaining))
	debt := newPrincipalDebt
	for _, inst := range remaining {
		if debt.GreaterThan(inst.Principal) {
			debt = debt.Sub(inst.Principal)
			out = append(out, loan.Movement{
				LoanID:     l.ID,
				Type:       loan.MovementLoanInstallment,
				Amount:     inst.Amount,
				Interest:   inst.Interest,
				Principal:  inst.Principal,
				Balance:    debt,
				DueDate:    inst.DueDate,
				Paid:       &notPaid,
				Generation: gen,
			})
			continue
		}

		interest := debt.Mul(monthlyRate).Round(schedule.MoneyPrecision)
		out = append(out, loan.Movement{
			LoanID:     l.ID,
			Type:       loan.MovementLoanInstallment,
			Amount:     debt.Add(interest),
			Interest:   interest,
			Principal:  debt,
			Balance:    decimal.Zero,
			DueDate:    inst.DueDate,
			Paid:       &notPaid,
			Generation: gen,
		})
		break
	}
	return out
}

// buildAmountReduction discards the old due dates and re-amortizes the
// reduced principal over the same number of installments, anchored at the due
// date of the last installment settled this cycle.
func (p *Processor) buildAmountReduction(ctx context.Context, l *loan.Loan, remaining []loan.Movement, minimum *ledger.PaymentAmount, newPrincipalDebt decimal.Decimal) ([]loan.Movement, error) {
	anchor, ok := lastSettledInstallmentDueDate(minimum)
	if !ok {
		var err error
		anchor, err = p.repo.GetLatestPaidInstallmentDueDate(ctx, l.ID)
		if err != nil {
			return nil, fmt.Errorf("resolving re-amortization anchor date for loan %d: %w", l.ID, err)
		}
	}

	installments, err := schedule.ComputeSchedule(newPrincipalDebt, l.AnnualInterestRate, len(remaining), anchor)
	if err != nil {
		return nil, fmt.Errorf("re-amortizing loan %d: %w", l.ID, err)
	}

	gen := nextGeneration(remaining)
	notPaid := false
	out := make([]loan.Movement, 0, len(installments))
	for _, inst := range installments {
		out = append(out, loan.Movement{
			LoanID:     l.ID,
			Type:       loan.MovementLoanInstallment,
			Amount:     inst.Amount,
			Interest:   inst.Interest,
			Principal:  inst.Principal,
			Balance:    inst.Balance,
			DueDate:    inst.DueDate,
			Paid:       &notPaid,
			Generation: gen,
		})
	}
	return out, nil
}

func lastSettledInstallmentDueDate(minimum *ledger.PaymentAmount) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, m := range minimum.Movements {
		if m.Type != loan.MovementLoanInstallment {
			continue
		}
		if !found || m.DueDate.After(latest) {
			latest = m.DueDate
			found = true
		}
	}
	return latest, found
}

// attachProof uploads the proof document after the financial state is
// committed. Upload failures are logged and never roll the payment back.
func (p *Processor) attachProof(ctx context.Context, loanID, movementID int64, proof *ProofFile) {
	if proof == nil || p.proofs == nil {
		return
	}
	path := fmt.Sprintf("loans/%d/payments/%d/%s", loanID, movementID, proof.Name)
	url, err := p.proofs.Upload(ctx, proof.ContentBase64, path)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to upload payment proof", "movement_id", movementID, "error", err)
		return
	}
	if err := p.repo.UpdateMovementProofURL(ctx, movementID, url); err != nil {
		p.logger.ErrorContext(ctx, "Failed to persist payment proof URL", "movement_id", movementID, "error", err)
	}
}

func isPaymentType(t loan.MovementType) bool {
	switch t {
	case loan.MovementPayment, loan.MovementTermReduction, loan.MovementAmountReduction:
		return true
	}
	return false
}

func movementIDs(movements []loan.Movement) []int64 {
	ids := make([]int64, 0, len(movements))
	for _, m := range movements {
		ids = append(ids, m.ID)
	}
	return ids
}

func nextGeneration(movements []loan.Movement) int {
	maxGen := 0
	for _, m := range movements {
		if m.Generation > maxGen {
			maxGen = m.Generation
		}
	}
	return maxGen + 1
}
