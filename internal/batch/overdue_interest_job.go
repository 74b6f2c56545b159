// Package batch holds the scheduled jobs. The overdue interest job runs daily
// and accrues per-day late charges on disbursed loans.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lending-engine/internal/domain/ledger"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/schedule"
	"lending-engine/internal/event"
	"lending-engine/internal/infrastructure/monitoring"

	"github.com/shopspring/decimal"
)

const defaultOverdueDayCount = 360

type OverdueInterestJob struct {
	loanRepo  loan.Repository
	engine    *ledger.Engine
	publisher event.Publisher
	timezone  *time.Location
	dayCount  int64
	logger    *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewOverdueInterestJob(
	loanRepo loan.Repository,
	engine *ledger.Engine,
	publisher event.Publisher,
	timezone *time.Location,
	logger *slog.Logger,
) *OverdueInterestJob {
	if loanRepo == nil || engine == nil || publisher == nil || logger == nil {
		panic("OverdueInterestJob dependencies cannot be nil")
	}
	if timezone == nil {
		timezone = time.UTC
	}
	return &OverdueInterestJob{
		loanRepo:  loanRepo,
		engine:    engine,
		publisher: publisher,
		timezone:  timezone,
		dayCount:  defaultOverdueDayCount,
		logger:    logger.With("job", "OverdueInterestAccrual"),
		now:       time.Now,
	}
}

// WithDayCount overrides the annual day-count basis used to derive the daily
// overdue rate.
func (j *OverdueInterestJob) WithDayCount(days int) *OverdueInterestJob {
	if days > 0 {
		j.dayCount = int64(days)
	}
	return j
}

// WithClock overrides the job's time source. Tests pin the reference date
// with it.
func (j *OverdueInterestJob) WithClock(now func() time.Time) *OverdueInterestJob {
	j.now = now
	return j
}

// Run accrues overdue interest for every disbursed loan: one OVERDUE_INTEREST
// movement per loan per overdue calendar day. The same-day existence check
// makes a second run on the same day a no-op.
func (j *OverdueInterestJob) Run(ctx context.Context) error {
	startTime := time.Now()
	referenceDate := ledger.NormalizeDate(j.now().In(j.timezone))
	j.logger.InfoContext(ctx, "Starting daily overdue interest accrual job.",
		slog.Time("reference_date", referenceDate))

	loans, err := j.loanRepo.ListLoansByStatus(ctx, loan.StatusDisbursed)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list disbursed loans, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to list disbursed loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched disbursed loans.", slog.Int("count", len(loans)))

	var chargedLoanIDs, dueSoonLoanIDs []int64
	var totalCharges, errorCount int

	for _, l := range loans {
		logCtx := j.logger.With(slog.Int64("loanID", l.ID))

		created, dueSoon, accrErr := j.accrueLoan(ctx, l, referenceDate)
		if accrErr != nil {
			logCtx.ErrorContext(ctx, "Failed to accrue overdue interest for loan", slog.Any("error", accrErr))
			errorCount++
			continue
		}
		if dueSoon {
			dueSoonLoanIDs = append(dueSoonLoanIDs, l.ID)
		}
		if created == 0 {
			logCtx.DebugContext(ctx, "No overdue interest to accrue.")
			continue
		}

		logCtx.InfoContext(ctx, "Accrued overdue interest charges.", slog.Int("charges", created))
		chargedLoanIDs = append(chargedLoanIDs, l.ID)
		totalCharges += created
	}

	monitoring.RecordOverdueCharges(totalCharges)

	if len(chargedLoanIDs) > 0 {
		evt := event.LatePaymentNotificationEvent{
			LoanIDs:       chargedLoanIDs,
			ReferenceDate: referenceDate.Format(time.DateOnly),
			Timestamp:     time.Now(),
		}
		if pubErr := j.publisher.PublishLatePaymentNotifications(ctx, evt); pubErr != nil {
			j.logger.ErrorContext(ctx, "Failed to publish late payment notifications", slog.Any("error", pubErr))
			errorCount++
		}
	}

	if len(dueSoonLoanIDs) > 0 {
		evt := event.EarlyPaymentNotificationEvent{
			LoanIDs:       dueSoonLoanIDs,
			ReferenceDate: referenceDate.Format(time.DateOnly),
			Timestamp:     time.Now(),
		}
		if pubErr := j.publisher.PublishEarlyPaymentNotifications(ctx, evt); pubErr != nil {
			j.logger.ErrorContext(ctx, "Failed to publish early payment notifications", slog.Any("error", pubErr))
			errorCount++
		}
	}

	summaryLog := j.logger.With(
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("loans_checked", len(loans)),
		slog.Int("loans_charged", len(chargedLoanIDs)),
		slog.Int("charges_created", totalCharges),
		slog.Int("errors_encountered", errorCount),
	)
	if errorCount > 0 {
		summaryLog.WarnContext(ctx, "Overdue interest accrual job finished with errors.")
		return fmt.Errorf("job completed with %d errors", errorCount)
	}
	summaryLog.InfoContext(ctx, "Overdue interest accrual job finished successfully.")
	return nil
}

// accrueLoan creates the missing per-day charges for one loan and returns how
// many it persisted. The second return reports a loan whose next installment
// falls inside the look-ahead window with nothing yet past due, so the caller
// can fan out an early payment reminder instead.
func (j *OverdueInterestJob) accrueLoan(ctx context.Context, l *loan.Loan, referenceDate time.Time) (int, bool, error) {
	minimum, err := j.engine.MinimumPaymentAmount(ctx, l.ID, referenceDate)
	if err != nil {
		return 0, false, fmt.Errorf("computing minimum payment: %w", err)
	}
	if !minimum.HasMovements() {
		return 0, false, nil
	}

	dueSoon := true
	for _, m := range minimum.Movements {
		if ledger.NormalizeDate(m.DueDate.In(j.timezone)).Before(referenceDate) {
			dueSoon = false
			break
		}
	}

	existingDates, err := j.loanRepo.GetOverdueChargeDates(ctx, l.ID)
	if err != nil {
		return 0, false, fmt.Errorf("fetching existing overdue charge dates: %w", err)
	}
	charged := make(map[time.Time]bool, len(existingDates))
	for _, d := range existingDates {
		charged[ledger.NormalizeDate(d.In(j.timezone))] = true
	}

	dailyRate := l.AnnualOverdueRate.Div(decimal.NewFromInt(j.dayCount))
	notPaid := false
	var charges []loan.Movement

	for _, m := range minimum.Movements {
		if m.Type != loan.MovementLoanInstallment {
			continue
		}
		dueDate := ledger.NormalizeDate(m.DueDate.In(j.timezone))
		if !dueDate.Before(referenceDate) {
			continue
		}

		daysOverdue := ledger.DaysBetween(dueDate, referenceDate)
		charge := m.Principal.Mul(dailyRate).Round(schedule.MoneyPrecision)
		for d := 1; d <= daysOverdue; d++ {
			chargeDate := dueDate.AddDate(0, 0, d)
			if chargeDate.After(referenceDate) || charged[chargeDate] {
				continue
			}
			charged[chargeDate] = true
			charges = append(charges, loan.Movement{
				LoanID:  l.ID,
				Type:    loan.MovementOverdueInterest,
				Amount:  charge,
				DueDate: chargeDate,
				Paid:    &notPaid,
			})
		}
	}

	if len(charges) == 0 {
		return 0, dueSoon, nil
	}
	if err := j.loanRepo.CreateMovements(ctx, l.ID, charges); err != nil {
		return 0, false, fmt.Errorf("persisting overdue charges: %w", err)
	}
	return len(charges), false, nil
}
