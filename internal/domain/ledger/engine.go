// Package ledger derives payment figures from a loan's movement history: the
// minimum a borrower must pay at a reference date to stay current, and the
// total needed to settle the loan in full.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"lending-engine/internal/domain/loan"
)

// upcomingWindowDays is how far ahead of the reference date an installment is
// already counted into the minimum payment.
const upcomingWindowDays = 5

// PaymentAmount aggregates the movements a payment must cover.
type PaymentAmount struct {
	TotalAmount     decimal.Decimal
	Interest        decimal.Decimal
	Principal       decimal.Decimal
	OverdueInterest decimal.Decimal
	PaymentDate     time.Time
	Movements       []loan.Movement
}

// HasMovements reports whether anything is owed at the reference date.
func (p *PaymentAmount) HasMovements() bool {
	return len(p.Movements) > 0
}

type Engine struct {
	repo   loan.Repository
	logger *slog.Logger
}

func NewEngine(repo loan.Repository, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, logger: logger.With("component", "LedgerEngine")}
}

// MinimumPaymentAmount computes the smallest amount due at referenceDate: the
// unpaid installments that are due or due within the next five days, plus any
// overdue interest charges accrued up to the reference date.
func (e *Engine) MinimumPaymentAmount(ctx context.Context, loanID int64, referenceDate time.Time) (*PaymentAmount, error) {
	installments, err := e.repo.GetUnpaidInstallments(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("fetching unpaid installments for loan %d: %w", loanID, err)
	}
	if len(installments) == 0 {
		e.logger.DebugContext(ctx, "No unpaid installments, nothing due", "loan_id", loanID)
		return &PaymentAmount{}, nil
	}

	ref := NormalizeDate(referenceDate)
	selected := make([]loan.Movement, 0, len(installments))
	for _, inst := range installments {
		due := NormalizeDate(inst.DueDate)
		if !due.After(ref) || DaysBetween(ref, due) < upcomingWindowDays {
			selected = append(selected, inst)
		}
	}

	overdue, err := e.repo.GetUnpaidOverdueInterest(ctx, loanID, ref)
	if err != nil {
		return nil, fmt.Errorf("fetching overdue interest for loan %d: %w", loanID, err)
	}

	merged := mergeByIdentity(selected, overdue)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].DueDate.Equal(merged[j].DueDate) {
			return merged[i].ID < merged[j].ID
		}
		return merged[i].DueDate.Before(merged[j].DueDate)
	})

	result := &PaymentAmount{Movements: merged}
	for _, m := range merged {
		result.TotalAmount = result.TotalAmount.Add(m.Amount)
		result.Interest = result.Interest.Add(m.Interest)
		result.Principal = result.Principal.Add(m.Principal)
		if m.Type == loan.MovementOverdueInterest {
			result.OverdueInterest = result.OverdueInterest.Add(m.Amount)
		}
	}
	if len(merged) > 0 {
		result.PaymentDate = merged[0].DueDate
	}

	e.logger.DebugContext(ctx, "Computed minimum payment amount",
		"loan_id", loanID, "total", result.TotalAmount.String(), "movements", len(merged))
	return result, nil
}

// TotalPaymentAmount computes the amount needed to settle the loan in full:
// the minimum payment plus the principal of every remaining unpaid
// installment. Future installments contribute principal only, since their
// interest has not accrued yet.
func (e *Engine) TotalPaymentAmount(ctx context.Context, loanID int64, referenceDate time.Time) (*PaymentAmount, error) {
	minimum, err := e.MinimumPaymentAmount(ctx, loanID, referenceDate)
	if err != nil {
		return nil, err
	}

	installments, err := e.repo.GetUnpaidInstallments(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("fetching unpaid installments for loan %d: %w", loanID, err)
	}

	included := make(map[int64]bool, len(minimum.Movements))
	for _, m := range minimum.Movements {
		included[m.ID] = true
	}

	total := &PaymentAmount{
		TotalAmount:     minimum.TotalAmount,
		Interest:        minimum.Interest,
		Principal:       minimum.Principal,
		OverdueInterest: minimum.OverdueInterest,
		PaymentDate:     minimum.PaymentDate,
		Movements:       minimum.Movements,
	}
	for _, inst := range installments {
		if included[inst.ID] {
			continue
		}
		total.TotalAmount = total.TotalAmount.Add(inst.Principal)
		total.Principal = total.Principal.Add(inst.Principal)
		total.Movements = append(total.Movements, inst)
	}

	return total, nil
}

func mergeByIdentity(a, b []loan.Movement) []loan.Movement {
	seen := make(map[int64]bool, len(a)+len(b))
	merged := make([]loan.Movement, 0, len(a)+len(b))
	for _, m := range append(a, b...) {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		merged = append(merged, m)
	}
	return merged
}

// NormalizeDate truncates to a calendar date in the timestamp's location.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b; negative when
// b precedes a. The difference is taken on UTC dates so a DST transition in
// the inputs' zone cannot shift the count.
func DaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad) / (24 * time.Hour))
}
