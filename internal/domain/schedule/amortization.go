// Package schedule computes French (constant-payment) amortization schedules.
// It is pure: no persistence, no clock, no logging.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lending-engine/internal/pkg/apperrors"
)

// MoneyPrecision is the decimal precision of every persisted monetary column.
const MoneyPrecision = 3

// PeriodDays is the fixed installment spacing. Periods are 30 days, not
// calendar months.
const PeriodDays = 30

type Installment struct {
	Order     int
	Amount    decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
	Balance   decimal.Decimal
	DueDate   time.Time
}

var (
	one    = decimal.NewFromInt(1)
	twelve = decimal.NewFromInt(12)
)

// ComputeSchedule amortizes principal over termMonths fixed 30-day periods at
// the given annual rate. Each monetary field is rounded half-up to
// MoneyPrecision before being used downstream, so the figures match what gets
// persisted. The final installment absorbs the rounding residual and always
// closes the balance at exactly zero.
//
// A zero annual rate yields equal-principal, zero-interest installments.
func ComputeSchedule(principal, annualRate decimal.Decimal, termMonths int, referenceDate time.Time) ([]Installment, error) {
	if termMonths <= 0 {
		return nil, fmt.Errorf("%w: term months must be positive", apperrors.ErrInvalidArgument)
	}
	if !principal.IsPositive() {
		return nil, fmt.Errorf("%w: principal must be positive", apperrors.ErrInvalidArgument)
	}
	if annualRate.IsNegative() {
		return nil, fmt.Errorf("%w: annual rate cannot be negative", apperrors.ErrInvalidArgument)
	}

	n := decimal.NewFromInt(int64(termMonths))
	monthlyRate := annualRate.Div(twelve)

	var payment decimal.Decimal
	if annualRate.IsZero() {
		payment = principal.Div(n).Round(MoneyPrecision)
	} else {
		// C = P * i * (1+i)^n / ((1+i)^n - 1), the annuity formula rearranged
		// to avoid a negative exponent.
		factor := one.Add(monthlyRate).Pow(n)
		payment = principal.Mul(monthlyRate).Mul(factor).Div(factor.Sub(one)).Round(MoneyPrecision)
	}

	installments := make([]Installment, 0, termMonths)
	balance := principal
	for j := 0; j < termMonths; j++ {
		interest := balance.Mul(monthlyRate).Round(MoneyPrecision)

		var principalPart decimal.Decimal
		if j == termMonths-1 {
			principalPart = balance
		} else {
			principalPart = payment.Sub(interest)
		}

		balance = balance.Sub(principalPart)
		installments = append(installments, Installment{
			Order:     j,
			Amount:    interest.Add(principalPart),
			Interest:  interest,
			Principal: principalPart,
			Balance:   balance,
			DueDate:   referenceDate.AddDate(0, 0, PeriodDays*(j+1)),
		})
	}

	return installments, nil
}
