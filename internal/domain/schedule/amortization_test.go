package schedule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tolerance = decimal.NewFromFloat(0.001)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeScheduleReferenceLoan(t *testing.T) {
	// 1,000,000 at 42% annual over 6 periods, disbursed 2024-01-01.
	principal := decimal.NewFromInt(1_000_000)
	rate := decimal.NewFromFloat(0.42)

	installments, err := ComputeSchedule(principal, rate, 6, date(2024, time.January, 1))
	require.NoError(t, err)
	require.Len(t, installments, 6)

	// C = P * i / (1 - (1+i)^-6) with i = 0.035.
	assert.True(t, installments[0].Amount.Sub(decimal.NewFromFloat(187668.2)).Abs().LessThan(decimal.NewFromInt(1)),
		"unexpected constant payment %s", installments[0].Amount)

	assert.Equal(t, date(2024, time.January, 31), installments[0].DueDate)
	assert.Equal(t, date(2024, time.June, 29), installments[5].DueDate)

	sum := decimal.Zero
	for _, inst := range installments {
		sum = sum.Add(inst.Principal)
	}
	assert.True(t, sum.Sub(principal).Abs().LessThanOrEqual(tolerance),
		"principal sum %s does not match %s", sum, principal)
	assert.True(t, installments[5].Balance.IsZero(), "final balance %s", installments[5].Balance)
}

func TestComputeSchedulePrincipalConservation(t *testing.T) {
	cases := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		term      int
	}{
		{"small short", decimal.NewFromInt(1000), decimal.NewFromFloat(0.12), 6},
		{"large long", decimal.NewFromInt(50_000_000), decimal.NewFromFloat(0.36), 36},
		{"awkward principal", decimal.NewFromFloat(999999.999), decimal.NewFromFloat(0.275), 18},
		{"low rate", decimal.NewFromInt(2_500_000), decimal.NewFromFloat(0.01), 24},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			installments, err := ComputeSchedule(tc.principal, tc.rate, tc.term, date(2024, time.March, 15))
			require.NoError(t, err)
			require.Len(t, installments, tc.term)

			sum := decimal.Zero
			for _, inst := range installments {
				sum = sum.Add(inst.Principal)
				assert.True(t, inst.Amount.Equal(inst.Interest.Add(inst.Principal)))
			}
			assert.True(t, sum.Sub(tc.principal).Abs().LessThanOrEqual(tolerance))
			assert.True(t, installments[tc.term-1].Balance.IsZero())
		})
	}
}

func TestComputeScheduleDueDateSpacing(t *testing.T) {
	ref := date(2024, time.February, 29)
	installments, err := ComputeSchedule(decimal.NewFromInt(10000), decimal.NewFromFloat(0.2), 12, ref)
	require.NoError(t, err)

	assert.Equal(t, ref.AddDate(0, 0, 30), installments[0].DueDate)
	for j := 1; j < len(installments); j++ {
		assert.Equal(t, installments[j-1].DueDate.AddDate(0, 0, 30), installments[j].DueDate,
			"installment %d not 30 days after predecessor", j)
	}
}

func TestComputeScheduleBalancesDecrease(t *testing.T) {
	installments, err := ComputeSchedule(decimal.NewFromInt(120000), decimal.NewFromFloat(0.3), 12, date(2024, time.January, 1))
	require.NoError(t, err)

	prev := decimal.NewFromInt(120000)
	for _, inst := range installments {
		assert.True(t, inst.Balance.LessThan(prev), "balance must strictly decrease")
		prev = inst.Balance
	}
}

func TestComputeScheduleZeroRate(t *testing.T) {
	installments, err := ComputeSchedule(decimal.NewFromInt(6000), decimal.Zero, 6, date(2024, time.January, 1))
	require.NoError(t, err)
	require.Len(t, installments, 6)

	for _, inst := range installments {
		assert.True(t, inst.Interest.IsZero())
		assert.True(t, inst.Principal.Equal(decimal.NewFromInt(1000)))
	}
	assert.True(t, installments[5].Balance.IsZero())
}

func TestComputeScheduleInvalidInputs(t *testing.T) {
	_, err := ComputeSchedule(decimal.NewFromInt(1000), decimal.NewFromFloat(0.1), 0, date(2024, time.January, 1))
	assert.Error(t, err)

	_, err = ComputeSchedule(decimal.Zero, decimal.NewFromFloat(0.1), 6, date(2024, time.January, 1))
	assert.Error(t, err)

	_, err = ComputeSchedule(decimal.NewFromInt(1000), decimal.NewFromFloat(-0.1), 6, date(2024, time.January, 1))
	assert.Error(t, err)
}
