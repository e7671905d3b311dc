package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accrualVault(balance, rateBps uint64, last time.Time) *model.CreditVault {
	return &model.CreditVault{
		OutstandingBalance: balance,
		InterestRateBps:    rateBps,
		LastAccrualTime:    last,
		Active:             true,
	}
}

func TestAccrueInterestFormula(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		balance uint64
		rateBps uint64
		elapsed time.Duration
		want    uint64
	}{
		{"one year at 2%", 1_000_000_000, 200, 365 * 24 * time.Hour, 20_000_000},
		{"half year at 2%", 1_000_000_000, 200, 365 * 12 * time.Hour, 10_000_000},
		{"one day at 20% cap", 1_000_000_000, 2_000, 24 * time.Hour, 547_945},
		{"one second rounds to zero", 1_000_000, 200, time.Second, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := accrualVault(tc.balance, tc.rateBps, start)
			got, err := AccrueInterest(v, start.Add(tc.elapsed))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.balance+tc.want, v.OutstandingBalance)
			assert.Equal(t, start.Add(tc.elapsed), v.LastAccrualTime)
		})
	}
}

func TestAccrueInterestMonotonic(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := accrualVault(123_456_789, 700, start)

	prev := v.OutstandingBalance
	for _, d := range []time.Duration{0, time.Second, time.Minute, time.Hour, 30 * 24 * time.Hour} {
		_, err := AccrueInterest(v, v.LastAccrualTime.Add(d))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v.OutstandingBalance, prev)
		prev = v.OutstandingBalance
	}
}

func TestAccrueInterestZeroBalanceBumpsClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := accrualVault(0, 200, start)
	now := start.Add(90 * 24 * time.Hour)

	got, err := AccrueInterest(v, now)
	require.NoError(t, err)
	assert.Zero(t, got)
	assert.Zero(t, v.OutstandingBalance)
	assert.Equal(t, now, v.LastAccrualTime, "idle vaults must not accrue retroactively on first draw")
}

func TestAccrueInterestBackwardsClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := accrualVault(1_000_000_000, 200, start)

	got, err := AccrueInterest(v, start.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, got)
	assert.Equal(t, start, v.LastAccrualTime)
}

func TestAccrueInterestCompoundsAcrossCalls(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	single := accrualVault(1_000_000_000, 2_000, start)
	split := accrualVault(1_000_000_000, 2_000, start)

	_, err := AccrueInterest(single, start.Add(2*365*24*time.Hour))
	require.NoError(t, err)

	_, err = AccrueInterest(split, start.Add(365*24*time.Hour))
	require.NoError(t, err)
	_, err = AccrueInterest(split, start.Add(2*365*24*time.Hour))
	require.NoError(t, err)

	// two one-year accruals compound, a single two-year accrual does not
	assert.Greater(t, split.OutstandingBalance, single.OutstandingBalance)
}

func TestAccrueInterestOverflowIsFatal(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v := accrualVault(math.MaxUint64-10, 2_000, start)

	before := *v
	_, err := AccrueInterest(v, start.Add(10*365*24*time.Hour))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrOverflow))
	assert.Equal(t, before.OutstandingBalance, v.OutstandingBalance, "overflow must not wrap")
}

func TestDynamicRateBps(t *testing.T) {
	assert.Equal(t, uint64(200), DynamicRateBps(0, 200))
	assert.Equal(t, uint64(450), DynamicRateBps(5_000, 200))
	assert.Equal(t, uint64(700), DynamicRateBps(10_000, 200))
	// capped at the protocol maximum
	assert.Equal(t, model.MaxInterestRateBps, DynamicRateBps(100_000, 1_900))
}
