package ledger

import (
	"math/bits"
	"time"

	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/pkg/apperrors"
)

// AccrueInterest adds simple pro-rata interest to the vault's outstanding
// balance and advances LastAccrualTime to now:
//
//	interest = outstanding * rateBps * elapsedSeconds / (10000 * secondsPerYear)
//
// Non-compounding within a single call, but compounding across calls because
// each accrual folds into the base of the next. Returns the interest added.
// Overflow is fatal; nothing is wrapped silently.
func AccrueInterest(v *model.CreditVault, now time.Time) (uint64, error) {
	if v.OutstandingBalance == 0 {
		v.LastAccrualTime = now
		return 0, nil
	}
	elapsed := now.Sub(v.LastAccrualTime)
	if elapsed <= 0 {
		return 0, nil
	}
	seconds := uint64(elapsed / time.Second)
	if seconds == 0 {
		return 0, nil
	}

	// rateBps * seconds fits comfortably in 64 bits for any realistic
	// elapsed time; guard anyway.
	rateSecondsHi, rateSeconds := bits.Mul64(v.InterestRateBps, seconds)
	if rateSecondsHi != 0 {
		return 0, apperrors.New(apperrors.ErrOverflow, "interest accrual overflow", nil)
	}

	// 128-bit numerator, single 64-bit denominator.
	hi, lo := bits.Mul64(v.OutstandingBalance, rateSeconds)
	denom := model.BasisPoints * model.SecondsPerYear
	if hi >= denom {
		// quotient would not fit in 64 bits
		return 0, apperrors.New(apperrors.ErrOverflow, "interest accrual overflow", nil)
	}
	interest, _ := bits.Div64(hi, lo, denom)

	newBalance, ok := model.AddChecked(v.OutstandingBalance, interest)
	if !ok {
		return 0, apperrors.New(apperrors.ErrOverflow, "outstanding balance overflow", nil)
	}
	v.OutstandingBalance = newBalance
	v.InterestPaid = satAdd(v.InterestPaid, interest)
	v.LastAccrualTime = now
	return interest, nil
}

// DynamicRateBps is the linear utilization-linked rate model:
// rate = base + utilization * 5%, capped at the protocol maximum. Applied
// only through an explicit admin refresh, never silently during accrual.
func DynamicRateBps(utilizationBps, baseRateBps uint64) uint64 {
	variable := utilizationBps * 500 / model.BasisPoints
	rate := baseRateBps + variable
	if rate > model.MaxInterestRateBps {
		return model.MaxInterestRateBps
	}
	return rate
}
