package ledger

import (
	"context"

	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/pkg/apperrors"
	"github.com/cresca-pay/vaultgate/internal/pkg/logger"
	"github.com/cresca-pay/vaultgate/internal/pkg/metrics"
)

// AuthorizePayment runs the full authorization sequence for a single
// payment, holding the vault lock throughout:
//
//  1. paused check (hard failure, vault untouched)
//  2. active check (hard failure)
//  3. daily window rollover
//  4. interest accrual — runs before the credit check so the check sees the
//     interest-inclusive exposure
//  5. credit-limit check — soft decline; the accrual from step 4 commits
//  6. daily-limit check — hard failure; nothing commits, including steps 3-4
//  7. commit: balance, daily counter, payment stats
//
// The asymmetry between 5 and 6 is deliberate and mirrors observed relayer
// behavior: credit exhaustion is a routine merchant-facing decline, a daily
// cap breach is handled as a fraud signal.
//
// The sequence mutates a scratch copy of the vault and publishes it only on
// approval or soft decline, which is what makes step 6's rollback total.
func (e *Engine) AuthorizePayment(ctx context.Context, owner string, vaultID uint64, merchant string, amount uint64) (*model.AuthorizationResult, error) {
	if amount == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidAmount, "amount must be greater than zero", nil)
	}

	// Step 1: circuit breaker, read at call start.
	if err := e.checkOperational(); err != nil {
		metrics.DeclinesTotal.WithLabelValues("protocol_paused").Inc()
		return nil, err
	}
	entry, err := e.entry(owner, vaultID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// Step 2
	if !entry.state.Active {
		metrics.DeclinesTotal.WithLabelValues("vault_inactive").Inc()
		return nil, apperrors.New(apperrors.ErrVaultInactive, "vault is inactive", nil)
	}

	now := e.now()
	next := entry.state

	// Step 3
	next.RollDailyWindow(now)

	// Step 4
	interest, err := AccrueInterest(&next, now)
	if err != nil {
		metrics.DeclinesTotal.WithLabelValues("overflow").Inc()
		return nil, err
	}

	// Step 5: credit-limit check. A breach is a decline result, not an
	// error, and the interest accrued above still commits.
	newOutstanding, ok := model.AddChecked(next.OutstandingBalance, amount)
	if !ok {
		metrics.DeclinesTotal.WithLabelValues("overflow").Inc()
		return nil, apperrors.New(apperrors.ErrOverflow, "outstanding balance overflow", nil)
	}
	if newOutstanding > next.CreditLimit {
		entry.state = next
		if interest > 0 {
			metrics.InterestAccrued.Add(float64(interest))
			e.updateAggregates(ctx, func(p *model.ProtocolState) {
				p.TotalOutstanding = satAdd(p.TotalOutstanding, interest)
				p.TotalInterestCollected = satAdd(p.TotalInterestCollected, interest)
			})
		}
		e.persistVault(ctx, next)

		metrics.PaymentsTotal.WithLabelValues("declined").Inc()
		metrics.DeclinesTotal.WithLabelValues(string(model.DeclineInsufficientCredit)).Inc()
		logger.Info("payment declined",
			"vault", next.Key(), "merchant", merchant, "amount", amount,
			"reason", model.DeclineInsufficientCredit, "available", next.AvailableCredit())
		return &model.AuthorizationResult{
			Approved:        false,
			Reason:          model.DeclineInsufficientCredit,
			NewOutstanding:  next.OutstandingBalance,
			AvailableCredit: next.AvailableCredit(),
			InterestAccrued: interest,
		}, nil
	}

	// Step 6: daily cap. A breach aborts the whole call — the scratch copy
	// is discarded, so the rollover and accrual above never happened.
	newDaily, ok := model.AddChecked(next.DailySpent, amount)
	if !ok {
		metrics.DeclinesTotal.WithLabelValues("overflow").Inc()
		return nil, apperrors.New(apperrors.ErrOverflow, "daily spend overflow", nil)
	}
	if newDaily > next.DailyLimit {
		metrics.PaymentsTotal.WithLabelValues("rejected").Inc()
		metrics.DeclinesTotal.WithLabelValues(string(model.DeclineDailyLimit)).Inc()
		logger.Warn("payment rejected: daily limit",
			"vault", next.Key(), "merchant", merchant, "amount", amount,
			"daily_spent", next.DailySpent, "daily_limit", next.DailyLimit)
		return nil, apperrors.Newf(apperrors.ErrDailyLimitExceeded,
			"daily limit exceeded: spent %d of %d, requested %d", next.DailySpent, next.DailyLimit, amount)
	}

	// Step 7: commit.
	next.OutstandingBalance = newOutstanding
	next.DailySpent = newDaily
	next.TotalPayments++
	next.TotalPaymentVolume = satAdd(next.TotalPaymentVolume, amount)
	entry.state = next

	if interest > 0 {
		metrics.InterestAccrued.Add(float64(interest))
	}
	e.updateAggregates(ctx, func(p *model.ProtocolState) {
		p.TotalOutstanding = satAdd(p.TotalOutstanding, satAdd(interest, amount))
		p.TotalInterestCollected = satAdd(p.TotalInterestCollected, interest)
	})
	e.persistVault(ctx, next)

	metrics.PaymentsTotal.WithLabelValues("approved").Inc()
	logger.Info("payment approved",
		"vault", next.Key(), "merchant", merchant, "amount", amount,
		"outstanding", next.OutstandingBalance, "available", next.AvailableCredit(),
		"utilization_bps", next.UtilizationBps())
	return &model.AuthorizationResult{
		Approved:        true,
		NewOutstanding:  next.OutstandingBalance,
		AvailableCredit: next.AvailableCredit(),
		InterestAccrued: interest,
	}, nil
}
