package ledger

import (
	"context"

	"github.com/cresca-pay/vaultgate/internal/model"
	"github.com/cresca-pay/vaultgate/internal/pkg/apperrors"
	"github.com/cresca-pay/vaultgate/internal/pkg/logger"
)

// InitializeVault creates a credit vault for (owner, vaultID). The vault
// starts empty: zero collateral, zero credit limit, active. Risk parameters
// are copied from the protocol defaults and adjustable per vault afterwards.
func (e *Engine) InitializeVault(ctx context.Context, owner string, vaultID uint64) (*model.CreditVault, error) {
	if owner == "" {
		return nil, apperrors.NewInvalidRequest("owner must not be empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.protocol == nil {
		return nil, apperrors.New(apperrors.ErrProtocolNotInitialized, "protocol not initialized", nil)
	}
	if e.protocol.Paused {
		return nil, apperrors.New(apperrors.ErrProtocolPaused, "protocol is paused", nil)
	}
	key := model.VaultKey(owner, vaultID)
	if _, exists := e.vaults[key]; exists {
		return nil, apperrors.Newf(apperrors.ErrVaultExists, "vault %s already exists", key)
	}
	if e.perOwner[owner] >= model.MaxVaultsPerOwner {
		return nil, apperrors.Newf(apperrors.ErrVaultLimitReached, "owner %s already has %d vaults", owner, model.MaxVaultsPerOwner)
	}

	now := e.now()
	vault := model.CreditVault{
		Owner:            owner,
		VaultID:          vaultID,
		LTVBps:           e.protocol.DefaultLTVBps,
		InterestRateBps:  e.protocol.BaseInterestRateBps,
		DailyLimit:       e.defaultDailyLimit,
		DailyWindowStart: now,
		LastAccrualTime:  now,
		Active:           true,
		CreatedAt:        now,
	}
	e.vaults[key] = &vaultEntry{state: vault}
	e.perOwner[owner]++

	e.protocol.TotalVaults++
	e.protocol.LastUpdate = now
	e.refreshGauges()
	protocolSnap := *e.protocol

	e.persistVault(ctx, vault)
	e.persistProtocol(ctx, &protocolSnap)

	logger.Info("vault created", "vault", key, "ltv_bps", vault.LTVBps, "rate_bps", vault.InterestRateBps)
	return &vault, nil
}

// DepositCollateral moves collateral into custody and recomputes the credit
// limit. All ledger validation happens before the custody transfer so a
// rejected deposit never moves tokens.
func (e *Engine) DepositCollateral(ctx context.Context, owner string, vaultID, amount uint64) (*model.CreditVault, error) {
	if amount == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidAmount, "amount must be greater than zero", nil)
	}
	if amount < model.MinCollateral {
		return nil, apperrors.Newf(apperrors.ErrInsufficientCollateral, "deposit %d below minimum %d", amount, model.MinCollateral)
	}
	if err := e.checkOperational(); err != nil {
		return nil, err
	}
	entry, err := e.entry(owner, vaultID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.state.Active {
		return nil, apperrors.New(apperrors.ErrVaultInactive, "vault is inactive", nil)
	}

	next := entry.state
	newCollateral, ok := model.AddChecked(next.CollateralAmount, amount)
	if !ok {
		return nil, apperrors.New(apperrors.ErrOverflow, "collateral amount overflow", nil)
	}
	oldLimit := next.CreditLimit
	newLimit, ok := model.MulDivBps(newCollateral, next.LTVBps)
	if !ok {
		return nil, apperrors.New(apperrors.ErrOverflow, "credit limit overflow", nil)
	}

	if err := e.custody.Deposit(ctx, owner, next.Key(), amount); err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "collateral transfer failed", err)
	}

	next.CollateralAmount = newCollateral
	next.CreditLimit = newLimit
	entry.state = next

	e.updateAggregates(ctx, func(p *model.ProtocolState) {
		p.TotalCollateral = satAdd(p.TotalCollateral, amount)
		p.TotalCreditIssued = satAdd(p.TotalCreditIssued, newLimit-oldLimit)
	})
	e.persistVault(ctx, next)

	logger.Info("collateral deposited", "vault", next.Key(), "amount", amount, "credit_limit", newLimit)
	v := next
	return &v, nil
}

// WithdrawCollateral is the inverse of deposit. Interest is accrued first so
// the under-collateralization check sees the true exposure: the resulting
// credit limit must still cover the outstanding balance.
func (e *Engine) WithdrawCollateral(ctx context.Context, owner string, vaultID, amount uint64) (*model.CreditVault, error) {
	if amount == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidAmount, "amount must be greater than zero", nil)
	}
	if err := e.checkOperational(); err != nil {
		return nil, err
	}
	entry, err := e.entry(owner, vaultID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.state.Active {
		return nil, apperrors.New(apperrors.ErrVaultInactive, "vault is inactive", nil)
	}

	next := entry.state
	interest, err := AccrueInterest(&next, e.now())
	if err != nil {
		return nil, err
	}
	if amount > next.CollateralAmount {
		return nil, apperrors.Newf(apperrors.ErrInsufficientCollateral, "withdraw %d exceeds collateral %d", amount, next.CollateralAmount)
	}
	newCollateral := next.CollateralAmount - amount
	newLimit, ok := model.MulDivBps(newCollateral, next.LTVBps)
	if !ok {
		return nil, apperrors.New(apperrors.ErrOverflow, "credit limit overflow", nil)
	}
	if newLimit < next.OutstandingBalance {
		return nil, apperrors.Newf(apperrors.ErrCollateralAfterWithdrawal,
			"withdrawal would leave credit limit %d below outstanding balance %d", newLimit, next.OutstandingBalance)
	}

	if err := e.custody.Withdraw(ctx, owner, next.Key(), amount); err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "collateral transfer failed", err)
	}

	oldLimit := entry.state.CreditLimit
	next.CollateralAmount = newCollateral
	next.CreditLimit = newLimit
	entry.state = next

	e.updateAggregates(ctx, func(p *model.ProtocolState) {
		p.TotalCollateral = satSub(p.TotalCollateral, amount)
		p.TotalCreditIssued = satSub(p.TotalCreditIssued, satSub(oldLimit, newLimit))
		p.TotalOutstanding = satAdd(p.TotalOutstanding, interest)
		p.TotalInterestCollected = satAdd(p.TotalInterestCollected, interest)
	})
	e.persistVault(ctx, next)

	logger.Info("collateral withdrawn", "vault", next.Key(), "amount", amount, "credit_limit", newLimit)
	v := next
	return &v, nil
}

// RepayCredit reduces the outstanding balance. Interest accrues first, then
// the repayment is clamped to the interest-inclusive balance and collected
// into the protocol treasury.
func (e *Engine) RepayCredit(ctx context.Context, owner string, vaultID, amount uint64) (*model.CreditVault, error) {
	if amount == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidAmount, "amount must be greater than zero", nil)
	}
	if err := e.checkOperational(); err != nil {
		return nil, err
	}
	entry, err := e.entry(owner, vaultID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.state.Active {
		return nil, apperrors.New(apperrors.ErrVaultInactive, "vault is inactive", nil)
	}
	if entry.state.OutstandingBalance == 0 {
		return nil, apperrors.New(apperrors.ErrNoOutstandingBalance, "no outstanding balance to repay", nil)
	}

	next := entry.state
	interest, err := AccrueInterest(&next, e.now())
	if err != nil {
		return nil, err
	}
	applied := amount
	if applied > next.OutstandingBalance {
		applied = next.OutstandingBalance
	}

	if err := e.custody.Collect(ctx, owner, e.treasury(), applied); err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "repayment transfer failed", err)
	}

	next.OutstandingBalance -= applied
	entry.state = next

	e.updateAggregates(ctx, func(p *model.ProtocolState) {
		p.TotalOutstanding = satSub(satAdd(p.TotalOutstanding, interest), applied)
		p.TotalInterestCollected = satAdd(p.TotalInterestCollected, interest)
	})
	e.persistVault(ctx, next)

	logger.Info("credit repaid", "vault", next.Key(), "applied", applied, "outstanding", next.OutstandingBalance)
	v := next
	return &v, nil
}

// SetVaultRisk adjusts per-vault LTV and interest rate. Authority-only. The
// change is rejected when the recomputed credit limit would dip below the
// current outstanding balance.
func (e *Engine) SetVaultRisk(ctx context.Context, caller, owner string, vaultID, ltvBps, rateBps uint64) (*model.CreditVault, error) {
	if caller != e.authority() {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "caller is not the protocol authority", nil)
	}
	if ltvBps < model.MinLTVBps || ltvBps > model.MaxLTVBps {
		return nil, apperrors.Newf(apperrors.ErrInvalidLTV, "ltv %d bps out of range [%d, %d]", ltvBps, model.MinLTVBps, model.MaxLTVBps)
	}
	if rateBps > model.MaxInterestRateBps {
		return nil, apperrors.Newf(apperrors.ErrInvalidInterestRate, "rate %d bps exceeds cap %d", rateBps, model.MaxInterestRateBps)
	}
	entry, err := e.entry(owner, vaultID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.state
	interest, err := AccrueInterest(&next, e.now())
	if err != nil {
		return nil, err
	}
	newLimit, ok := model.MulDivBps(next.CollateralAmount, ltvBps)
	if !ok {
		return nil, apperrors.New(apperrors.ErrOverflow, "credit limit overflow", nil)
	}
	if newLimit < next.OutstandingBalance {
		return nil, apperrors.Newf(apperrors.ErrInvalidLTV,
			"ltv change would leave credit limit %d below outstanding balance %d", newLimit, next.OutstandingBalance)
	}
	oldLimit := next.CreditLimit
	next.LTVBps = ltvBps
	next.InterestRateBps = rateBps
	next.CreditLimit = newLimit
	entry.state = next

	e.updateAggregates(ctx, func(p *model.ProtocolState) {
		if newLimit >= oldLimit {
			p.TotalCreditIssued = satAdd(p.TotalCreditIssued, newLimit-oldLimit)
		} else {
			p.TotalCreditIssued = satSub(p.TotalCreditIssued, oldLimit-newLimit)
		}
		p.TotalOutstanding = satAdd(p.TotalOutstanding, interest)
		p.TotalInterestCollected = satAdd(p.TotalInterestCollected, interest)
	})
	e.persistVault(ctx, next)

	v := next
	return &v, nil
}

// RefreshInterestRate recomputes the vault rate from current utilization
// using the linear model: base + utilization * 5%, capped.
func (e *Engine) RefreshInterestRate(ctx context.Context, caller, owner string, vaultID uint64) (*model.CreditVault, error) {
	if caller != e.authority() {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "caller is not the protocol authority", nil)
	}
	entry, err := e.entry(owner, vaultID)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	baseRate := e.protocol.BaseInterestRateBps
	e.mu.RUnlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.state
	interest, err := AccrueInterest(&next, e.now())
	if err != nil {
		return nil, err
	}
	next.InterestRateBps = DynamicRateBps(next.UtilizationBps(), baseRate)
	entry.state = next

	if interest > 0 {
		e.updateAggregates(ctx, func(p *model.ProtocolState) {
			p.TotalOutstanding = satAdd(p.TotalOutstanding, interest)
			p.TotalInterestCollected = satAdd(p.TotalInterestCollected, interest)
		})
	}
	e.persistVault(ctx, next)

	v := next
	return &v, nil
}

// SetDailyLimit updates the rolling 24h spend cap. Rejected when the new
// limit is below what the vault has already spent in the current window,
// which would break the daily invariant.
func (e *Engine) SetDailyLimit(ctx context.Context, caller, owner string, vaultID, limit uint64) (*model.CreditVault, error) {
	if caller != e.authority() {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "caller is not the protocol authority", nil)
	}
	if limit == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidAmount, "daily limit must be greater than zero", nil)
	}
	entry, err := e.entry(owner, vaultID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := entry.state
	next.RollDailyWindow(e.now())
	if limit < next.DailySpent {
		return nil, apperrors.Newf(apperrors.ErrInvalidAmount, "daily limit %d below current window spend %d", limit, next.DailySpent)
	}
	next.DailyLimit = limit
	entry.state = next
	e.persistVault(ctx, next)

	v := next
	return &v, nil
}

// SetVaultActive deactivates or reactivates a vault. Vaults are never
// destroyed.
func (e *Engine) SetVaultActive(ctx context.Context, caller, owner string, vaultID uint64, active bool) (*model.CreditVault, error) {
	if caller != e.authority() {
		return nil, apperrors.New(apperrors.ErrUnauthorized, "caller is not the protocol authority", nil)
	}
	entry, err := e.entry(owner, vaultID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.state.Active = active
	snapshot := entry.state
	e.persistVault(ctx, snapshot)

	logger.Warn("vault active flag changed", "vault", snapshot.Key(), "active", active, "caller", caller)
	return &snapshot, nil
}
