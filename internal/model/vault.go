package model

import (
	"fmt"
	"math"
	"time"
)

// Protocol-wide constants. Amounts are integer base units of the collateral
// token (6 decimals for USDC), rates and ratios are basis points.
const (
	BasisPoints uint64 = 10_000

	// LTV ratio bounds (15000 = 150% = 1.5x leverage)
	DefaultLTVBps uint64 = 15_000
	MinLTVBps     uint64 = 10_000
	MaxLTVBps     uint64 = 20_000

	// Health factor below this flags the vault for out-of-band liquidation.
	LiquidationThresholdBps uint64 = 12_000

	// Interest rates (APR, basis points)
	DefaultBaseInterestBps uint64 = 200
	MaxInterestRateBps     uint64 = 2_000

	SecondsPerYear uint64 = 365 * 24 * 60 * 60

	// 1 USDC minimum deposit
	MinCollateral uint64 = 1_000_000

	// 1000 USDC default daily spending cap
	DefaultDailyLimit uint64 = 1_000_000_000

	DailyWindow = 24 * time.Hour

	MaxVaultsPerOwner = 10

	// Sentinel health factor when there is no outstanding debt
	MaxHealthFactor uint64 = math.MaxUint64
)

// ProtocolState 协议全局单例：管理员、默认风险参数与聚合统计
type ProtocolState struct {
	Authority string `json:"authority"`
	Treasury  string `json:"treasury"`

	DefaultLTVBps       uint64 `json:"default_ltv_bps"`
	BaseInterestRateBps uint64 `json:"base_interest_rate_bps"`

	// Emergency circuit breaker: every vault-mutating operation fails while set
	Paused bool `json:"paused"`

	TotalVaults            uint64 `json:"total_vaults"`
	TotalCollateral        uint64 `json:"total_collateral"`
	TotalCreditIssued      uint64 `json:"total_credit_issued"`
	TotalOutstanding       uint64 `json:"total_outstanding"`
	TotalInterestCollected uint64 `json:"total_interest_collected"`

	CreatedAt  time.Time `json:"created_at"`
	LastUpdate time.Time `json:"last_update"`
}

// CreditVault 单个用户的信用金库：抵押、额度与日限额状态
type CreditVault struct {
	Owner   string `json:"owner"`
	VaultID uint64 `json:"vault_id"`

	CollateralAmount uint64 `json:"collateral_amount"`
	CreditLimit      uint64 `json:"credit_limit"`

	// Principal plus accrued interest currently drawn against the line
	OutstandingBalance uint64 `json:"outstanding_balance"`

	LTVBps          uint64 `json:"ltv_bps"`
	InterestRateBps uint64 `json:"interest_rate_bps"`

	DailyLimit       uint64    `json:"daily_limit"`
	DailySpent       uint64    `json:"daily_spent"`
	DailyWindowStart time.Time `json:"daily_window_start"`

	LastAccrualTime time.Time `json:"last_accrual_time"`

	TotalPayments      uint64 `json:"total_payments"`
	TotalPaymentVolume uint64 `json:"total_payment_volume"`
	InterestPaid       uint64 `json:"interest_paid"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the (owner, vault_id) composite key used to address the vault.
func (v *CreditVault) Key() string {
	return VaultKey(v.Owner, v.VaultID)
}

func VaultKey(owner string, vaultID uint64) string {
	return fmt.Sprintf("%s:%d", owner, vaultID)
}

// AvailableCredit 当前可用额度 (limit - outstanding)
func (v *CreditVault) AvailableCredit() uint64 {
	if v.OutstandingBalance >= v.CreditLimit {
		return 0
	}
	return v.CreditLimit - v.OutstandingBalance
}

// UtilizationBps returns outstanding/limit in basis points, 0 when the vault
// has no credit limit.
func (v *CreditVault) UtilizationBps() uint64 {
	if v.CreditLimit == 0 {
		return 0
	}
	hi, lo := mul64(v.OutstandingBalance, BasisPoints)
	q, _ := div128(hi, lo, v.CreditLimit)
	return q
}

// HealthFactorBps returns (collateral * ltv / 10000) * 10000 / outstanding.
// MaxHealthFactor when there is no debt.
func (v *CreditVault) HealthFactorBps() uint64 {
	if v.OutstandingBalance == 0 {
		return MaxHealthFactor
	}
	maxBorrow := CreditLimitFor(v.CollateralAmount, v.LTVBps)
	hi, lo := mul64(maxBorrow, BasisPoints)
	q, overflow := div128(hi, lo, v.OutstandingBalance)
	if overflow {
		return MaxHealthFactor
	}
	return q
}

// Liquidatable reports whether the vault sits below the liquidation
// threshold. Liquidation execution itself is an external process.
func (v *CreditVault) Liquidatable() bool {
	return v.HealthFactorBps() < LiquidationThresholdBps
}

// CreditLimitFor derives a credit limit from collateral and LTV.
// Integer division, rounding toward zero.
func CreditLimitFor(collateral, ltvBps uint64) uint64 {
	hi, lo := mul64(collateral, ltvBps)
	q, _ := div128(hi, lo, BasisPoints)
	return q
}

// RollDailyWindow resets the daily spend counter when one or more full 24h
// windows have elapsed, advancing the anchor by whole windows so repeated
// resets do not drift.
func (v *CreditVault) RollDailyWindow(now time.Time) {
	elapsed := now.Sub(v.DailyWindowStart)
	if elapsed < DailyWindow {
		return
	}
	windows := elapsed / DailyWindow
	v.DailyWindowStart = v.DailyWindowStart.Add(windows * DailyWindow)
	v.DailySpent = 0
}

// DeclineReason tags the outcome of a failed authorization.
type DeclineReason string

const (
	DeclineInsufficientCredit DeclineReason = "insufficient_credit"
	DeclineDailyLimit         DeclineReason = "daily_limit_exceeded"
)

// AuthorizationResult is the outcome of a payment authorization. A
// credit-limit overrun is reported here with Approved=false; it is not an
// error, merchants branch on it.
type AuthorizationResult struct {
	Approved        bool          `json:"approved"`
	Reason          DeclineReason `json:"reason,omitempty"`
	NewOutstanding  uint64        `json:"new_outstanding_balance"`
	AvailableCredit uint64        `json:"available_credit"`
	InterestAccrued uint64        `json:"interest_accrued"`
}
