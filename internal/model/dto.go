package model

import "github.com/shopspring/decimal"

// CollateralDecimals is the decimal precision of the collateral token (USDC).
const CollateralDecimals = 6

// FormatUnits renders base units as a human-readable token amount for
// display fields. The ledger itself never leaves integer base units.
func FormatUnits(units uint64) string {
	return decimal.NewFromUint64(units).
		Shift(-CollateralDecimals).
		StringFixed(CollateralDecimals)
}

// CreateVaultRequest is the incoming JSON body for vault creation.
type CreateVaultRequest struct {
	Owner   string `json:"owner" binding:"required"`
	VaultID uint64 `json:"vault_id"`
}

// CollateralRequest covers deposits, withdrawals and repayments.
type CollateralRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

type CollateralResponse struct {
	Owner               string `json:"owner"`
	VaultID             uint64 `json:"vault_id"`
	CollateralAmount    uint64 `json:"collateral_amount"`
	CreditLimit         uint64 `json:"credit_limit"`
	OutstandingBalance  uint64 `json:"outstanding_balance"`
	CollateralDisplay   string `json:"collateral_display"`
	CreditLimitDisplay  string `json:"credit_limit_display"`
}

// AuthorizePaymentRequest is submitted by the relayer on behalf of a
// merchant terminal.
type AuthorizePaymentRequest struct {
	Owner    string `json:"owner" binding:"required"`
	VaultID  uint64 `json:"vault_id"`
	Merchant string `json:"merchant" binding:"required"`
	Amount   uint64 `json:"amount" binding:"required"`

	// Optional terminal countersignature over the canonical payload.
	// Nonce and IssuedAt are part of the signed bytes.
	Signature string `json:"signature,omitempty"`
	SignerKey string `json:"signer_key,omitempty"`
	Nonce     uint64 `json:"nonce,omitempty"`
	IssuedAt  int64  `json:"issued_at,omitempty"`
}

type AuthorizePaymentResponse struct {
	Approved        bool          `json:"approved"`
	Reason          DeclineReason `json:"reason,omitempty"`
	NewOutstanding  uint64        `json:"new_outstanding_balance"`
	AvailableCredit uint64        `json:"available_credit"`
	AmountDisplay   string        `json:"amount_display"`
}

type HealthResponse struct {
	Owner           string `json:"owner"`
	VaultID         uint64 `json:"vault_id"`
	HealthFactorBps uint64 `json:"health_factor_bps"`
	UtilizationBps  uint64 `json:"utilization_bps"`
	Liquidatable    bool   `json:"liquidatable"`
	Infinite        bool   `json:"infinite"`
}

// VaultRiskRequest updates per-vault risk parameters (admin).
type VaultRiskRequest struct {
	LTVBps          uint64 `json:"ltv_bps" binding:"required"`
	InterestRateBps uint64 `json:"interest_rate_bps"`
}

type DailyLimitRequest struct {
	DailyLimit uint64 `json:"daily_limit" binding:"required"`
}

type SetAuthorityRequest struct {
	NewAuthority string `json:"new_authority" binding:"required"`
}
