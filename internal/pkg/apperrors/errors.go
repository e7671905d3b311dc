package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrUnauthorized           ErrorType = "UNAUTHORIZED"
	ErrProtocolPaused         ErrorType = "PROTOCOL_PAUSED"
	ErrProtocolNotInitialized ErrorType = "PROTOCOL_NOT_INITIALIZED"
	ErrProtocolExists         ErrorType = "PROTOCOL_ALREADY_INITIALIZED"
	ErrVaultInactive          ErrorType = "VAULT_INACTIVE"
	ErrVaultExists            ErrorType = "VAULT_ALREADY_EXISTS"
	ErrVaultNotFound          ErrorType = "VAULT_NOT_FOUND"
	ErrDailyLimitExceeded     ErrorType = "DAILY_LIMIT_EXCEEDED"
	ErrInsufficientCollateral ErrorType = "INSUFFICIENT_COLLATERAL"
	// Withdrawal rejected because the resulting credit limit would no longer
	// cover the outstanding balance.
	ErrCollateralAfterWithdrawal ErrorType = "INSUFFICIENT_COLLATERAL_AFTER_WITHDRAWAL"
	ErrNoOutstandingBalance   ErrorType = "NO_OUTSTANDING_BALANCE"
	ErrInvalidAmount          ErrorType = "INVALID_AMOUNT"
	ErrInvalidLTV             ErrorType = "INVALID_LTV"
	ErrInvalidInterestRate    ErrorType = "INVALID_INTEREST_RATE"
	ErrVaultLimitReached      ErrorType = "VAULT_LIMIT_REACHED"
	ErrOverflow               ErrorType = "ARITHMETIC_OVERFLOW"
	ErrReadOnly               ErrorType = "READ_ONLY"
	ErrInvalidRequest         ErrorType = "INVALID_REQUEST"
	ErrInternal               ErrorType = "INTERNAL_ERROR"
	ErrNotFound               ErrorType = "NOT_FOUND"
)

// AppError is the standard error struct for the application.
// A credit-limit decline is NOT an AppError — it is a normal
// AuthorizationResult with Approved=false. Only hard failures (which abort
// the operation with no state change) travel through this type.
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func Newf(errType ErrorType, format string, args ...interface{}) *AppError {
	return New(errType, fmt.Sprintf(format, args...), nil)
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err is an AppError of the given type.
func Is(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrProtocolPaused, ErrReadOnly:
		return http.StatusServiceUnavailable
	case ErrVaultInactive, ErrVaultExists, ErrProtocolExists:
		return http.StatusConflict
	case ErrVaultNotFound, ErrNotFound:
		return http.StatusNotFound
	case ErrDailyLimitExceeded:
		return http.StatusForbidden
	case ErrInsufficientCollateral, ErrCollateralAfterWithdrawal, ErrNoOutstandingBalance,
		ErrInvalidAmount, ErrInvalidLTV, ErrInvalidInterestRate,
		ErrVaultLimitReached, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrOverflow, ErrProtocolNotInitialized:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrProtocolPaused:
		return "Protocol is paused by the administrator. Retry after unpause."
	case ErrDailyLimitExceeded:
		return "Daily spending limit reached. Wait for the window to roll over."
	case ErrInsufficientCollateral:
		return "Reduce the withdrawal amount or repay outstanding credit first."
	case ErrVaultInactive:
		return "Vault has been deactivated. Contact the protocol administrator."
	case ErrUnauthorized:
		return "Check API keys and the configured protocol authority."
	default:
		return ""
	}
}
