package services

import "errors"

var (
	// ErrInvalidAmount is returned before any lock or store access.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientBalance is returned by Use when the amount exceeds the current balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrReconciliationRequired means a balance write could not be rolled back
	// after the history append failed; balance and history disagree for the user.
	ErrReconciliationRequired = errors.New("reconciliation required")
)

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInsufficientBalance)
}
