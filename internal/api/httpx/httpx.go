// Package httpx writes JSON responses and the error envelope shared by every route.
package httpx

import (
	"encoding/json"
	"net/http"
)

type ErrorCode string

const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeInvalidUserID       ErrorCode = "invalid_user_id"
	CodeInvalidAmount       ErrorCode = "invalid_amount"
	CodeInsufficientBalance ErrorCode = "insufficient_balance"
	CodeRateLimited         ErrorCode = "rate_limited"
	CodeInternal            ErrorCode = "internal_error"
)

type APIError struct {
	Error   string    `json:"error"`
	Code    ErrorCode `json:"code"`
	Details any       `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code ErrorCode, msg string, details any) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteInternal hides the cause; log it before calling.
func WriteInternal(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, "internal error", nil)
}
