package bybit

import (
	"errors"
	"fmt"
	"net/http"
)

// Return codes the public market endpoints can answer with.
const (
	codeRateLimited = 10006
	codeServerError = 10016
)

// APIError is a non-zero retCode returned by the v5 API.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit retCode %d: %s", e.Code, e.Msg)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	switch e.Code {
	case codeRateLimited, codeServerError,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func apiError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// IsRetryableError reports whether err wraps a retryable APIError.
func IsRetryableError(err error) bool {
	e, ok := apiError(err)
	return ok && e.Retryable()
}

// IsRateLimitError reports whether the venue throttled the request.
func IsRateLimitError(err error) bool {
	e, ok := apiError(err)
	return ok && e.Code == codeRateLimited
}

func checkRetCode(code int, msg string) error {
	if code == 0 {
		return nil
	}
	return &APIError{Code: code, Msg: msg}
}

func wrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("bybit %s: %w", op, err)
}
