package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrorCategory classifies failures seen by the agent.
type ErrorCategory string

const (
	// Feed and venue failures, degraded to cached data
	ErrorCategoryNetwork   ErrorCategory = "NETWORK"
	ErrorCategoryTimeout   ErrorCategory = "TIMEOUT"
	ErrorCategoryRateLimit ErrorCategory = "RATE_LIMIT"
	ErrorCategoryExchange  ErrorCategory = "EXCHANGE"
	ErrorCategoryData      ErrorCategory = "DATA"

	// Local failures
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryValidation    ErrorCategory = "VALIDATION"
	ErrorCategoryPosition      ErrorCategory = "POSITION"
	ErrorCategoryStrategy      ErrorCategory = "STRATEGY"

	ErrorCategoryTemporary ErrorCategory = "TEMPORARY"
)

// BotError is a categorized error with the component and operation that
// produced it.
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
	Time       time.Time
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *BotError) IsRetryable() bool {
	return e.Retryable
}

// NewBotError creates a new categorized bot error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
		Time:      time.Now(),
	}
}

// WrapError wraps an existing error with bot error context
func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	e := NewBotError(category, component, operation, "operation failed")
	e.Underlying = err
	return e
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable sets the retryable flag
func (e *BotError) WithRetryable(retryable bool) *BotError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryConfiguration, ErrorCategoryValidation, ErrorCategoryData:
		return false
	default:
		return true
	}
}

// CategorizeError attempts to categorize a generic error
func CategorizeError(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "timeout"):
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	case strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") ||
		strings.Contains(errMsg, "code=-1003"):
		return WrapError(err, ErrorCategoryRateLimit, component, operation)
	case strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") || strings.Contains(errMsg, "eof"):
		return WrapError(err, ErrorCategoryNetwork, component, operation)
	case strings.Contains(errMsg, "parse") || strings.Contains(errMsg, "invalid syntax") ||
		strings.Contains(errMsg, "unmarshal"):
		return WrapError(err, ErrorCategoryData, component, operation)
	case strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "symbol"):
		return WrapError(err, ErrorCategoryExchange, component, operation).WithRetryable(false)
	}

	return WrapError(err, ErrorCategoryTemporary, component, operation)
}

// Common error constructors
func NewNetworkError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryNetwork, component, operation)
}

func NewExchangeError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryExchange, component, operation)
}

func NewDataError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryData, component, operation, message)
}

func NewValidationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfiguration, component, operation, message)
}

func NewPositionError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryPosition, component, operation)
}

// ErrorStats tracks error counts and a ring of recent errors. Safe for
// concurrent use.
type ErrorStats struct {
	mu               sync.Mutex
	totalErrors      int
	errorsByCategory map[ErrorCategory]int
	recentErrors     []*BotError
	maxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	if maxRecentErrors <= 0 {
		maxRecentErrors = 1
	}
	return &ErrorStats{
		errorsByCategory: make(map[ErrorCategory]int),
		recentErrors:     make([]*BotError, 0, maxRecentErrors),
		maxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BotError) {
	if err == nil {
		return
	}

	es.mu.Lock()
	defer es.mu.Unlock()

	es.totalErrors++
	es.errorsByCategory[err.Category]++

	es.recentErrors = append(es.recentErrors, err)
	if len(es.recentErrors) > es.maxRecentErrors {
		es.recentErrors = es.recentErrors[1:]
	}
}

// Total returns the number of recorded errors.
func (es *ErrorStats) Total() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.totalErrors
}

// GetErrorRate returns the error rate for a specific category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.totalErrors == 0 {
		return 0.0
	}
	return float64(es.errorsByCategory[category]) / float64(es.totalErrors)
}

// HasRecentErrors checks if there have been errors in the recent history
func (es *ErrorStats) HasRecentErrors(category ErrorCategory, count int) bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	recentCount := 0
	for _, err := range es.recentErrors {
		if err.Category == category {
			recentCount++
		}
	}
	return recentCount >= count
}

// Recent returns the recent error messages, newest first.
func (es *ErrorStats) Recent() []string {
	es.mu.Lock()
	defer es.mu.Unlock()

	out := make([]string, 0, len(es.recentErrors))
	for i := len(es.recentErrors) - 1; i >= 0; i-- {
		out = append(out, es.recentErrors[i].Error())
	}
	return out
}
