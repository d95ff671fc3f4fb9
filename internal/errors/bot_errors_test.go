package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		category  ErrorCategory
		retryable bool
	}{
		{"deadline", fmt.Errorf("klines: %w", context.DeadlineExceeded), ErrorCategoryTimeout, true},
		{"timeout text", stderrors.New("i/o timeout"), ErrorCategoryTimeout, true},
		{"rate limit", stderrors.New("429 Too Many Requests"), ErrorCategoryRateLimit, true},
		{"dial", stderrors.New("dial tcp: lookup fapi.binance.com"), ErrorCategoryNetwork, true},
		{"parse", stderrors.New(`strconv.ParseFloat: parsing "x": invalid syntax`), ErrorCategoryData, false},
		{"bad symbol", stderrors.New("<APIError> code=-1121, msg=Invalid symbol."), ErrorCategoryExchange, false},
		{"unknown", stderrors.New("boom"), ErrorCategoryTemporary, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			botErr := CategorizeError(tt.err, "feed", "klines")
			require.NotNil(t, botErr)
			assert.Equal(t, tt.category, botErr.Category)
			assert.Equal(t, tt.retryable, botErr.IsRetryable())
			assert.True(t, stderrors.Is(botErr, tt.err))
		})
	}
}

func TestCategorizeError_PassesThroughBotError(t *testing.T) {
	original := NewDataError("feed", "klines", "empty reply")
	wrapped := fmt.Errorf("refresh: %w", original)

	assert.Same(t, original, CategorizeError(wrapped, "other", "op"))
	assert.Nil(t, CategorizeError(nil, "feed", "klines"))
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)

	stats.RecordError(NewNetworkError("feed", "prices", stderrors.New("a")))
	stats.RecordError(NewNetworkError("feed", "prices", stderrors.New("b")))
	stats.RecordError(NewDataError("feed", "klines", "c"))
	stats.RecordError(nil)

	assert.Equal(t, 3, stats.Total())
	assert.InDelta(t, 2.0/3.0, stats.GetErrorRate(ErrorCategoryNetwork), 1e-9)
	assert.True(t, stats.HasRecentErrors(ErrorCategoryNetwork, 1))
	assert.False(t, stats.HasRecentErrors(ErrorCategoryNetwork, 2))

	recent := stats.Recent()
	require.Len(t, recent, 2)
	assert.Contains(t, recent[0], "c")
}
