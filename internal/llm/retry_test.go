package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func failWith(kind ErrorKind) MockResponse {
	return MockResponse{Err: &Error{Provider: "mock", Kind: kind, Err: errors.New(kind.String())}}
}

var okResponse = MockResponse{Content: json.RawMessage(`{"ok":true}`)}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		script    []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{"first attempt", []MockResponse{okResponse}, false, 1},
		{"transient then ok", []MockResponse{failWith(KindUnavailable), okResponse}, false, 2},
		{"rate limited then ok", []MockResponse{failWith(KindRateLimited), failWith(KindRateLimited), okResponse}, false, 3},
		{"unclassified error retried", []MockResponse{{Err: errors.New("connection reset")}, okResponse}, false, 2},
		{"exhausted", []MockResponse{failWith(KindUnavailable), failWith(KindUnavailable), failWith(KindUnavailable), okResponse}, true, 3},
		{"truncated not retried", []MockResponse{failWith(KindTruncated), okResponse}, true, 1},
		{"rejected not retried", []MockResponse{failWith(KindRejected), okResponse}, true, 1},
		{"invalid retried once", []MockResponse{failWith(KindInvalidResponse), failWith(KindInvalidResponse), okResponse}, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.script...)
			resp, err := WithRetry(mock, fastRetry(), nil).Generate(context.Background(), Request{})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.JSONEq(t, `{"ok":true}`, string(resp.Content))
			}
			assert.Equal(t, tt.wantCalls, mock.CallCount())
		})
	}
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	mock := NewMockProvider(failWith(KindUnavailable), okResponse)
	p := WithRetry(mock, RetryConfig{MaxAttempts: 3, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 1}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_Backoff(t *testing.T) {
	r := WithRetry(NewMockProvider(), RetryConfig{MaxAttempts: 5, InitialWait: 100 * time.Millisecond, MaxWait: 300 * time.Millisecond, Multiplier: 2}, nil)
	plain := errors.New("x")

	for attempt, base := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond} {
		got := r.backoff(attempt, plain)
		assert.GreaterOrEqual(t, got, base*8/10, "attempt %d", attempt)
		assert.LessOrEqual(t, got, base*12/10, "attempt %d", attempt)
	}

	limited := &Error{Kind: KindRateLimited, RetryAfter: 7 * time.Second}
	assert.Equal(t, 7*time.Second, r.backoff(0, limited))
}

func TestRetry_ModelID(t *testing.T) {
	assert.Equal(t, "mock", WithRetry(NewMockProvider(), fastRetry(), nil).ModelID())
}
