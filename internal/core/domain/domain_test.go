package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Clamp(t *testing.T) {
	tests := []struct {
		name string
		in   RetryPolicy
		want RetryPolicy
	}{
		{
			name: "in range untouched",
			in:   RetryPolicy{MaxRetries: 3, InitialRetryDelayMs: 5000, MaxRetryDelayMs: 60000},
			want: RetryPolicy{MaxRetries: 3, InitialRetryDelayMs: 5000, MaxRetryDelayMs: 60000},
		},
		{
			name: "negative retries floored",
			in:   RetryPolicy{MaxRetries: -5, InitialRetryDelayMs: 5000, MaxRetryDelayMs: 60000},
			want: RetryPolicy{MaxRetries: 0, InitialRetryDelayMs: 5000, MaxRetryDelayMs: 60000},
		},
		{
			name: "excess retries capped",
			in:   RetryPolicy{MaxRetries: 50, InitialRetryDelayMs: 5000, MaxRetryDelayMs: 60000},
			want: RetryPolicy{MaxRetries: 10, InitialRetryDelayMs: 5000, MaxRetryDelayMs: 60000},
		},
		{
			name: "tiny delays raised to floor",
			in:   RetryPolicy{MaxRetries: 3, InitialRetryDelayMs: 10, MaxRetryDelayMs: 10},
			want: RetryPolicy{MaxRetries: 3, InitialRetryDelayMs: 1000, MaxRetryDelayMs: 1000},
		},
		{
			name: "huge max delay capped at 24h",
			in:   RetryPolicy{MaxRetries: 3, InitialRetryDelayMs: 5000, MaxRetryDelayMs: 999_999_999},
			want: RetryPolicy{MaxRetries: 3, InitialRetryDelayMs: 5000, MaxRetryDelayMs: 86_400_000},
		},
		{
			name: "initial squeezed under max",
			in:   RetryPolicy{MaxRetries: 3, InitialRetryDelayMs: 90000, MaxRetryDelayMs: 60000},
			want: RetryPolicy{MaxRetries: 3, InitialRetryDelayMs: 60000, MaxRetryDelayMs: 60000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Clamp()
			assert.Equal(t, tt.want, tt.in)
			assert.LessOrEqual(t, tt.in.InitialRetryDelayMs, tt.in.MaxRetryDelayMs)
			assert.GreaterOrEqual(t, tt.in.MaxRetries, 0)
			assert.LessOrEqual(t, tt.in.MaxRetries, 10)
		})
	}
}

func TestRetryPolicy_BackoffDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 10, InitialRetryDelayMs: 1000, MaxRetryDelayMs: 10000}

	assert.Equal(t, 1000*time.Millisecond, p.BackoffDelay(1))
	assert.Equal(t, 2000*time.Millisecond, p.BackoffDelay(2))
	assert.Equal(t, 4000*time.Millisecond, p.BackoffDelay(3))
	assert.Equal(t, 8000*time.Millisecond, p.BackoffDelay(4))
	// Capped from here on.
	assert.Equal(t, 10000*time.Millisecond, p.BackoffDelay(5))
	assert.Equal(t, 10000*time.Millisecond, p.BackoffDelay(6))
}

func TestRetryPolicy_BackoffMonotonic(t *testing.T) {
	p := RetryPolicy{MaxRetries: 10, InitialRetryDelayMs: 1500, MaxRetryDelayMs: 86_400_000}

	prev := time.Duration(0)
	for attempt := 1; attempt <= 30; attempt++ {
		d := p.BackoffDelay(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, 86_400_000*time.Millisecond)
		prev = d
	}
}

func TestSubscription_AcceptsEvent(t *testing.T) {
	wildcard := &Subscription{}
	assert.True(t, wildcard.AcceptsEvent(EventTransactionCreated))
	assert.True(t, wildcard.AcceptsEvent(EventTestPing))

	scoped := &Subscription{EventTypes: []EventType{EventTransactionCreated}}
	assert.True(t, scoped.AcceptsEvent(EventTransactionCreated))
	assert.False(t, scoped.AcceptsEvent(EventTransactionStatusChanged))
}

func TestSubscription_MaskedSecret(t *testing.T) {
	s := &Subscription{SecretKey: "whsec_0123456789abcdef"}
	assert.Equal(t, "****cdef", s.MaskedSecret())

	short := &Subscription{SecretKey: "abc"}
	assert.Equal(t, "****", short.MaskedSecret())
}

func TestValidateWebhookURL(t *testing.T) {
	assert.NoError(t, ValidateWebhookURL("https://merchant.example/hook"))
	assert.Error(t, ValidateWebhookURL("http://merchant.example/hook"))
	assert.Error(t, ValidateWebhookURL("not a url"))
	assert.Error(t, ValidateWebhookURL("ftp://merchant.example/hook"))
	assert.Error(t, ValidateWebhookURL(""))
}

func TestDeliveryJob_MarkSuccess(t *testing.T) {
	now := time.Now()
	job := &DeliveryJob{
		Status:      DeliveryStatusPending,
		MaxAttempts: 4,
		RetryPolicy: RetryPolicy{MaxRetries: 3, InitialRetryDelayMs: 1000, MaxRetryDelayMs: 10000},
	}

	job.MarkSuccess(200, `{"ok":true}`, now)

	assert.Equal(t, DeliveryStatusSuccess, job.Status)
	assert.Equal(t, 1, job.AttemptsMade)
	assert.Nil(t, job.NextRetryAt)
	require.NotNil(t, job.CompletedAt)
	assert.Equal(t, now, *job.CompletedAt)
	require.NotNil(t, job.ResponseStatusCode)
	assert.Equal(t, 200, *job.ResponseStatusCode)
	assert.True(t, job.Status.Terminal())
}

func TestDeliveryJob_MarkFailure_SchedulesRetry(t *testing.T) {
	now := time.Now()
	job := &DeliveryJob{
		Status:      DeliveryStatusPending,
		MaxAttempts: 3,
		RetryPolicy: RetryPolicy{MaxRetries: 2, InitialRetryDelayMs: 1000, MaxRetryDelayMs: 10000},
	}

	code := 503
	job.MarkFailure(&code, "unavailable", "", now)

	assert.Equal(t, DeliveryStatusPending, job.Status)
	assert.Equal(t, 1, job.AttemptsMade)
	require.NotNil(t, job.NextRetryAt)
	assert.Equal(t, now.Add(1000*time.Millisecond), *job.NextRetryAt)
	assert.Nil(t, job.CompletedAt)
}

func TestDeliveryJob_MarkFailure_ExhaustionIsTerminal(t *testing.T) {
	now := time.Now()
	// maxRetries=2 means 3 total attempts before FAILED.
	job := &DeliveryJob{
		Status:      DeliveryStatusPending,
		MaxAttempts: 3,
		RetryPolicy: RetryPolicy{MaxRetries: 2, InitialRetryDelayMs: 1000, MaxRetryDelayMs: 10000},
	}

	code := 500
	job.MarkFailure(&code, "", "", now)
	job.MarkFailure(&code, "", "", now)
	assert.Equal(t, DeliveryStatusPending, job.Status)

	job.MarkFailure(&code, "", "", now)
	assert.Equal(t, DeliveryStatusFailed, job.Status)
	assert.Equal(t, 3, job.AttemptsMade)
	assert.Nil(t, job.NextRetryAt)
	require.NotNil(t, job.CompletedAt)
	assert.True(t, job.Status.Terminal())
}

func TestDeliveryJob_MarkFailure_TransportError(t *testing.T) {
	now := time.Now()
	job := &DeliveryJob{
		Status:      DeliveryStatusPending,
		MaxAttempts: 2,
		RetryPolicy: RetryPolicy{MaxRetries: 1, InitialRetryDelayMs: 1000, MaxRetryDelayMs: 10000},
	}

	job.MarkFailure(nil, "", "dial tcp: connection refused", now)

	assert.Nil(t, job.ResponseStatusCode)
	require.NotNil(t, job.LastError)
	assert.Contains(t, *job.LastError, "connection refused")
}
