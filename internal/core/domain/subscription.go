package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a notification event a merchant can subscribe to.
type EventType string

const (
	EventTransactionCreated       EventType = "TRANSACTION_CREATED"
	EventTransactionStatusChanged EventType = "TRANSACTION_STATUS_CHANGED"
	EventTestPing                 EventType = "TEST_PING"
)

// Valid reports whether the event type is one of the known values.
func (e EventType) Valid() bool {
	switch e {
	case EventTransactionCreated, EventTransactionStatusChanged, EventTestPing:
		return true
	}
	return false
}

// Retry policy bounds. Out-of-range values are clamped, not rejected.
const (
	MaxRetriesFloor       = 0
	MaxRetriesCeil        = 10
	MinRetryDelayMs int64 = 1000
	MaxRetryDelayMs int64 = 86_400_000 // 24h
)

// ErrDuplicate is returned by repositories when a uniqueness constraint
// is violated (one active subscription per merchant).
var ErrDuplicate = errors.New("duplicate record")

// RetryPolicy bounds the delivery retry behaviour of a subscription.
// A copy is frozen onto every delivery job at creation time, so later
// policy edits never affect in-flight jobs.
type RetryPolicy struct {
	MaxRetries          int   `json:"max_retries"`
	InitialRetryDelayMs int64 `json:"initial_retry_delay_ms"`
	MaxRetryDelayMs     int64 `json:"max_retry_delay_ms"`
}

// DefaultRetryPolicy returns the policy applied when a registration
// supplies no bounds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:          3,
		InitialRetryDelayMs: 5000,
		MaxRetryDelayMs:     300_000,
	}
}

// Clamp forces every field into its valid range and restores the
// initial <= max invariant.
func (p *RetryPolicy) Clamp() {
	if p.MaxRetries < MaxRetriesFloor {
		p.MaxRetries = MaxRetriesFloor
	}
	if p.MaxRetries > MaxRetriesCeil {
		p.MaxRetries = MaxRetriesCeil
	}
	if p.InitialRetryDelayMs < MinRetryDelayMs {
		p.InitialRetryDelayMs = MinRetryDelayMs
	}
	if p.MaxRetryDelayMs < MinRetryDelayMs {
		p.MaxRetryDelayMs = MinRetryDelayMs
	}
	if p.MaxRetryDelayMs > MaxRetryDelayMs {
		p.MaxRetryDelayMs = MaxRetryDelayMs
	}
	if p.InitialRetryDelayMs > p.MaxRetryDelayMs {
		p.InitialRetryDelayMs = p.MaxRetryDelayMs
	}
}

// BackoffDelay returns the delay to schedule after the given failed
// attempt (1-based): initial * 2^(attempt-1), capped at the max delay.
func (p RetryPolicy) BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delayMs := p.InitialRetryDelayMs
	for i := 1; i < attempt; i++ {
		delayMs *= 2
		if delayMs >= p.MaxRetryDelayMs || delayMs < 0 {
			delayMs = p.MaxRetryDelayMs
			break
		}
	}
	if delayMs > p.MaxRetryDelayMs {
		delayMs = p.MaxRetryDelayMs
	}
	return time.Duration(delayMs) * time.Millisecond
}

// Subscription is a merchant's registered outbound webhook endpoint.
// At most one active subscription exists per merchant; deletion is a
// soft-delete so historical deliveries stay attributable.
type Subscription struct {
	ID          uuid.UUID   `json:"id"`
	MerchantID  uuid.UUID   `json:"merchant_id"`
	URL         string      `json:"url"`
	SecretKey   string      `json:"-"`           // Shown in full only in the register response
	EventTypes  []EventType `json:"event_types"` // empty = all events
	IsActive    bool        `json:"is_active"`
	RetryPolicy RetryPolicy `json:"retry_policy"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// AcceptsEvent reports whether the subscription wants the given event.
// An empty event type set acts as a wildcard.
func (s *Subscription) AcceptsEvent(event EventType) bool {
	if len(s.EventTypes) == 0 {
		return true
	}
	for _, e := range s.EventTypes {
		if e == event {
			return true
		}
	}
	return false
}

// MaskedSecret returns the secret with everything but the last four
// characters replaced. Retrieval paths other than the initial register
// response must only ever expose this form.
func (s *Subscription) MaskedSecret() string {
	if len(s.SecretKey) <= 4 {
		return "****"
	}
	return "****" + s.SecretKey[len(s.SecretKey)-4:]
}

// ValidateWebhookURL checks that raw is a syntactically valid https URL
// with a host.
func ValidateWebhookURL(raw string) error {
	u, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "https" {
		return errors.New("webhook URL must use https")
	}
	if u.Host == "" {
		return errors.New("webhook URL must include a host")
	}
	return nil
}
