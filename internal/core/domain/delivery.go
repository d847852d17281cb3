package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the state of a delivery job.
type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "PENDING"
	DeliveryStatusSuccess DeliveryStatus = "SUCCESS"
	DeliveryStatusFailed  DeliveryStatus = "FAILED"
)

// Terminal reports whether no further transitions can occur.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryStatusSuccess || s == DeliveryStatusFailed
}

// DeliveryJob is one outbound notification instance, tracked through
// retries to a terminal outcome. Payload, Signature and the retry
// policy are frozen at creation; response fields reflect only the most
// recent attempt (per-attempt history lives in delivery log entries).
type DeliveryJob struct {
	ID             uuid.UUID         `json:"id"`
	SubscriptionID uuid.UUID         `json:"subscription_id"`
	MerchantID     uuid.UUID         `json:"merchant_id"`
	URL            string            `json:"url"`
	Payload        []byte            `json:"payload"`
	Headers        map[string]string `json:"headers"`
	Signature      string            `json:"signature"`

	Status       DeliveryStatus `json:"status"`
	AttemptsMade int            `json:"attempts_made"`
	MaxAttempts  int            `json:"max_attempts"` // 1 initial + MaxRetries, frozen at creation
	RetryPolicy  RetryPolicy    `json:"retry_policy"`
	NextRetryAt  *time.Time     `json:"next_retry_at,omitempty"`

	ResponseStatusCode *int    `json:"response_status_code,omitempty"`
	ResponseBody       *string `json:"response_body,omitempty"`
	LastError          *string `json:"last_error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MarkSuccess transitions the job to its SUCCESS terminal state.
func (j *DeliveryJob) MarkSuccess(statusCode int, body string, now time.Time) {
	j.AttemptsMade++
	j.Status = DeliveryStatusSuccess
	j.ResponseStatusCode = &statusCode
	j.ResponseBody = &body
	j.LastError = nil
	j.NextRetryAt = nil
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailure records a failed attempt: either schedules the next retry
// or, when attempts are exhausted, transitions to the FAILED terminal
// state. statusCode is nil on transport errors.
func (j *DeliveryJob) MarkFailure(statusCode *int, body string, errMsg string, now time.Time) {
	j.AttemptsMade++
	j.ResponseStatusCode = statusCode
	if body != "" {
		j.ResponseBody = &body
	} else {
		j.ResponseBody = nil
	}
	if errMsg != "" {
		j.LastError = &errMsg
	} else {
		j.LastError = nil
	}
	j.UpdatedAt = now

	if j.AttemptsMade >= j.MaxAttempts {
		j.Status = DeliveryStatusFailed
		j.NextRetryAt = nil
		j.CompletedAt = &now
		return
	}

	next := now.Add(j.RetryPolicy.BackoffDelay(j.AttemptsMade))
	j.Status = DeliveryStatusPending
	j.NextRetryAt = &next
}

// DeliveryOutcome is the recorded result of a single attempt.
type DeliveryOutcome string

const (
	DeliveryOutcomeSuccess DeliveryOutcome = "SUCCESS"
	DeliveryOutcomeFailed  DeliveryOutcome = "FAILED"
)

// DeliveryLogEntry is the append-only audit record of one attempt.
// Entries are never updated or deleted.
type DeliveryLogEntry struct {
	ID            uuid.UUID       `json:"id"`
	JobID         uuid.UUID       `json:"job_id"`
	AttemptNumber int             `json:"attempt_number"`
	Outcome       DeliveryOutcome `json:"outcome"`
	StatusCode    *int            `json:"status_code,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	LatencyMs     int64           `json:"latency_ms"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
