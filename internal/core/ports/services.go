package ports

import (
	"context"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"

	"github.com/google/uuid"
)

// SignatureService signs and verifies canonical payload bytes with a
// per-merchant secret. Implementations must be safe for concurrent use
// and Verify must use constant-time comparison.
type SignatureService interface {
	Sign(secretKey string, payload []byte) string
	Verify(secretKey string, payload []byte, signature string) bool
}

// PayloadNormalizer validates an arbitrary inbound JSON body and maps
// it into the canonical WebhookPayload. Pure: no store access, no side
// effects. Violations return an *apperror.AppError carrying field errors.
type PayloadNormalizer interface {
	Normalize(raw []byte) (*domain.WebhookPayload, error)
}

// RegisterSubscriptionInput holds validated input for subscription
// registration. Nil policy fields fall back to defaults; out-of-range
// values are clamped.
type RegisterSubscriptionInput struct {
	MerchantID          uuid.UUID
	URL                 string
	EventTypes          []domain.EventType
	SecretKey           *string
	MaxRetries          *int
	InitialRetryDelayMs *int64
	MaxRetryDelayMs     *int64
}

// UpdateSubscriptionInput holds partial-update input: only non-nil
// fields are applied.
type UpdateSubscriptionInput struct {
	URL                 *string
	EventTypes          *[]domain.EventType
	SecretKey           *string
	MaxRetries          *int
	InitialRetryDelayMs *int64
	MaxRetryDelayMs     *int64
}

// SubscriptionService manages the one-per-merchant webhook configuration.
type SubscriptionService interface {
	Register(ctx context.Context, actx domain.AuditContext, in RegisterSubscriptionInput) (*domain.Subscription, error)
	Update(ctx context.Context, actx domain.AuditContext, merchantID uuid.UUID, in UpdateSubscriptionInput) (*domain.Subscription, error)
	// Get returns (nil, nil) when no active subscription exists. The
	// returned secret is masked unless includeSecret is set.
	Get(ctx context.Context, merchantID uuid.UUID, includeSecret bool) (*domain.Subscription, error)
	// Delete soft-deletes; the second call returns false, not an error.
	Delete(ctx context.Context, actx domain.AuditContext, merchantID uuid.UUID) (bool, error)
}

// DeliveryService is the retry state machine for outbound notifications.
type DeliveryService interface {
	// Submit freezes the payload, signs it once, persists the job and
	// performs the first attempt synchronously. Delivery failures are
	// absorbed into job state; only persistence failures return errors.
	Submit(ctx context.Context, sub *domain.Subscription, payload *domain.WebhookPayload) (*domain.DeliveryJob, error)
	// Attempt performs one delivery attempt for a PENDING job and
	// applies the resulting state transition. Invoked by Submit for
	// the first attempt and by the retry scheduler afterwards.
	Attempt(ctx context.Context, job *domain.DeliveryJob) error
}

// InboundResult reports how an inbound anchor notification was handled.
type InboundResult struct {
	JobID *uuid.UUID `json:"job_id,omitempty"`
	// Skipped is set when the merchant's subscription does not include
	// the event type; the notification is acknowledged but no job is
	// created.
	Skipped bool `json:"skipped,omitempty"`
}

// TestResult carries the synthetic payload sent by the test path.
type TestResult struct {
	Job     *domain.DeliveryJob    `json:"-"`
	JobID   uuid.UUID              `json:"job_id"`
	Payload *domain.WebhookPayload `json:"payload"`
}

// GatewayService ingests inbound anchor webhooks and drives delivery.
type GatewayService interface {
	HandleInbound(ctx context.Context, merchantID uuid.UUID, rawBody []byte, signature string) (*InboundResult, error)
	// SendTest runs the same pipeline with a synthetic zero-amount
	// payload, bypassing inbound signature verification.
	SendTest(ctx context.Context, merchantID uuid.UUID) (*TestResult, error)
}

// AuditService records audited actions; implementations must never
// fail the calling operation.
type AuditService interface {
	Record(ctx context.Context, actx domain.AuditContext, action domain.AuditAction, resourceType, resourceID string, details map[string]any)
}

// TokenService handles JWT token operations for the merchant-facing
// management API.
type TokenService interface {
	Generate(merchantID uuid.UUID) (string, time.Time, error)
	Validate(tokenString string) (uuid.UUID, error)
}

// JobLocker guards that at most one delivery attempt per job is in
// flight at any time.
type JobLocker interface {
	// Acquire returns true when the lock was obtained.
	Acquire(ctx context.Context, jobID uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, jobID uuid.UUID) error
}
