package dto

import (
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"
)

// RegisterWebhookRequest is the request body for webhook registration.
type RegisterWebhookRequest struct {
	URL                 string   `json:"url" binding:"required,max=2048"`
	EventTypes          []string `json:"event_types,omitempty"`
	SecretKey           *string  `json:"secret_key,omitempty" binding:"omitempty,min=8,max=256"`
	MaxRetries          *int     `json:"max_retries,omitempty"`
	InitialRetryDelayMs *int64   `json:"initial_retry_delay_ms,omitempty"`
	MaxRetryDelayMs     *int64   `json:"max_retry_delay_ms,omitempty"`
}

// UpdateWebhookRequest is the request body for partial webhook updates.
// Absent fields keep their current values.
type UpdateWebhookRequest struct {
	URL                 *string   `json:"url,omitempty" binding:"omitempty,max=2048"`
	EventTypes          *[]string `json:"event_types,omitempty"`
	SecretKey           *string   `json:"secret_key,omitempty" binding:"omitempty,min=8,max=256"`
	MaxRetries          *int      `json:"max_retries,omitempty"`
	InitialRetryDelayMs *int64    `json:"initial_retry_delay_ms,omitempty"`
	MaxRetryDelayMs     *int64    `json:"max_retry_delay_ms,omitempty"`
}

// WebhookResponse is the subscription shape returned by the management
// API. SecretKey is the full key only in the register response;
// everywhere else it is masked.
type WebhookResponse struct {
	ID          string             `json:"id"`
	MerchantID  string             `json:"merchant_id"`
	URL         string             `json:"url"`
	SecretKey   string             `json:"secret_key"`
	EventTypes  []string           `json:"event_types"`
	IsActive    bool               `json:"is_active"`
	RetryPolicy domain.RetryPolicy `json:"retry_policy"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// TestWebhookResponse is returned by the test delivery endpoint.
type TestWebhookResponse struct {
	JobID        string                 `json:"job_id"`
	Status       string                 `json:"status"`
	AttemptsMade int                    `json:"attempts_made"`
	Payload      *domain.WebhookPayload `json:"payload"`
}

// InboundAcceptedResponse acknowledges an inbound anchor notification.
type InboundAcceptedResponse struct {
	JobID   *string `json:"job_id,omitempty"`
	Skipped bool    `json:"skipped,omitempty"`
}

// ToEventTypes converts wire strings to domain event types without
// validating them; validation happens in the service.
func ToEventTypes(in []string) []domain.EventType {
	if in == nil {
		return nil
	}
	out := make([]domain.EventType, 0, len(in))
	for _, e := range in {
		out = append(out, domain.EventType(e))
	}
	return out
}

// ToRegisterInput maps the request to the service input.
func (r *RegisterWebhookRequest) ToRegisterInput() ports.RegisterSubscriptionInput {
	return ports.RegisterSubscriptionInput{
		URL:                 r.URL,
		EventTypes:          ToEventTypes(r.EventTypes),
		SecretKey:           r.SecretKey,
		MaxRetries:          r.MaxRetries,
		InitialRetryDelayMs: r.InitialRetryDelayMs,
		MaxRetryDelayMs:     r.MaxRetryDelayMs,
	}
}

// ToUpdateInput maps the request to the service input.
func (r *UpdateWebhookRequest) ToUpdateInput() ports.UpdateSubscriptionInput {
	in := ports.UpdateSubscriptionInput{
		URL:                 r.URL,
		SecretKey:           r.SecretKey,
		MaxRetries:          r.MaxRetries,
		InitialRetryDelayMs: r.InitialRetryDelayMs,
		MaxRetryDelayMs:     r.MaxRetryDelayMs,
	}
	if r.EventTypes != nil {
		events := ToEventTypes(*r.EventTypes)
		in.EventTypes = &events
	}
	return in
}

// FromSubscription maps a domain subscription to the wire shape. The
// caller decides what SecretKey contains (full or masked).
func FromSubscription(s *domain.Subscription) *WebhookResponse {
	events := make([]string, 0, len(s.EventTypes))
	for _, e := range s.EventTypes {
		events = append(events, string(e))
	}
	return &WebhookResponse{
		ID:          s.ID.String(),
		MerchantID:  s.MerchantID.String(),
		URL:         s.URL,
		SecretKey:   s.SecretKey,
		EventTypes:  events,
		IsActive:    s.IsActive,
		RetryPolicy: s.RetryPolicy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
