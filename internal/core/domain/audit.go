package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditContext carries the attribution every mutating subscription
// operation must receive. Passing it explicitly keeps audit entries
// typed inputs instead of a hidden global side channel.
type AuditContext struct {
	MerchantID *uuid.UUID
	IPAddress  string
	RequestID  string
}

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegisterWebhook AuditAction = "REGISTER_WEBHOOK"
	AuditActionUpdateWebhook   AuditAction = "UPDATE_WEBHOOK"
	AuditActionDeleteWebhook   AuditAction = "DELETE_WEBHOOK"
	AuditActionTestWebhook     AuditAction = "TEST_WEBHOOK"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	MerchantID   *uuid.UUID  `json:"merchant_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	RequestID    string      `json:"request_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
