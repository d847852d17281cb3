package domain

import (
	"time"

	"github.com/google/uuid"
)

// Merchant is the slice of the merchant identity the webhook core needs.
// Identity management itself lives in the main backend; this service only
// reads merchants to attribute and verify inbound notifications.
type Merchant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	Secret    string    `json:"-"` // Shared secret for inbound anchor verification, never exposed
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
