package domain

import "encoding/json"

// WebhookPayload is the canonical notification shape delivered to
// merchant endpoints. It is marshaled exactly once at job creation;
// the resulting bytes are what get signed and transmitted, and they
// never change between retry attempts.
type WebhookPayload struct {
	TransactionID   string         `json:"transactionId"`
	TransactionType string         `json:"transactionType,omitempty"`
	Status          string         `json:"status"`
	Amount          string         `json:"amount,omitempty"`
	Asset           string         `json:"asset,omitempty"`
	MerchantID      string         `json:"merchantId"`
	Timestamp       string         `json:"timestamp"` // RFC3339
	EventType       EventType      `json:"eventType"`
	ReqMethod       string         `json:"reqMethod"`
	Nonce           string         `json:"nonce,omitempty"`
	PaymentMethod   string         `json:"paymentMethod,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	IsTest          bool           `json:"isTest,omitempty"`
}

// CanonicalBytes returns the byte sequence that is signed and sent.
func (p *WebhookPayload) CanonicalBytes() ([]byte, error) {
	return json.Marshal(p)
}
