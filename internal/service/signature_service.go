package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/PayStell/paystell-webhooks/internal/core/ports"
)

type signatureService struct{}

// NewSignatureService returns the HMAC-SHA256 implementation used for
// both outbound delivery signing and inbound anchor verification.
func NewSignatureService() ports.SignatureService {
	return &signatureService{}
}

func (s *signatureService) Sign(secretKey string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *signatureService) Verify(secretKey string, payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := s.Sign(secretKey, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
