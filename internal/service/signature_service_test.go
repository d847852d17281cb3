package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureService_SignDeterministic(t *testing.T) {
	svc := NewSignatureService()
	payload := []byte(`{"transactionId":"tx-1","amount":"10.00"}`)

	sig1 := svc.Sign("whsec_abc", payload)
	sig2 := svc.Sign("whsec_abc", payload)

	require.NotEmpty(t, sig1)
	assert.Equal(t, sig1, sig2)
	assert.Len(t, sig1, 64) // hex-encoded SHA-256
}

func TestSignatureService_SignKeySensitivity(t *testing.T) {
	svc := NewSignatureService()
	payload := []byte(`{"transactionId":"tx-1"}`)

	assert.NotEqual(t, svc.Sign("key-a", payload), svc.Sign("key-b", payload))
}

func TestSignatureService_VerifyRoundTrip(t *testing.T) {
	svc := NewSignatureService()
	payload := []byte(`{"transactionId":"tx-1","status":"completed"}`)
	sig := svc.Sign("whsec_abc", payload)

	assert.True(t, svc.Verify("whsec_abc", payload, sig))
}

func TestSignatureService_VerifyRejectsTamperedPayload(t *testing.T) {
	svc := NewSignatureService()
	payload := []byte(`{"amount":"10.00"}`)
	sig := svc.Sign("whsec_abc", payload)

	assert.False(t, svc.Verify("whsec_abc", []byte(`{"amount":"99.00"}`), sig))
}

func TestSignatureService_VerifyRejectsWrongKey(t *testing.T) {
	svc := NewSignatureService()
	payload := []byte(`{"amount":"10.00"}`)
	sig := svc.Sign("whsec_abc", payload)

	assert.False(t, svc.Verify("whsec_other", payload, sig))
}

func TestSignatureService_VerifyRejectsEmptySignature(t *testing.T) {
	svc := NewSignatureService()

	assert.False(t, svc.Verify("whsec_abc", []byte(`{}`), ""))
}
