package service

import (
	"context"
	"errors"
	"testing"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"
	"github.com/PayStell/paystell-webhooks/internal/core/ports/mocks"
	"github.com/PayStell/paystell-webhooks/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type gatewayFixture struct {
	merchants *mocks.MockMerchantDirectory
	subs      *mocks.MockSubscriptionRepository
	delivery  *mocks.MockDeliveryService
	audit     *mocks.MockAuditService
	signer    ports.SignatureService
	svc       ports.GatewayService
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	ctrl := gomock.NewController(t)
	f := &gatewayFixture{
		merchants: mocks.NewMockMerchantDirectory(ctrl),
		subs:      mocks.NewMockSubscriptionRepository(ctrl),
		delivery:  mocks.NewMockDeliveryService(ctrl),
		audit:     mocks.NewMockAuditService(ctrl),
		signer:    NewSignatureService(),
	}
	f.svc = NewGatewayService(f.merchants, f.subs, f.delivery, f.signer, NewPayloadNormalizer(), f.audit, zerolog.Nop())
	return f
}

func inboundBody(merchantID uuid.UUID, eventType domain.EventType) []byte {
	return []byte(`{
		"transactionId": "tx-001",
		"status": "completed",
		"amount": "42.00",
		"merchantId": "` + merchantID.String() + `",
		"timestamp": "2026-08-29T12:00:00Z",
		"eventType": "` + string(eventType) + `",
		"reqMethod": "POST"
	}`)
}

func TestGatewayService_HandleInbound(t *testing.T) {
	merchantID := uuid.New()
	merchant := &domain.Merchant{ID: merchantID, IsActive: true, Secret: "anchor-secret"}
	sub := &domain.Subscription{
		ID:         uuid.New(),
		MerchantID: merchantID,
		URL:        "https://merchant.example.com/hooks",
		SecretKey:  "whsec_x",
		EventTypes: []domain.EventType{domain.EventTransactionCreated},
		IsActive:   true,
	}

	t.Run("valid notification creates a delivery job", func(t *testing.T) {
		f := newGatewayFixture(t)
		body := inboundBody(merchantID, domain.EventTransactionCreated)
		sig := f.signer.Sign(merchant.Secret, body)
		job := &domain.DeliveryJob{ID: uuid.New()}

		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(merchant, nil)
		f.subs.EXPECT().GetActiveByMerchant(gomock.Any(), merchantID).Return(sub, nil)
		f.delivery.EXPECT().Submit(gomock.Any(), sub, gomock.Any()).Return(job, nil)

		res, err := f.svc.HandleInbound(context.Background(), merchantID, body, sig)
		require.NoError(t, err)
		require.NotNil(t, res.JobID)
		assert.Equal(t, job.ID, *res.JobID)
		assert.False(t, res.Skipped)
	})

	t.Run("empty body", func(t *testing.T) {
		f := newGatewayFixture(t)

		_, err := f.svc.HandleInbound(context.Background(), merchantID, nil, "sig")
		assert.Equal(t, "MISSING_PARAMETERS", appErrCode(t, err))
	})

	t.Run("missing signature header", func(t *testing.T) {
		f := newGatewayFixture(t)

		_, err := f.svc.HandleInbound(context.Background(), merchantID, []byte(`{}`), "")
		assert.Equal(t, "MISSING_PARAMETERS", appErrCode(t, err))
	})

	t.Run("unknown merchant", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(nil, nil)

		_, err := f.svc.HandleInbound(context.Background(), merchantID, []byte(`{}`), "sig")
		assert.Equal(t, "MERCHANT_NOT_FOUND", appErrCode(t, err))
	})

	t.Run("inactive merchant", func(t *testing.T) {
		f := newGatewayFixture(t)
		inactive := &domain.Merchant{ID: merchantID, IsActive: false, Secret: "anchor-secret"}
		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(inactive, nil)

		_, err := f.svc.HandleInbound(context.Background(), merchantID, []byte(`{}`), "sig")
		assert.Equal(t, "MERCHANT_INACTIVE", appErrCode(t, err))
	})

	t.Run("no subscription", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(merchant, nil)
		f.subs.EXPECT().GetActiveByMerchant(gomock.Any(), merchantID).Return(nil, nil)

		_, err := f.svc.HandleInbound(context.Background(), merchantID, []byte(`{}`), "sig")
		assert.Equal(t, "WEBHOOK_NOT_FOUND", appErrCode(t, err))
	})

	t.Run("bad signature creates no job", func(t *testing.T) {
		f := newGatewayFixture(t)
		body := inboundBody(merchantID, domain.EventTransactionCreated)

		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(merchant, nil)
		f.subs.EXPECT().GetActiveByMerchant(gomock.Any(), merchantID).Return(sub, nil)
		// delivery.Submit has no expectation: any call fails the test.

		_, err := f.svc.HandleInbound(context.Background(), merchantID, body, "deadbeef")
		assert.Equal(t, "INVALID_SIGNATURE", appErrCode(t, err))
	})

	t.Run("invalid payload reports field errors", func(t *testing.T) {
		f := newGatewayFixture(t)
		body := []byte(`{"merchantId": "` + merchantID.String() + `"}`)
		sig := f.signer.Sign(merchant.Secret, body)

		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(merchant, nil)
		f.subs.EXPECT().GetActiveByMerchant(gomock.Any(), merchantID).Return(sub, nil)

		_, err := f.svc.HandleInbound(context.Background(), merchantID, body, sig)
		require.Error(t, err)

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "INVALID_PAYLOAD", appErr.Code)
		assert.NotEmpty(t, appErr.Fields)
	})

	t.Run("payload merchant mismatch", func(t *testing.T) {
		f := newGatewayFixture(t)
		body := inboundBody(uuid.New(), domain.EventTransactionCreated) // different merchant in body
		sig := f.signer.Sign(merchant.Secret, body)

		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(merchant, nil)
		f.subs.EXPECT().GetActiveByMerchant(gomock.Any(), merchantID).Return(sub, nil)

		_, err := f.svc.HandleInbound(context.Background(), merchantID, body, sig)
		require.Error(t, err)

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "INVALID_PAYLOAD", appErr.Code)
		require.Len(t, appErr.Fields, 1)
		assert.Equal(t, "merchantId", appErr.Fields[0].Field)
	})

	t.Run("unsubscribed event type is acknowledged but skipped", func(t *testing.T) {
		f := newGatewayFixture(t)
		body := inboundBody(merchantID, domain.EventTransactionStatusChanged)
		sig := f.signer.Sign(merchant.Secret, body)

		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(merchant, nil)
		f.subs.EXPECT().GetActiveByMerchant(gomock.Any(), merchantID).Return(sub, nil)

		res, err := f.svc.HandleInbound(context.Background(), merchantID, body, sig)
		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.Nil(t, res.JobID)
	})

	t.Run("empty event type set delivers everything", func(t *testing.T) {
		f := newGatewayFixture(t)
		wildcard := *sub
		wildcard.EventTypes = nil
		body := inboundBody(merchantID, domain.EventTransactionStatusChanged)
		sig := f.signer.Sign(merchant.Secret, body)
		job := &domain.DeliveryJob{ID: uuid.New()}

		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(merchant, nil)
		f.subs.EXPECT().GetActiveByMerchant(gomock.Any(), merchantID).Return(&wildcard, nil)
		f.delivery.EXPECT().Submit(gomock.Any(), &wildcard, gomock.Any()).Return(job, nil)

		res, err := f.svc.HandleInbound(context.Background(), merchantID, body, sig)
		require.NoError(t, err)
		require.NotNil(t, res.JobID)
	})
}

func TestGatewayService_SendTest(t *testing.T) {
	merchantID := uuid.New()
	merchant := &domain.Merchant{ID: merchantID, IsActive: true, Secret: "anchor-secret"}
	sub := &domain.Subscription{
		ID:         uuid.New(),
		MerchantID: merchantID,
		URL:        "https://merchant.example.com/hooks",
		SecretKey:  "whsec_x",
		EventTypes: []domain.EventType{domain.EventTransactionCreated}, // TEST_PING not listed
		IsActive:   true,
	}

	t.Run("sends a test ping even when not subscribed to it", func(t *testing.T) {
		f := newGatewayFixture(t)
		job := &domain.DeliveryJob{ID: uuid.New()}

		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(merchant, nil)
		f.subs.EXPECT().GetActiveByMerchant(gomock.Any(), merchantID).Return(sub, nil)
		f.delivery.EXPECT().Submit(gomock.Any(), sub, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *domain.Subscription, p *domain.WebhookPayload) (*domain.DeliveryJob, error) {
				assert.Equal(t, domain.EventTestPing, p.EventType)
				assert.True(t, p.IsTest)
				assert.Equal(t, "0", p.Amount)
				assert.Equal(t, merchantID.String(), p.MerchantID)
				return job, nil
			})
		f.audit.EXPECT().Record(gomock.Any(), gomock.Any(), domain.AuditActionTestWebhook, "webhook_subscription", sub.ID.String(), gomock.Any())

		res, err := f.svc.SendTest(context.Background(), merchantID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, res.JobID)
		assert.Equal(t, domain.EventTestPing, res.Payload.EventType)
	})

	t.Run("no subscription configured", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(merchant, nil)
		f.subs.EXPECT().GetActiveByMerchant(gomock.Any(), merchantID).Return(nil, nil)

		_, err := f.svc.SendTest(context.Background(), merchantID)
		assert.Equal(t, "WEBHOOK_NOT_FOUND", appErrCode(t, err))
	})

	t.Run("unknown merchant", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.merchants.EXPECT().GetByID(gomock.Any(), merchantID).Return(nil, nil)

		_, err := f.svc.SendTest(context.Background(), merchantID)
		assert.Equal(t, "MERCHANT_NOT_FOUND", appErrCode(t, err))
	})
}
