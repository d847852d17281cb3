package service

import (
	"context"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"
	"github.com/PayStell/paystell-webhooks/internal/metrics"
	"github.com/PayStell/paystell-webhooks/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type gatewayService struct {
	merchants  ports.MerchantDirectory
	subs       ports.SubscriptionRepository
	delivery   ports.DeliveryService
	signer     ports.SignatureService
	normalizer ports.PayloadNormalizer
	audit      ports.AuditService
	logger     zerolog.Logger
	now        func() time.Time
}

// NewGatewayService wires the inbound anchor notification pipeline.
func NewGatewayService(
	merchants ports.MerchantDirectory,
	subs ports.SubscriptionRepository,
	delivery ports.DeliveryService,
	signer ports.SignatureService,
	normalizer ports.PayloadNormalizer,
	audit ports.AuditService,
	logger zerolog.Logger,
) ports.GatewayService {
	return &gatewayService{
		merchants:  merchants,
		subs:       subs,
		delivery:   delivery,
		signer:     signer,
		normalizer: normalizer,
		audit:      audit,
		logger:     logger.With().Str("component", "gateway_service").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *gatewayService) HandleInbound(ctx context.Context, merchantID uuid.UUID, rawBody []byte, signature string) (*ports.InboundResult, error) {
	if len(rawBody) == 0 {
		metrics.InboundEvents.WithLabelValues("rejected").Inc()
		return nil, apperror.ErrMissingParameters("request body is required")
	}
	if signature == "" {
		metrics.InboundEvents.WithLabelValues("rejected").Inc()
		return nil, apperror.ErrMissingParameters("signature header is required")
	}

	merchant, err := s.merchants.GetByID(ctx, merchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if merchant == nil {
		metrics.InboundEvents.WithLabelValues("rejected").Inc()
		return nil, apperror.ErrMerchantNotFound()
	}
	if !merchant.IsActive {
		metrics.InboundEvents.WithLabelValues("rejected").Inc()
		return nil, apperror.ErrMerchantInactive()
	}

	sub, err := s.subs.GetActiveByMerchant(ctx, merchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if sub == nil {
		metrics.InboundEvents.WithLabelValues("rejected").Inc()
		return nil, apperror.ErrWebhookNotFound()
	}

	// Verification runs over the raw bytes as received, before any
	// parsing can change them.
	if !s.signer.Verify(merchant.Secret, rawBody, signature) {
		s.logger.Warn().Str("merchant_id", merchantID.String()).Msg("inbound webhook signature rejected")
		metrics.InboundEvents.WithLabelValues("rejected").Inc()
		return nil, apperror.ErrInvalidSignature()
	}

	payload, err := s.normalizer.Normalize(rawBody)
	if err != nil {
		metrics.InboundEvents.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if payload.MerchantID != merchantID.String() {
		metrics.InboundEvents.WithLabelValues("rejected").Inc()
		return nil, apperror.ErrInvalidPayload([]apperror.FieldError{
			{Field: "merchantId", Message: "does not match the merchant in the URL"},
		})
	}

	if !sub.AcceptsEvent(payload.EventType) {
		s.logger.Debug().
			Str("merchant_id", merchantID.String()).
			Str("event_type", string(payload.EventType)).
			Msg("event type not subscribed, acknowledging without delivery")
		metrics.InboundEvents.WithLabelValues("skipped").Inc()
		return &ports.InboundResult{Skipped: true}, nil
	}

	job, err := s.delivery.Submit(ctx, sub, payload)
	if err != nil {
		return nil, err
	}
	metrics.InboundEvents.WithLabelValues("accepted").Inc()

	return &ports.InboundResult{JobID: &job.ID}, nil
}

func (s *gatewayService) SendTest(ctx context.Context, merchantID uuid.UUID) (*ports.TestResult, error) {
	merchant, err := s.merchants.GetByID(ctx, merchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if merchant == nil {
		return nil, apperror.ErrMerchantNotFound()
	}
	if !merchant.IsActive {
		return nil, apperror.ErrMerchantInactive()
	}

	sub, err := s.subs.GetActiveByMerchant(ctx, merchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if sub == nil {
		return nil, apperror.ErrWebhookNotFound()
	}

	now := s.now()
	payload := &domain.WebhookPayload{
		TransactionID: "test-" + uuid.NewString(),
		Status:        "test",
		Amount:        "0",
		MerchantID:    merchantID.String(),
		Timestamp:     now.Format(time.RFC3339),
		EventType:     domain.EventTestPing,
		ReqMethod:     "POST",
		Nonce:         uuid.NewString(),
		IsTest:        true,
	}

	// Test pings ignore the event type filter: the whole point is to
	// exercise the merchant's endpoint on demand.
	job, err := s.delivery.Submit(ctx, sub, payload)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditContext{MerchantID: &merchantID}, domain.AuditActionTestWebhook,
		"webhook_subscription", sub.ID.String(), map[string]any{"job_id": job.ID.String()})

	return &ports.TestResult{Job: job, JobID: job.ID, Payload: payload}, nil
}
