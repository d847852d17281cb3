package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"
	"github.com/PayStell/paystell-webhooks/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type subscriptionService struct {
	subs       ports.SubscriptionRepository
	merchants  ports.MerchantDirectory
	transactor ports.DBTransactor
	audit      ports.AuditService
	logger     zerolog.Logger
}

// NewSubscriptionService wires the merchant-facing webhook configuration
// operations.
func NewSubscriptionService(
	subs ports.SubscriptionRepository,
	merchants ports.MerchantDirectory,
	transactor ports.DBTransactor,
	audit ports.AuditService,
	logger zerolog.Logger,
) ports.SubscriptionService {
	return &subscriptionService{
		subs:       subs,
		merchants:  merchants,
		transactor: transactor,
		audit:      audit,
		logger:     logger.With().Str("component", "subscription_service").Logger(),
	}
}

// generateSecret produces a fresh webhook signing secret. The whsec_
// prefix makes leaked secrets easy to recognise in logs and scanners.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate webhook secret: %w", err)
	}
	return "whsec_" + hex.EncodeToString(buf), nil
}

func validateEventTypes(events []domain.EventType) error {
	for _, e := range events {
		if !e.Valid() {
			return apperror.Validation(fmt.Sprintf("unknown event type %q", e))
		}
	}
	return nil
}

func (s *subscriptionService) Register(ctx context.Context, actx domain.AuditContext, in ports.RegisterSubscriptionInput) (*domain.Subscription, error) {
	if err := domain.ValidateWebhookURL(in.URL); err != nil {
		return nil, apperror.ErrInvalidURL(in.URL)
	}
	if err := validateEventTypes(in.EventTypes); err != nil {
		return nil, err
	}

	merchant, err := s.merchants.GetByID(ctx, in.MerchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if merchant == nil {
		return nil, apperror.ErrMerchantNotFound()
	}
	if !merchant.IsActive {
		return nil, apperror.ErrMerchantInactive()
	}

	existing, err := s.subs.GetActiveByMerchant(ctx, in.MerchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyExists()
	}

	secret := ""
	if in.SecretKey != nil && *in.SecretKey != "" {
		secret = *in.SecretKey
	} else {
		secret, err = generateSecret()
		if err != nil {
			return nil, apperror.InternalError(err)
		}
	}

	policy := domain.DefaultRetryPolicy()
	if in.MaxRetries != nil {
		policy.MaxRetries = *in.MaxRetries
	}
	if in.InitialRetryDelayMs != nil {
		policy.InitialRetryDelayMs = *in.InitialRetryDelayMs
	}
	if in.MaxRetryDelayMs != nil {
		policy.MaxRetryDelayMs = *in.MaxRetryDelayMs
	}
	policy.Clamp()

	now := time.Now().UTC()
	sub := &domain.Subscription{
		ID:          uuid.New(),
		MerchantID:  in.MerchantID,
		URL:         in.URL,
		SecretKey:   secret,
		EventTypes:  in.EventTypes,
		IsActive:    true,
		RetryPolicy: policy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.subs.CreateTx(ctx, tx, sub); err != nil {
		// The partial unique index closes the check-then-insert race:
		// a concurrent registration surfaces here as a duplicate.
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.ErrAlreadyExists()
		}
		return nil, apperror.ErrDatabaseError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.logger.Info().
		Str("merchant_id", in.MerchantID.String()).
		Str("subscription_id", sub.ID.String()).
		Str("url", sub.URL).
		Msg("webhook subscription registered")

	s.audit.Record(ctx, actx, domain.AuditActionRegisterWebhook, "webhook_subscription", sub.ID.String(), map[string]any{
		"url":         sub.URL,
		"event_types": sub.EventTypes,
	})

	return sub, nil
}

func (s *subscriptionService) Update(ctx context.Context, actx domain.AuditContext, merchantID uuid.UUID, in ports.UpdateSubscriptionInput) (*domain.Subscription, error) {
	sub, err := s.subs.GetActiveByMerchant(ctx, merchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if sub == nil {
		return nil, apperror.ErrWebhookNotFound()
	}

	if in.URL != nil {
		if err := domain.ValidateWebhookURL(*in.URL); err != nil {
			return nil, apperror.ErrInvalidURL(*in.URL)
		}
		sub.URL = *in.URL
	}
	if in.EventTypes != nil {
		if err := validateEventTypes(*in.EventTypes); err != nil {
			return nil, err
		}
		sub.EventTypes = *in.EventTypes
	}
	if in.SecretKey != nil && *in.SecretKey != "" {
		sub.SecretKey = *in.SecretKey
	}
	if in.MaxRetries != nil {
		sub.RetryPolicy.MaxRetries = *in.MaxRetries
	}
	if in.InitialRetryDelayMs != nil {
		sub.RetryPolicy.InitialRetryDelayMs = *in.InitialRetryDelayMs
	}
	if in.MaxRetryDelayMs != nil {
		sub.RetryPolicy.MaxRetryDelayMs = *in.MaxRetryDelayMs
	}
	sub.RetryPolicy.Clamp()
	sub.UpdatedAt = time.Now().UTC()

	if err := s.subs.Update(ctx, sub); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	s.logger.Info().
		Str("merchant_id", merchantID.String()).
		Str("subscription_id", sub.ID.String()).
		Msg("webhook subscription updated")

	s.audit.Record(ctx, actx, domain.AuditActionUpdateWebhook, "webhook_subscription", sub.ID.String(), map[string]any{
		"url":         sub.URL,
		"event_types": sub.EventTypes,
	})

	return sub, nil
}

func (s *subscriptionService) Get(ctx context.Context, merchantID uuid.UUID, includeSecret bool) (*domain.Subscription, error) {
	sub, err := s.subs.GetActiveByMerchant(ctx, merchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if sub == nil {
		return nil, nil
	}
	if !includeSecret {
		masked := *sub
		masked.SecretKey = sub.MaskedSecret()
		return &masked, nil
	}
	return sub, nil
}

func (s *subscriptionService) Delete(ctx context.Context, actx domain.AuditContext, merchantID uuid.UUID) (bool, error) {
	deleted, err := s.subs.Deactivate(ctx, merchantID)
	if err != nil {
		return false, apperror.ErrDatabaseError(err)
	}
	if !deleted {
		return false, nil
	}

	s.logger.Info().
		Str("merchant_id", merchantID.String()).
		Msg("webhook subscription deactivated")

	s.audit.Record(ctx, actx, domain.AuditActionDeleteWebhook, "webhook_subscription", merchantID.String(), nil)

	return true, nil
}
