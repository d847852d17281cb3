package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type auditService struct {
	repo   ports.AuditRepository
	logger zerolog.Logger
}

// NewAuditService wires audit trail recording. Failures are logged and
// swallowed so auditing can never fail the operation being audited.
func NewAuditService(repo ports.AuditRepository, logger zerolog.Logger) ports.AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, actx domain.AuditContext, action domain.AuditAction, resourceType, resourceID string, details map[string]any) {
	entry := &domain.AuditLog{
		ID:           uuid.New(),
		MerchantID:   actx.MerchantID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    actx.IPAddress,
		RequestID:    actx.RequestID,
		CreatedAt:    time.Now().UTC(),
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = string(raw)
		}
	}

	// Detached from the request context so a cancelled request still
	// gets its audit entry.
	if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error().Err(err).
			Str("action", string(action)).
			Str("resource_id", resourceID).
			Msg("failed to write audit log entry")
	}
}
