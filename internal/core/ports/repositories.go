package ports

import (
	"context"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MerchantDirectory resolves merchant identity. The merchant store is
// owned by the main backend; the webhook core only reads from it.
type MerchantDirectory interface {
	// GetByID returns (nil, nil) when the merchant does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
}

// SubscriptionRepository persists webhook subscriptions.
// CreateTx runs inside a transaction so the one-active-per-merchant
// invariant holds under concurrent registrations (backed by a partial
// unique index; violations surface as domain.ErrDuplicate).
type SubscriptionRepository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, sub *domain.Subscription) error
	GetActiveByMerchant(ctx context.Context, merchantID uuid.UUID) (*domain.Subscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	Update(ctx context.Context, sub *domain.Subscription) error
	// Deactivate soft-deletes the merchant's active subscription and
	// reports whether a row was affected.
	Deactivate(ctx context.Context, merchantID uuid.UUID) (bool, error)
}

// DeliveryJobRepository persists delivery jobs.
type DeliveryJobRepository interface {
	Create(ctx context.Context, job *domain.DeliveryJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryJob, error)
	Update(ctx context.Context, job *domain.DeliveryJob) error
	// ClaimDue atomically claims up to limit PENDING jobs whose
	// next_retry_at has elapsed, pushing their next_retry_at out to
	// leaseUntil so concurrent sweeps cannot double-claim. A claimed
	// job that is never finalized becomes due again when the lease
	// expires.
	ClaimDue(ctx context.Context, now time.Time, leaseUntil time.Time, limit int) ([]domain.DeliveryJob, error)
}

// DeliveryLogRepository persists the append-only per-attempt audit trail.
type DeliveryLogRepository interface {
	Append(ctx context.Context, entry *domain.DeliveryLogEntry) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.DeliveryLogEntry, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
