package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// SubscriptionRepo implements ports.SubscriptionRepository.
type SubscriptionRepo struct {
	pool Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepo.
func NewSubscriptionRepo(pool Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, merchant_id, url, secret_key, event_types, is_active,
	max_retries, initial_retry_delay_ms, max_retry_delay_ms, created_at, updated_at`

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	s := &domain.Subscription{}
	var events []string
	err := row.Scan(
		&s.ID, &s.MerchantID, &s.URL, &s.SecretKey, &events, &s.IsActive,
		&s.RetryPolicy.MaxRetries, &s.RetryPolicy.InitialRetryDelayMs, &s.RetryPolicy.MaxRetryDelayMs,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.EventTypes = make([]domain.EventType, 0, len(events))
	for _, e := range events {
		s.EventTypes = append(s.EventTypes, domain.EventType(e))
	}
	return s, nil
}

func eventStrings(events []domain.EventType) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, string(e))
	}
	return out
}

// CreateTx inserts a subscription inside the caller's transaction. The
// partial unique index on (merchant_id) WHERE is_active reports a
// concurrent duplicate as domain.ErrDuplicate.
func (r *SubscriptionRepo) CreateTx(ctx context.Context, tx pgx.Tx, s *domain.Subscription) error {
	query := `INSERT INTO webhook_subscriptions (id, merchant_id, url, secret_key, event_types, is_active,
		max_retries, initial_retry_delay_ms, max_retry_delay_ms, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		s.ID, s.MerchantID, s.URL, s.SecretKey, eventStrings(s.EventTypes), s.IsActive,
		s.RetryPolicy.MaxRetries, s.RetryPolicy.InitialRetryDelayMs, s.RetryPolicy.MaxRetryDelayMs,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert webhook subscription: %w", err)
	}
	return nil
}

// GetActiveByMerchant fetches the merchant's active subscription, or
// nil when none exists.
func (r *SubscriptionRepo) GetActiveByMerchant(ctx context.Context, merchantID uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM webhook_subscriptions WHERE merchant_id = $1 AND is_active = TRUE`

	s, err := scanSubscription(r.pool.QueryRow(ctx, query, merchantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active subscription by merchant: %w", err)
	}
	return s, nil
}

// GetByID fetches a subscription by id regardless of active state.
func (r *SubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM webhook_subscriptions WHERE id = $1`

	s, err := scanSubscription(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription by id: %w", err)
	}
	return s, nil
}

// Update persists changes to a subscription.
func (r *SubscriptionRepo) Update(ctx context.Context, s *domain.Subscription) error {
	query := `UPDATE webhook_subscriptions
		SET url=$1, secret_key=$2, event_types=$3, max_retries=$4,
			initial_retry_delay_ms=$5, max_retry_delay_ms=$6, updated_at=$7
		WHERE id=$8`

	_, err := r.pool.Exec(ctx, query,
		s.URL, s.SecretKey, eventStrings(s.EventTypes), s.RetryPolicy.MaxRetries,
		s.RetryPolicy.InitialRetryDelayMs, s.RetryPolicy.MaxRetryDelayMs, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook subscription: %w", err)
	}
	return nil
}

// Deactivate soft-deletes the merchant's active subscription and
// reports whether a row was affected.
func (r *SubscriptionRepo) Deactivate(ctx context.Context, merchantID uuid.UUID) (bool, error) {
	query := `UPDATE webhook_subscriptions
		SET is_active = FALSE, updated_at = NOW()
		WHERE merchant_id = $1 AND is_active = TRUE`

	tag, err := r.pool.Exec(ctx, query, merchantID)
	if err != nil {
		return false, fmt.Errorf("deactivate webhook subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
