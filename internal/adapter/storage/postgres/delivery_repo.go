package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DeliveryJobRepo implements ports.DeliveryJobRepository.
type DeliveryJobRepo struct {
	pool Pool
}

// NewDeliveryJobRepo creates a new DeliveryJobRepo.
func NewDeliveryJobRepo(pool Pool) *DeliveryJobRepo {
	return &DeliveryJobRepo{pool: pool}
}

const deliveryJobColumns = `id, subscription_id, merchant_id, url, payload, headers, signature,
	status, attempts_made, max_attempts, max_retries, initial_retry_delay_ms, max_retry_delay_ms,
	next_retry_at, response_status_code, response_body, last_error, created_at, completed_at, updated_at`

func scanDeliveryJob(row pgx.Row) (*domain.DeliveryJob, error) {
	j := &domain.DeliveryJob{}
	var headers []byte
	err := row.Scan(
		&j.ID, &j.SubscriptionID, &j.MerchantID, &j.URL, &j.Payload, &headers, &j.Signature,
		&j.Status, &j.AttemptsMade, &j.MaxAttempts,
		&j.RetryPolicy.MaxRetries, &j.RetryPolicy.InitialRetryDelayMs, &j.RetryPolicy.MaxRetryDelayMs,
		&j.NextRetryAt, &j.ResponseStatusCode, &j.ResponseBody, &j.LastError,
		&j.CreatedAt, &j.CompletedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &j.Headers); err != nil {
			return nil, fmt.Errorf("decode job headers: %w", err)
		}
	}
	return j, nil
}

// Create inserts a new delivery job.
func (r *DeliveryJobRepo) Create(ctx context.Context, j *domain.DeliveryJob) error {
	headers, err := json.Marshal(j.Headers)
	if err != nil {
		return fmt.Errorf("encode job headers: %w", err)
	}

	query := `INSERT INTO delivery_jobs (id, subscription_id, merchant_id, url, payload, headers, signature,
		status, attempts_made, max_attempts, max_retries, initial_retry_delay_ms, max_retry_delay_ms,
		next_retry_at, response_status_code, response_body, last_error, created_at, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err = r.pool.Exec(ctx, query,
		j.ID, j.SubscriptionID, j.MerchantID, j.URL, j.Payload, headers, j.Signature,
		j.Status, j.AttemptsMade, j.MaxAttempts,
		j.RetryPolicy.MaxRetries, j.RetryPolicy.InitialRetryDelayMs, j.RetryPolicy.MaxRetryDelayMs,
		j.NextRetryAt, j.ResponseStatusCode, j.ResponseBody, j.LastError,
		j.CreatedAt, j.CompletedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery job: %w", err)
	}
	return nil
}

// GetByID fetches a delivery job by id, or nil when absent.
func (r *DeliveryJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryJob, error) {
	query := `SELECT ` + deliveryJobColumns + ` FROM delivery_jobs WHERE id = $1`

	j, err := scanDeliveryJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get delivery job by id: %w", err)
	}
	return j, nil
}

// Update persists the mutable state of a job after an attempt.
func (r *DeliveryJobRepo) Update(ctx context.Context, j *domain.DeliveryJob) error {
	query := `UPDATE delivery_jobs
		SET status=$1, attempts_made=$2, next_retry_at=$3, response_status_code=$4,
			response_body=$5, last_error=$6, completed_at=$7, updated_at=$8
		WHERE id=$9`

	_, err := r.pool.Exec(ctx, query,
		j.Status, j.AttemptsMade, j.NextRetryAt, j.ResponseStatusCode,
		j.ResponseBody, j.LastError, j.CompletedAt, j.UpdatedAt, j.ID,
	)
	if err != nil {
		return fmt.Errorf("update delivery job: %w", err)
	}
	return nil
}

// ClaimDue atomically picks up to limit PENDING jobs whose retry time
// has passed and leases them until leaseUntil. SKIP LOCKED lets
// concurrent schedulers claim disjoint batches; pushing next_retry_at
// to the lease horizon means a crashed worker's jobs simply become due
// again instead of being stuck.
func (r *DeliveryJobRepo) ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]domain.DeliveryJob, error) {
	query := `UPDATE delivery_jobs
		SET next_retry_at = $2, updated_at = $2
		WHERE id IN (
			SELECT id FROM delivery_jobs
			WHERE status = 'PENDING' AND next_retry_at <= $1
			ORDER BY next_retry_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + deliveryJobColumns

	rows, err := r.pool.Query(ctx, query, now, leaseUntil, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due delivery jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.DeliveryJob
	for rows.Next() {
		j, err := scanDeliveryJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed delivery job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claimed delivery jobs: %w", err)
	}
	return jobs, nil
}
