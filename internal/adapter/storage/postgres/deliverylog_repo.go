package postgres

import (
	"context"
	"fmt"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"

	"github.com/google/uuid"
)

// DeliveryLogRepo implements ports.DeliveryLogRepository.
type DeliveryLogRepo struct {
	pool Pool
}

// NewDeliveryLogRepo creates a new DeliveryLogRepo.
func NewDeliveryLogRepo(pool Pool) *DeliveryLogRepo {
	return &DeliveryLogRepo{pool: pool}
}

// Append inserts one attempt record. The table is append-only.
func (r *DeliveryLogRepo) Append(ctx context.Context, e *domain.DeliveryLogEntry) error {
	query := `INSERT INTO delivery_log_entries (id, job_id, attempt_number, outcome, status_code, error_message, latency_ms, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.JobID, e.AttemptNumber, e.Outcome, e.StatusCode, e.ErrorMessage, e.LatencyMs, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery log entry: %w", err)
	}
	return nil
}

// ListByJob returns all attempt records for a job in attempt order.
func (r *DeliveryLogRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.DeliveryLogEntry, error) {
	query := `SELECT id, job_id, attempt_number, outcome, status_code, error_message, latency_ms, occurred_at
		FROM delivery_log_entries WHERE job_id = $1 ORDER BY attempt_number`

	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list delivery log entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.DeliveryLogEntry
	for rows.Next() {
		var e domain.DeliveryLogEntry
		if err := rows.Scan(&e.ID, &e.JobID, &e.AttemptNumber, &e.Outcome, &e.StatusCode, &e.ErrorMessage, &e.LatencyMs, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan delivery log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery log entries: %w", err)
	}
	return entries, nil
}
