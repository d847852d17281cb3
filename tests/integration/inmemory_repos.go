package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Merchant Directory ---

type inMemoryMerchantDir struct {
	mu        sync.RWMutex
	merchants map[uuid.UUID]*domain.Merchant
}

func newInMemoryMerchantDir() *inMemoryMerchantDir {
	return &inMemoryMerchantDir{merchants: make(map[uuid.UUID]*domain.Merchant)}
}

func (r *inMemoryMerchantDir) add(m *domain.Merchant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.merchants[m.ID] = m
}

func (r *inMemoryMerchantDir) GetByID(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.merchants[id]
	if !ok {
		return nil, nil
	}
	return m, nil
}

// --- In-Memory Subscription Repo ---

type inMemorySubscriptionRepo struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*domain.Subscription
}

func newInMemorySubscriptionRepo() *inMemorySubscriptionRepo {
	return &inMemorySubscriptionRepo{subs: make(map[uuid.UUID]*domain.Subscription)}
}

func (r *inMemorySubscriptionRepo) CreateTx(ctx context.Context, tx pgx.Tx, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Mirror the partial unique index: one active subscription per merchant.
	for _, existing := range r.subs {
		if existing.MerchantID == sub.MerchantID && existing.IsActive && sub.IsActive {
			return domain.ErrDuplicate
		}
	}
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *inMemorySubscriptionRepo) GetActiveByMerchant(ctx context.Context, merchantID uuid.UUID) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subs {
		if s.MerchantID == merchantID && s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemorySubscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *inMemorySubscriptionRepo) Update(ctx context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *inMemorySubscriptionRepo) Deactivate(ctx context.Context, merchantID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.MerchantID == merchantID && s.IsActive {
			s.IsActive = false
			s.UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, nil
}

// --- In-Memory Delivery Job Repo ---

type inMemoryDeliveryJobRepo struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*domain.DeliveryJob
}

func newInMemoryDeliveryJobRepo() *inMemoryDeliveryJobRepo {
	return &inMemoryDeliveryJobRepo{jobs: make(map[uuid.UUID]*domain.DeliveryJob)}
}

func (r *inMemoryDeliveryJobRepo) Create(ctx context.Context, job *domain.DeliveryJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *inMemoryDeliveryJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DeliveryJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (r *inMemoryDeliveryJobRepo) Update(ctx context.Context, job *domain.DeliveryJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *inMemoryDeliveryJobRepo) ClaimDue(ctx context.Context, now time.Time, leaseUntil time.Time, limit int) ([]domain.DeliveryJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*domain.DeliveryJob
	for _, j := range r.jobs {
		if j.Status == domain.DeliveryStatusPending && j.NextRetryAt != nil && !j.NextRetryAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].NextRetryAt.Before(*due[k].NextRetryAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	claimed := make([]domain.DeliveryJob, 0, len(due))
	for _, j := range due {
		lease := leaseUntil
		j.NextRetryAt = &lease
		j.UpdatedAt = now
		claimed = append(claimed, *j)
	}
	return claimed, nil
}

// --- In-Memory Delivery Log Repo ---

type inMemoryDeliveryLogRepo struct {
	mu      sync.RWMutex
	entries map[uuid.UUID][]domain.DeliveryLogEntry
}

func newInMemoryDeliveryLogRepo() *inMemoryDeliveryLogRepo {
	return &inMemoryDeliveryLogRepo{entries: make(map[uuid.UUID][]domain.DeliveryLogEntry)}
}

func (r *inMemoryDeliveryLogRepo) Append(ctx context.Context, entry *domain.DeliveryLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.JobID] = append(r.entries[entry.JobID], *entry)
	return nil
}

func (r *inMemoryDeliveryLogRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.DeliveryLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.DeliveryLogEntry, len(r.entries[jobID]))
	copy(out, r.entries[jobID])
	sort.Slice(out, func(i, k int) bool { return out[i].AttemptNumber < out[k].AttemptNumber })
	return out, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.RWMutex
	entries []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
