package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubscription() *domain.Subscription {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Subscription{
		ID:         uuid.New(),
		MerchantID: uuid.New(),
		URL:        "https://merchant.example.com/hooks",
		SecretKey:  "whsec_testsecret",
		EventTypes: []domain.EventType{domain.EventTransactionCreated},
		IsActive:   true,
		RetryPolicy: domain.RetryPolicy{
			MaxRetries:          3,
			InitialRetryDelayMs: 5000,
			MaxRetryDelayMs:     300_000,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func subscriptionCols() []string {
	return []string{"id", "merchant_id", "url", "secret_key", "event_types", "is_active",
		"max_retries", "initial_retry_delay_ms", "max_retry_delay_ms", "created_at", "updated_at"}
}

func subscriptionRow(s *domain.Subscription) *pgxmock.Rows {
	return pgxmock.NewRows(subscriptionCols()).AddRow(
		s.ID, s.MerchantID, s.URL, s.SecretKey, eventStrings(s.EventTypes), s.IsActive,
		s.RetryPolicy.MaxRetries, s.RetryPolicy.InitialRetryDelayMs, s.RetryPolicy.MaxRetryDelayMs,
		s.CreatedAt, s.UpdatedAt,
	)
}

func TestSubscriptionRepo_CreateTx(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepo(mock)
	s := newTestSubscription()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_subscriptions").
		WithArgs(s.ID, s.MerchantID, s.URL, s.SecretKey, eventStrings(s.EventTypes), s.IsActive,
			s.RetryPolicy.MaxRetries, s.RetryPolicy.InitialRetryDelayMs, s.RetryPolicy.MaxRetryDelayMs,
			s.CreatedAt, s.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	require.NoError(t, repo.CreateTx(context.Background(), tx, s))
	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepo_CreateTx_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepo(mock)
	s := newTestSubscription()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_subscriptions").
		WithArgs(s.ID, s.MerchantID, s.URL, s.SecretKey, eventStrings(s.EventTypes), s.IsActive,
			s.RetryPolicy.MaxRetries, s.RetryPolicy.InitialRetryDelayMs, s.RetryPolicy.MaxRetryDelayMs,
			s.CreatedAt, s.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "webhook_subscriptions_one_active_per_merchant"})

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.CreateTx(context.Background(), tx, s)
	assert.True(t, errors.Is(err, domain.ErrDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepo_GetActiveByMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepo(mock)
	s := newTestSubscription()

	mock.ExpectQuery("SELECT .+ FROM webhook_subscriptions WHERE merchant_id").
		WithArgs(s.MerchantID).
		WillReturnRows(subscriptionRow(s))

	got, err := repo.GetActiveByMerchant(context.Background(), s.MerchantID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.EventTypes, got.EventTypes)
	assert.Equal(t, s.RetryPolicy, got.RetryPolicy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepo_GetActiveByMerchant_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM webhook_subscriptions WHERE merchant_id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(subscriptionCols()))

	got, err := repo.GetActiveByMerchant(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepo(mock)
	s := newTestSubscription()

	mock.ExpectExec("UPDATE webhook_subscriptions").
		WithArgs(s.URL, s.SecretKey, eventStrings(s.EventTypes), s.RetryPolicy.MaxRetries,
			s.RetryPolicy.InitialRetryDelayMs, s.RetryPolicy.MaxRetryDelayMs, s.UpdatedAt, s.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.Update(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepo_Deactivate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepo(mock)
	merchantID := uuid.New()

	mock.ExpectExec("UPDATE webhook_subscriptions").
		WithArgs(merchantID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	deleted, err := repo.Deactivate(context.Background(), merchantID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepo_Deactivate_NothingActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepo(mock)

	mock.ExpectExec("UPDATE webhook_subscriptions").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	deleted, err := repo.Deactivate(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
