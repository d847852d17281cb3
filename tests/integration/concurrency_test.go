package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentRegistrations fires parallel registration requests for the
// same merchant and verifies that exactly one subscription wins. The rest
// must see ALREADY_EXISTS, never a second active subscription.
func TestConcurrentRegistrations(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	merchant := app.addMerchant(t)
	token := app.token(t, merchant.ID)

	concurrency := 20
	var wg sync.WaitGroup
	var created atomic.Int64
	var conflicts atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := []byte(`{"url":"https://merchant.example.com/hooks"}`)
			req, err := http.NewRequest(http.MethodPost, app.server.URL+"/merchants/webhooks/register", bytes.NewReader(body))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created.Load())
	assert.Equal(t, int64(concurrency-1), conflicts.Load())

	sub, err := app.subs.GetActiveByMerchant(context.Background(), merchant.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
}

// TestConcurrentSweeps runs overlapping scheduler sweeps against a single
// due job. The claim lease plus the per-job Redis lock must keep the
// receiver from seeing the same attempt twice.
func TestConcurrentSweeps(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	merchant := app.addMerchant(t)
	token := app.token(t, merchant.ID)

	var hits atomic.Int64
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	register(t, app, token, "https://merchant.example.com/hooks", nil)
	sub, err := app.subs.GetActiveByMerchant(context.Background(), merchant.ID)
	require.NoError(t, err)
	sub.URL = receiver.URL
	require.NoError(t, app.subs.Update(context.Background(), sub))

	// Seed a due PENDING job directly, bypassing the inline first attempt.
	payload := &domain.WebhookPayload{
		TransactionID: "tx-sweep",
		Status:        "completed",
		MerchantID:    merchant.ID.String(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EventType:     domain.EventTransactionCreated,
		ReqMethod:     http.MethodPost,
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Second)
	job := &domain.DeliveryJob{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		MerchantID:     merchant.ID,
		URL:            sub.URL,
		Payload:        raw,
		Status:         domain.DeliveryStatusPending,
		MaxAttempts:    sub.RetryPolicy.MaxRetries + 1,
		RetryPolicy:    sub.RetryPolicy,
		NextRetryAt:    &past,
		CreatedAt:      past,
		UpdatedAt:      past,
	}
	require.NoError(t, app.jobs.Create(context.Background(), job))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = app.scheduler.Sweep(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), hits.Load())

	got, err := app.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusSuccess, got.Status)
	assert.Equal(t, 1, got.AttemptsMade)
}
