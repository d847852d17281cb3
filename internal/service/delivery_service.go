package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"
	"github.com/PayStell/paystell-webhooks/internal/metrics"
	"github.com/PayStell/paystell-webhooks/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPClient is the slice of http.Client the delivery loop needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DeliveryConfig tunes a DeliveryService.
type DeliveryConfig struct {
	// AttemptTimeout bounds a single outbound request.
	AttemptTimeout time.Duration
	// LockTTL is the per-job in-flight lock lifetime. It must exceed
	// AttemptTimeout or a slow endpoint could let a second worker in.
	LockTTL time.Duration
	// MaxBodyCapture caps how much of the endpoint's response body is
	// stored on the job and in log entries.
	MaxBodyCapture int
}

type deliveryService struct {
	jobs   ports.DeliveryJobRepository
	logs   ports.DeliveryLogRepository
	signer ports.SignatureService
	locker ports.JobLocker
	client HTTPClient
	cfg    DeliveryConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewDeliveryService wires the outbound delivery state machine.
func NewDeliveryService(
	jobs ports.DeliveryJobRepository,
	logs ports.DeliveryLogRepository,
	signer ports.SignatureService,
	locker ports.JobLocker,
	client HTTPClient,
	cfg DeliveryConfig,
	logger zerolog.Logger,
) ports.DeliveryService {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 15 * time.Second
	}
	if cfg.LockTTL < cfg.AttemptTimeout {
		cfg.LockTTL = cfg.AttemptTimeout * 2
	}
	if cfg.MaxBodyCapture <= 0 {
		cfg.MaxBodyCapture = 4096
	}
	return &deliveryService{
		jobs:   jobs,
		logs:   logs,
		signer: signer,
		locker: locker,
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "delivery_service").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *deliveryService) Submit(ctx context.Context, sub *domain.Subscription, payload *domain.WebhookPayload) (*domain.DeliveryJob, error) {
	body, err := payload.CanonicalBytes()
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	// Signature and headers are computed exactly once here; every
	// retry resends the same bytes under the same signature.
	signature := s.signer.Sign(sub.SecretKey, body)

	now := s.now()
	job := &domain.DeliveryJob{
		ID:             uuid.New(),
		SubscriptionID: sub.ID,
		MerchantID:     sub.MerchantID,
		URL:            sub.URL,
		Payload:        body,
		Signature:      signature,
		Status:         domain.DeliveryStatusPending,
		MaxAttempts:    sub.RetryPolicy.MaxRetries + 1,
		RetryPolicy:    sub.RetryPolicy,
		NextRetryAt:    &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	job.Headers = map[string]string{
		"Content-Type":        "application/json",
		"X-Webhook-Signature": signature,
		"X-Webhook-Id":        job.ID.String(),
		"X-Webhook-Event":     string(payload.EventType),
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	metrics.JobsSubmitted.Inc()

	// First attempt runs inline; its outcome lands in job state, not
	// in the returned error.
	if err := s.Attempt(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *deliveryService) Attempt(ctx context.Context, job *domain.DeliveryJob) error {
	if job.Status.Terminal() {
		return nil
	}

	acquired, err := s.locker.Acquire(ctx, job.ID, s.cfg.LockTTL)
	if err != nil {
		// Lock store outage must not stall deliveries; the claim
		// lease still prevents most duplicate attempts.
		s.logger.Warn().Err(err).Str("job_id", job.ID.String()).Msg("job lock unavailable, proceeding without it")
	} else if !acquired {
		s.logger.Debug().Str("job_id", job.ID.String()).Msg("delivery attempt already in flight, skipping")
		return nil
	} else {
		defer func() {
			if rerr := s.locker.Release(context.WithoutCancel(ctx), job.ID); rerr != nil {
				s.logger.Warn().Err(rerr).Str("job_id", job.ID.String()).Msg("failed to release job lock")
			}
		}()
	}

	now := s.now()
	statusCode, respBody, attemptErr := s.send(ctx, job)
	latency := s.now().Sub(now)
	metrics.DeliveryDuration.Observe(latency.Seconds())

	switch {
	case attemptErr != nil:
		job.MarkFailure(nil, "", attemptErr.Error(), s.now())
	case statusCode >= 200 && statusCode < 300:
		job.MarkSuccess(statusCode, respBody, s.now())
	default:
		code := statusCode
		job.MarkFailure(&code, respBody, fmt.Sprintf("endpoint returned status %d", statusCode), s.now())
	}

	outcome := domain.DeliveryOutcomeFailed
	if job.Status == domain.DeliveryStatusSuccess {
		outcome = domain.DeliveryOutcomeSuccess
	}
	metrics.DeliveryAttempts.WithLabelValues(string(outcome)).Inc()
	if job.Status.Terminal() {
		metrics.JobsCompleted.WithLabelValues(string(job.Status)).Inc()
	}

	entry := &domain.DeliveryLogEntry{
		ID:            uuid.New(),
		JobID:         job.ID,
		AttemptNumber: job.AttemptsMade,
		Outcome:       outcome,
		StatusCode:    job.ResponseStatusCode,
		ErrorMessage:  job.LastError,
		LatencyMs:     latency.Milliseconds(),
		OccurredAt:    now,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to append delivery log entry")
	}

	if err := s.jobs.Update(ctx, job); err != nil {
		return apperror.ErrDatabaseError(err)
	}

	evt := s.logger.Info()
	if outcome == domain.DeliveryOutcomeFailed {
		evt = s.logger.Warn()
	}
	evt.
		Str("job_id", job.ID.String()).
		Str("merchant_id", job.MerchantID.String()).
		Int("attempt", job.AttemptsMade).
		Int("max_attempts", job.MaxAttempts).
		Str("status", string(job.Status)).
		Dur("latency", latency).
		Msg("webhook delivery attempt")

	return nil
}

// send performs one HTTP POST and returns the status code and a capped
// slice of the response body. A non-nil error means the request never
// produced a response.
func (s *deliveryService) send(ctx context.Context, job *domain.DeliveryJob) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, job.URL, bytes.NewReader(job.Payload))
	if err != nil {
		return 0, "", err
	}
	for k, v := range job.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	captured, _ := io.ReadAll(io.LimitReader(resp.Body, int64(s.cfg.MaxBodyCapture)))
	return resp.StatusCode, string(captured), nil
}
