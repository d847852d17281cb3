package handler

import (
	"github.com/PayStell/paystell-webhooks/internal/adapter/http/dto"
	"github.com/PayStell/paystell-webhooks/internal/adapter/http/middleware"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"
	"github.com/PayStell/paystell-webhooks/pkg/apperror"
	"github.com/PayStell/paystell-webhooks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler handles merchant webhook subscription management.
type WebhookHandler struct {
	subSvc     ports.SubscriptionService
	gatewaySvc ports.GatewayService
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(subSvc ports.SubscriptionService, gatewaySvc ports.GatewayService) *WebhookHandler {
	return &WebhookHandler{subSvc: subSvc, gatewaySvc: gatewaySvc}
}

// Register creates the merchant's webhook subscription.
// POST /merchants/webhooks/register
func (h *WebhookHandler) Register(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RegisterWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	in := req.ToRegisterInput()
	in.MerchantID = merchantID

	sub, err := h.subSvc.Register(c.Request.Context(), middleware.AuditContext(c), in)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The only place the full secret is ever returned.
	response.Created(c, dto.FromSubscription(sub))
}

// Update modifies the merchant's webhook subscription.
// PUT /merchants/webhooks/register/:id
func (h *WebhookHandler) Update(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	subID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid subscription id"))
		return
	}

	var req dto.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	// The path id must name the caller's own active subscription.
	current, err := h.subSvc.Get(c.Request.Context(), merchantID, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	if current == nil || current.ID != subID {
		response.Error(c, apperror.ErrWebhookNotFound())
		return
	}

	sub, err := h.subSvc.Update(c.Request.Context(), middleware.AuditContext(c), merchantID, req.ToUpdateInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.FromSubscription(sub)
	resp.SecretKey = sub.MaskedSecret()
	response.OK(c, resp)
}

// Get returns the merchant's webhook subscription with a masked secret.
// GET /merchants/webhooks
func (h *WebhookHandler) Get(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	sub, err := h.subSvc.Get(c.Request.Context(), merchantID, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	if sub == nil {
		response.Error(c, apperror.ErrWebhookNotFound())
		return
	}

	response.OK(c, dto.FromSubscription(sub))
}

// Delete soft-deletes the merchant's webhook subscription.
// DELETE /merchants/webhooks
func (h *WebhookHandler) Delete(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	deleted, err := h.subSvc.Delete(c.Request.Context(), middleware.AuditContext(c), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.Error(c, apperror.ErrWebhookNotFound())
		return
	}

	response.NoContent(c)
}

// Test sends a synthetic test notification to the merchant's endpoint.
// POST /merchants/webhook/test
func (h *WebhookHandler) Test(c *gin.Context) {
	merchantID, ok := middleware.MerchantID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.gatewaySvc.SendTest(c.Request.Context(), merchantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TestWebhookResponse{
		JobID:        result.JobID.String(),
		Status:       string(result.Job.Status),
		AttemptsMade: result.Job.AttemptsMade,
		Payload:      result.Payload,
	})
}
