package handler

import (
	"github.com/PayStell/paystell-webhooks/internal/adapter/http/dto"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"
	"github.com/PayStell/paystell-webhooks/pkg/apperror"
	"github.com/PayStell/paystell-webhooks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SignatureHeader carries the anchor's hex HMAC-SHA256 of the raw
// request body on inbound notifications.
const SignatureHeader = "signature"

// InboundHandler receives anchor payment notifications and hands them
// to the gateway pipeline.
type InboundHandler struct {
	gatewaySvc ports.GatewayService
}

// NewInboundHandler creates a new inbound webhook handler.
func NewInboundHandler(gatewaySvc ports.GatewayService) *InboundHandler {
	return &InboundHandler{gatewaySvc: gatewaySvc}
}

// Receive handles an inbound anchor notification.
// POST /webhooks/stellar/:merchantId
func (h *InboundHandler) Receive(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("merchantId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid merchant id"))
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, apperror.Validation("unable to read request body"))
		return
	}

	result, err := h.gatewaySvc.HandleInbound(c.Request.Context(), merchantID, body, c.GetHeader(SignatureHeader))
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.InboundAcceptedResponse{Skipped: result.Skipped}
	if result.JobID != nil {
		id := result.JobID.String()
		resp.JobID = &id
	}
	response.OK(c, resp)
}
