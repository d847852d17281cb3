package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/PayStell/paystell-webhooks/internal/core/domain"
	"github.com/PayStell/paystell-webhooks/internal/core/ports"
	"github.com/PayStell/paystell-webhooks/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

// inboundPayload mirrors the anchor notification body. Validation runs
// against this shape before anything is mapped into the canonical
// domain payload.
type inboundPayload struct {
	TransactionID   string         `json:"transactionId" validate:"required"`
	TransactionType string         `json:"transactionType"`
	Status          string         `json:"status" validate:"required"`
	Amount          string         `json:"amount"`
	Asset           string         `json:"asset"`
	MerchantID      string         `json:"merchantId" validate:"required,uuid"`
	Timestamp       string         `json:"timestamp" validate:"required,iso8601"`
	EventType       string         `json:"eventType" validate:"required,eventtype"`
	ReqMethod       string         `json:"reqMethod" validate:"required,oneof=GET POST PUT PATCH DELETE"`
	Nonce           string         `json:"nonce"`
	PaymentMethod   string         `json:"paymentMethod"`
	Metadata        map[string]any `json:"metadata"`
	IsTest          bool           `json:"isTest"`
}

type payloadNormalizer struct {
	validate *validator.Validate
}

// NewPayloadNormalizer builds the inbound payload validator. Field
// errors are reported under the JSON key names the caller sent.
func NewPayloadNormalizer() ports.PayloadNormalizer {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	})

	_ = v.RegisterValidation("eventtype", func(fl validator.FieldLevel) bool {
		return domain.EventType(fl.Field().String()).Valid()
	})

	return &payloadNormalizer{validate: v}
}

func (n *payloadNormalizer) Normalize(raw []byte) (*domain.WebhookPayload, error) {
	var in inboundPayload
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, apperror.ErrInvalidPayload([]apperror.FieldError{
			{Field: "body", Message: "request body is not valid JSON"},
		})
	}

	if err := n.validate.Struct(&in); err != nil {
		var verrs validator.ValidationErrors
		fields := make([]apperror.FieldError, 0)
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, apperror.FieldError{
					Field:   fe.Field(),
					Message: fieldMessage(fe),
				})
			}
		} else {
			fields = append(fields, apperror.FieldError{Field: "body", Message: err.Error()})
		}
		return nil, apperror.ErrInvalidPayload(fields)
	}

	return &domain.WebhookPayload{
		TransactionID:   in.TransactionID,
		TransactionType: in.TransactionType,
		Status:          in.Status,
		Amount:          in.Amount,
		Asset:           in.Asset,
		MerchantID:      in.MerchantID,
		Timestamp:       in.Timestamp,
		EventType:       domain.EventType(in.EventType),
		ReqMethod:       in.ReqMethod,
		Nonce:           in.Nonce,
		PaymentMethod:   in.PaymentMethod,
		Metadata:        in.Metadata,
		IsTest:          in.IsTest,
	}, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "uuid":
		return "must be a valid UUID"
	case "iso8601":
		return "must be an RFC3339 timestamp"
	case "eventtype":
		return "unknown event type"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
