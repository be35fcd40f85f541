package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	billingapp "github.com/ledgerlink/backend/internal/application/billing"
)

// Stripe webhook payloads are small; cap reads well above their typical size
const maxWebhookPayloadSize = 65536

// StripeWebhookHandler receives webhook events from Stripe. The endpoint is
// unauthenticated; the signature header is the authentication.
type StripeWebhookHandler struct {
	BaseHandler
	webhooks *billingapp.StripeWebhookService
}

// NewStripeWebhookHandler creates a new StripeWebhookHandler
func NewStripeWebhookHandler(webhooks *billingapp.StripeWebhookService) *StripeWebhookHandler {
	return &StripeWebhookHandler{webhooks: webhooks}
}

// RegisterRoutes registers the webhook endpoint
func (h *StripeWebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.HandleStripeWebhook)
}

// StripeWebhookResponse acknowledges a webhook delivery
type StripeWebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleStripeWebhook verifies and processes one webhook event. Signature
// verification needs the raw body, so this bypasses the usual JSON binding.
func (h *StripeWebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, StripeWebhookResponse{
			Received: false,
			Message:  "Failed to read request body",
		})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, StripeWebhookResponse{
			Received: false,
			Message:  "Payload too large",
		})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusUnauthorized, StripeWebhookResponse{
			Received: false,
			Message:  "Missing Stripe-Signature header",
		})
		return
	}

	result, err := h.webhooks.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		// A non-nil error means we could not durably process the event;
		// non-2xx makes Stripe redeliver it
		status := http.StatusInternalServerError
		if result == nil || result.EventID == "" {
			// Verification failed before we had an event
			status = http.StatusUnauthorized
		}
		resp := StripeWebhookResponse{Received: false, Message: "Webhook processing failed"}
		if result != nil {
			resp.EventID = result.EventID
			resp.EventType = result.EventType
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusOK, StripeWebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Message:   result.Message,
	})
}
