package handler

import (
	"github.com/gin-gonic/gin"

	billingapp "github.com/ledgerlink/backend/internal/application/billing"
)

// SubscriptionHandler handles the billing state machine endpoints
type SubscriptionHandler struct {
	BaseHandler
	subscriptions *billingapp.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subscriptions *billingapp.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// RegisterRoutes registers the subscription endpoints
func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/subscription")
	group.GET("", h.GetStatus)
	group.POST("", h.Subscribe)
	group.PUT("/next-limits", h.SetNextLimits)
	group.POST("/cancel", h.Cancel)
	group.POST("/keep", h.Keep)
	group.POST("/fix-payment", h.FixPayment)
	group.GET("/pricing", h.QuotePricing)
}

// GetStatus returns the account's billing state
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	status, err := h.subscriptions.GetStatus(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}

// SubscribeRequest is the payload for starting a subscription
type SubscribeRequest struct {
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
	Transaction     int    `json:"transaction" binding:"required,min=1"`
	Investment      int    `json:"investment" binding:"min=0"`
}

// Subscribe charges the first month and fills the wallet
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req SubscribeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sub, err := h.subscriptions.Subscribe(c.Request.Context(), billingapp.SubscribeInput{
		AccountID:       accountID,
		PaymentMethodID: req.PaymentMethodID,
		Transaction:     req.Transaction,
		Investment:      req.Investment,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, sub)
}

// NextLimitsRequest is the payload for choosing next-cycle limits
type NextLimitsRequest struct {
	Transaction int `json:"transaction" binding:"min=0"`
	Investment  int `json:"investment" binding:"min=0"`
}

// SetNextLimits proposes the limits for the next billing cycle
func (h *SubscriptionHandler) SetNextLimits(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req NextLimitsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sub, err := h.subscriptions.ProposeNextCycleLimits(c.Request.Context(), accountID, req.Transaction, req.Investment)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sub)
}

// Cancel schedules the subscription to end at the period boundary
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	sub, err := h.subscriptions.Cancel(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sub)
}

// Keep reverts a pending cancellation before the period ends
func (h *SubscriptionHandler) Keep(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	sub, err := h.subscriptions.Keep(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sub)
}

// FixPaymentRequest is the payload for retrying a failed payment
type FixPaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

// FixPayment replaces the payment method and retries the failed charge
func (h *SubscriptionHandler) FixPayment(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req FixPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sub, err := h.subscriptions.FixPayment(c.Request.Context(), accountID, req.PaymentMethodID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, sub)
}

// PricingQuery selects the limits to price
type PricingQuery struct {
	Transaction int `form:"transaction" binding:"min=0"`
	Investment  int `form:"investment" binding:"min=0"`
}

// QuotePricing itemizes the monthly cost of a set of limits
func (h *SubscriptionHandler) QuotePricing(c *gin.Context) {
	var query PricingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid pricing parameters")
		return
	}

	pricing, err := h.subscriptions.QuotePricing(c.Request.Context(), query.Transaction, query.Investment)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pricing)
}
