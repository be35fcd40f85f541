package handler

import (
	"github.com/gin-gonic/gin"

	entitlementapp "github.com/ledgerlink/backend/internal/application/entitlement"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/interfaces/http/dto"
)

// EntitlementHandler handles bank connections and the token wallet
type EntitlementHandler struct {
	BaseHandler
	entitlements *entitlementapp.EntitlementService
}

// NewEntitlementHandler creates a new EntitlementHandler
func NewEntitlementHandler(entitlements *entitlementapp.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{entitlements: entitlements}
}

// RegisterRoutes registers the connection and wallet endpoints
func (h *EntitlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	connections := rg.Group("/connections")
	connections.POST("/link-token", h.CreateLinkToken)
	connections.POST("", h.AddConnection)
	connections.GET("", h.ListConnections)
	connections.DELETE("/:id", h.RemoveConnection)
	connections.PUT("/:id/removal-flag", h.SetRemovalFlag)

	wallet := rg.Group("/wallet")
	wallet.GET("", h.GetBalance)
	wallet.POST("/consume", h.ConsumeToken)
	wallet.POST("/swap", h.ApplySwap)
	wallet.GET("/history", h.GetHistory)
	wallet.GET("/minimums", h.GetMinimums)
	wallet.GET("/projected-renewal", h.GetProjectedRenewal)
}

// LinkTokenResponse carries the short-lived token for the link widget
type LinkTokenResponse struct {
	LinkToken string `json:"link_token"`
}

// CreateLinkToken issues a short-lived token for the bank link widget
func (h *EntitlementHandler) CreateLinkToken(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	token, err := h.entitlements.CreateLinkToken(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, LinkTokenResponse{LinkToken: token})
}

// AddConnectionRequest is the payload for registering a linked bank
type AddConnectionRequest struct {
	PublicToken    string   `json:"public_token" binding:"required"`
	BilledProducts []string `json:"billed_products" binding:"required,min=1,dive,oneof=transaction investment"`
}

// AddConnection exchanges the widget's public token and consumes one token
// per billed product
func (h *EntitlementHandler) AddConnection(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req AddConnectionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	conn, err := h.entitlements.AddConnection(c.Request.Context(), entitlementapp.AddConnectionInput{
		AccountID:      accountID,
		PublicToken:    req.PublicToken,
		BilledProducts: req.BilledProducts,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, conn)
}

// ListConnections returns the account's linked banks
func (h *EntitlementHandler) ListConnections(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	conns, err := h.entitlements.ListConnections(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, conns)
}

// RemoveConnection unlinks a bank. When the removal would strand a depleted
// token type, nothing is removed and the swap offer comes back instead.
func (h *EntitlementHandler) RemoveConnection(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	connectionID, ok := h.BindUUIDParam(c, "id")
	if !ok {
		return
	}

	offer, err := h.entitlements.RemoveConnection(c.Request.Context(), accountID, connectionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if offer != nil {
		h.Success(c, offer)
		return
	}
	h.NoContent(c)
}

// RemovalFlagRequest is the payload for toggling the end-of-cycle removal flag
type RemovalFlagRequest struct {
	Flagged *bool `json:"flagged" binding:"required"`
}

// SetRemovalFlag marks or unmarks a connection for removal at renewal
func (h *EntitlementHandler) SetRemovalFlag(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	connectionID, ok := h.BindUUIDParam(c, "id")
	if !ok {
		return
	}

	var req RemovalFlagRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.entitlements.SetRemovalFlag(c.Request.Context(), accountID, connectionID, *req.Flagged); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// GetBalance returns the current wallet balance and next-cycle limits
func (h *EntitlementHandler) GetBalance(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	balance, err := h.entitlements.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// ConsumeTokenRequest is the payload for spending a token
type ConsumeTokenRequest struct {
	TokenType string `json:"token_type" binding:"required,oneof=transaction investment swap"`
	Reason    string `json:"reason" binding:"max=200"`
}

// ConsumeToken spends one token of the given type
func (h *EntitlementHandler) ConsumeToken(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ConsumeTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	balance, err := h.entitlements.ConsumeToken(c.Request.Context(), accountID, req.TokenType, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// ApplySwapRequest is the payload for confirming a swap
type ApplySwapRequest struct {
	Products []string `json:"products" binding:"required,min=1,dive,oneof=transaction investment"`
}

// ApplySwap spends swap tokens to refund the chosen product tokens
func (h *EntitlementHandler) ApplySwap(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ApplySwapRequest
	if !h.BindJSON(c, &req) {
		return
	}

	balance, err := h.entitlements.ApplySwap(c.Request.Context(), accountID, req.Products)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// GetHistory returns the paginated token audit log
func (h *EntitlementHandler) GetHistory(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}

	result, err := h.entitlements.GetHistory(c.Request.Context(), accountID, shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// GetMinimums returns the lowest allowed next-cycle limits
func (h *EntitlementHandler) GetMinimums(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	minimums, err := h.entitlements.GetMinimums(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, minimums)
}

// GetProjectedRenewal returns the spare tokens projected at the next renewal
func (h *EntitlementHandler) GetProjectedRenewal(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	projection, err := h.entitlements.GetProjectedRenewal(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, projection)
}
