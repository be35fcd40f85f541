package handler

import (
	"github.com/gin-gonic/gin"

	identityapp "github.com/ledgerlink/backend/internal/application/identity"
)

// AccountHandler handles the profile and the emailed confirmation flows
type AccountHandler struct {
	BaseHandler
	accounts *identityapp.AccountService
	auth     *identityapp.AuthService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts *identityapp.AccountService, auth *identityapp.AuthService) *AccountHandler {
	return &AccountHandler{accounts: accounts, auth: auth}
}

// RegisterRoutes registers the account endpoints. The verify and reject
// endpoints are public: they are reached from emailed links and authenticate
// via the single-use token instead.
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/account")
	group.GET("", h.GetProfile)
	group.PUT("/password", h.ChangePassword)
	group.POST("/email-change", h.RequestEmailChange)
	group.GET("/email-change/verify", h.VerifyEmailChange)
	group.GET("/email-change/reject", h.RejectEmailChange)
	group.POST("/deletion", h.RequestDeletion)
	group.DELETE("/deletion", h.CancelDeletion)
}

// GetProfile returns the authenticated account's profile
func (h *AccountHandler) GetProfile(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	profile, err := h.accounts.GetProfile(c.Request.Context(), accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, profile)
}

// ChangePasswordRequest is the payload for changing the password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
}

// ChangePassword replaces the password and revokes all other sessions
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.accounts.ChangePassword(c.Request.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.auth.RevokeAllSessions(c.Request.Context(), accountID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// EmailChangeRequest is the payload for staging a new email address
type EmailChangeRequest struct {
	NewEmail string `json:"new_email" binding:"required,email"`
}

// RequestEmailChange stages a new address and emails the verification link
func (h *AccountHandler) RequestEmailChange(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req EmailChangeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.accounts.RequestEmailChange(c.Request.Context(), accountID, req.NewEmail); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// VerifyEmailChange applies a pending email change from the emailed link
func (h *AccountHandler) VerifyEmailChange(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.BadRequest(c, "Missing token")
		return
	}

	account, err := h.accounts.VerifyEmailChange(c.Request.Context(), token)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, account)
}

// RejectEmailChange discards a pending email change from the notice sent to
// the old address
func (h *AccountHandler) RejectEmailChange(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.BadRequest(c, "Missing token")
		return
	}

	if err := h.accounts.RejectEmailChange(c.Request.Context(), token); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RequestDeletion marks the account for deletion and revokes all sessions
func (h *AccountHandler) RequestDeletion(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.accounts.RequestDeletion(c.Request.Context(), accountID); err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.auth.RevokeAllSessions(c.Request.Context(), accountID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// CancelDeletion reverts a pending deletion request
func (h *AccountHandler) CancelDeletion(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.accounts.CancelDeletion(c.Request.Context(), accountID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
