package handler

import (
	"github.com/gin-gonic/gin"

	identityapp "github.com/ledgerlink/backend/internal/application/identity"
	"github.com/ledgerlink/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles registration and login sessions
type AuthHandler struct {
	BaseHandler
	accounts *identityapp.AccountService
	auth     *identityapp.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts *identityapp.AccountService, auth *identityapp.AuthService) *AuthHandler {
	return &AuthHandler{accounts: accounts, auth: auth}
}

// RegisterRoutes registers the auth endpoints
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/auth")
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.POST("/refresh", h.Refresh)
	group.POST("/logout", h.Logout)
}

// RegisterRequest is the payload for creating an account
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"display_name" binding:"required,min=1,max=100"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
}

// Register creates a new account
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), identityapp.RegisterInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, account)
}

// LoginRequest is the payload for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates and returns a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), identityapp.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// RefreshRequest is the payload for refreshing a session
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh exchanges a refresh token for a fresh token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !h.BindJSON(c, &req) {
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, pair)
}

// Logout revokes the presented access token
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.auth.Logout(c.Request.Context(), claims); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
