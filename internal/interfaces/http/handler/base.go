// Package handler implements the HTTP API endpoints.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/interfaces/http/dto"
	"github.com/ledgerlink/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// getAccountID extracts the authenticated account ID from JWT claims
func getAccountID(c *gin.Context) (uuid.UUID, error) {
	accountIDStr := middleware.GetJWTAccountID(c)
	if accountIDStr == "" {
		return uuid.Nil, errors.New("account ID not found in context")
	}
	return uuid.Parse(accountIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts an error to an HTTP response. Domain errors carry
// their own code and map to a status via the dto table; anything else is a
// 500 with no internals leaked.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		resp := dto.Response{
			Success: false,
			Error: &dto.ErrorInfo{
				Code:      domainErr.Code,
				Message:   domainErr.Message,
				Details:   domainErr.Details,
				RequestID: getRequestID(c),
			},
		}
		c.JSON(dto.GetHTTPStatus(domainErr.Code), resp)
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}

// BindJSON binds and validates the request body, writing a 400 response on
// failure. Returns false when the caller should stop.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			fe := validationErrs[0]
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation,
				"Invalid value for field '"+fe.Field()+"' (rule: "+fe.Tag()+")")
			return false
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid request body")
		return false
	}
	return true
}

// BindUUIDParam parses a UUID path parameter, writing a 400 response on failure
func (h *BaseHandler) BindUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}
