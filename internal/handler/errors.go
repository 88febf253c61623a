package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"founders-chat/internal/services"
	"founders-chat/internal/transport/httpdto"
	founders_errors "founders-chat/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HTTPStatus maps a service error onto a status code and error code.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, founders_errors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, founders_errors.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, founders_errors.ErrForbidden):
		return http.StatusForbidden, "ACCESS_DENIED"
	case errors.Is(err, founders_errors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, founders_errors.ErrAlreadyExists), errors.Is(err, founders_errors.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, founders_errors.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, founders_errors.ErrServiceUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondError writes the error envelope and records err on the context so
// the error middleware can log it.
func respondError(c *gin.Context, err error) {
	status, code := HTTPStatus(err)
	_ = c.Error(err)

	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		message = "store unavailable, retry later"
	case http.StatusInternalServerError:
		message = "internal error"
	}
	c.JSON(status, httpdto.NewErrorResponse(message, code))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(message, "INVALID_ARGUMENT"))
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return uuid.Nil, false
	}
	return userID, true
}

func chatIDParam(c *gin.Context) (uuid.UUID, bool) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid chat id")
		return uuid.Nil, false
	}
	return chatID, true
}

// intQuery parses an optional integer query parameter.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return value, true
}

// timeQuery parses an optional RFC 3339 timestamp query parameter.
func timeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	value, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	value = value.UTC()
	return &value, true
}
