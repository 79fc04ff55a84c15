package handlers

import (
	"errors"
	"net/http"

	"mira-backend/logger"
	"mira-backend/services"
	"mira-backend/utils"

	"github.com/gin-gonic/gin"
)

// cartErrorStatus maps a cart service error to an HTTP status and a metrics
// label. Unknown errors are storage faults.
func cartErrorStatus(err error) (int, string) {
	var stockErr *services.InsufficientStockError
	switch {
	case errors.Is(err, services.ErrInvalidQuantity):
		return http.StatusBadRequest, "invalid"
	case errors.As(err, &stockErr):
		return http.StatusBadRequest, "insufficient_stock"
	case errors.Is(err, services.ErrProductUnavailable):
		return http.StatusBadRequest, "unavailable"
	case services.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "error"
	}
}

// respondCartError writes the failure envelope for err. Storage faults are
// logged and hidden behind a generic message.
func respondCartError(c *gin.Context, op string, err error) string {
	status, label := cartErrorStatus(err)
	if status == http.StatusInternalServerError {
		logger.WithCtx(c.Request.Context()).Error("cart operation failed", "operation", op, "error", err)
		utils.Error(c, status, "Failed to process cart request")
		return label
	}
	utils.Error(c, status, err.Error())
	return label
}

func respondInternal(c *gin.Context, msg string, err error) {
	logger.WithCtx(c.Request.Context()).Error(msg, "error", err)
	utils.Error(c, http.StatusInternalServerError, msg)
}

func respondBindError(c *gin.Context, err error) {
	utils.Error(c, http.StatusBadRequest, "Validation failed", utils.ValidationMessages(err)...)
}
