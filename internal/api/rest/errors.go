package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-asset-syncer/internal/api/shared/errors"
	"github.com/feral-file/ff-asset-syncer/internal/logger"
)

// respondInternalError logs err and responds with an internal server error
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.ErrorCtx(c.Request.Context(), err, fields...)
	c.JSON(http.StatusInternalServerError, errors.NewInternalError(message, err.Error()))
}

// respondServiceUnavailable responds with a service error
func respondServiceUnavailable(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusServiceUnavailable, errors.NewServiceError(message, details...))
}
