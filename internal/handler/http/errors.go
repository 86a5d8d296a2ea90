package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"inkboard/internal/repository"
	"inkboard/internal/service"
)

// HandleServiceError 把服务层错误映射为 HTTP 状态码。
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotReady):
		ErrorResponse(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrDecodeFailed):
		ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repository.ErrPersistence):
		logrus.WithError(err).Error("Store rejected statement")
		ErrorResponse(c, http.StatusInternalServerError, "store rejected the operation")
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
