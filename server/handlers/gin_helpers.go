package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	apperrors "customerserver/server/errors"
	"customerserver/server/middleware"
)

// ErrorResponse тело ответа об ошибке
type ErrorResponse = middleware.ErrorResponse

// SendJSONResponse отправляет JSON ответ
func SendJSONResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// SendJSONError отправляет JSON ошибку со статусом statusCode и логирует ее
func SendJSONError(c *gin.Context, statusCode int, message string) {
	slog.Warn("Gin HTTP error",
		"error", message,
		"status_code", statusCode,
		"request_id", middleware.GetRequestIDFromGin(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	middleware.WriteGinError(c, &apperrors.AppError{Code: statusCode, Message: message})
}

// HandleAppError отправляет ошибку приложения; код берется из AppError, иначе 500
func HandleAppError(c *gin.Context, err error) {
	middleware.WriteGinError(c, err)
}
