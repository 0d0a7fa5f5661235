package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "customerserver/server/errors"
)

var (
	errorMetricsOnce   sync.Once
	globalErrorMetrics *apperrors.ErrorMetricsCollector
)

// GetErrorMetrics возвращает глобальный сборщик метрик ошибок
func GetErrorMetrics() *apperrors.ErrorMetricsCollector {
	errorMetricsOnce.Do(func() {
		globalErrorMetrics = apperrors.NewErrorMetricsCollector(100)
	})
	return globalErrorMetrics
}

// HTTPError ошибка с HTTP статусом и сообщением для пользователя
type HTTPError interface {
	error
	StatusCode() int
	UserMessage() string
	GetContext() string
	Unwrap() error
}

// ErrorResponse тело ответа об ошибке
type ErrorResponse struct {
	Error     bool   `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// WriteGinError отвечает JSON-ошибкой, логирует ее и учитывает в метриках.
// Ошибки без HTTP статуса становятся 500 без подробностей для клиента.
func WriteGinError(c *gin.Context, err error) {
	reqID := GetRequestIDFromGin(c)
	endpoint := c.FullPath()
	if endpoint == "" {
		endpoint = c.Request.URL.Path
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		var httpErr HTTPError
		if errors.As(err, &httpErr) {
			appErr = &apperrors.AppError{
				Code:    httpErr.StatusCode(),
				Message: httpErr.UserMessage(),
				Err:     httpErr.Unwrap(),
				Context: httpErr.GetContext(),
			}
		} else {
			appErr = apperrors.NewInternalError("unhandled error", err)
		}
	}

	GetErrorMetrics().RecordError(appErr, endpoint, reqID)

	attrs := []any{
		"error", appErr.Error(),
		"status_code", appErr.Code,
		"context", appErr.Context,
		"request_id", reqID,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	if appErr.Code >= http.StatusInternalServerError {
		slog.Error("HTTP error", attrs...)
	} else {
		slog.Warn("HTTP error", attrs...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.Code, ErrorResponse{
		Error:     true,
		Message:   appErr.UserMessage(),
		RequestID: reqID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
