package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// AppError ошибка приложения с HTTP статусом и контекстом
type AppError struct {
	Code    int    `json:"status_code"` // HTTP статус код
	Message string `json:"message"`     // Сообщение для пользователя
	Err     error  `json:"-"`           // Внутренняя ошибка для логов
	Context string `json:"-"`           // Магазин, операция и т.п.
}

// Error реализует интерфейс error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap возвращает вложенную ошибку для errors.Is и errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode возвращает HTTP статус код ошибки
func (e *AppError) StatusCode() int {
	return e.Code
}

// UserMessage возвращает сообщение для пользователя
func (e *AppError) UserMessage() string {
	return e.Message
}

// GetContext возвращает контекст ошибки
func (e *AppError) GetContext() string {
	return e.Context
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(context string) *AppError {
	e.Context = context
	return e
}

func newAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError создает ошибку 404 Not Found
func NewNotFoundError(message string, err error) *AppError {
	return newAppError(http.StatusNotFound, message, err)
}

// NewValidationError создает ошибку 400 Bad Request
func NewValidationError(message string, err error) *AppError {
	return newAppError(http.StatusBadRequest, message, err)
}

// NewTooManyRequestsError создает ошибку 429 Too Many Requests
func NewTooManyRequestsError(message string, err error) *AppError {
	return newAppError(http.StatusTooManyRequests, message, err)
}

// NewServiceUnavailableError создает ошибку 503 Service Unavailable
func NewServiceUnavailableError(message string, err error) *AppError {
	return newAppError(http.StatusServiceUnavailable, message, err)
}

// NewTimeoutError создает ошибку 504 Gateway Timeout
func NewTimeoutError(message string, err error) *AppError {
	return newAppError(http.StatusGatewayTimeout, message, err)
}

// NewInternalError создает ошибку 500 Internal Server Error.
// Пользователь получает общее сообщение, детали остаются в логах.
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: "Внутренняя ошибка сервера",
		Err:     errors.Join(errors.New(message), err),
	}
}

// FromContextError переводит ошибку отмены контекста в 504 или 503.
// Для прочих ошибок возвращает nil.
func FromContextError(err error, message string) *AppError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError(message+": превышено время ожидания", err)
	case errors.Is(err, context.Canceled):
		return NewServiceUnavailableError(message+": запрос отменен", err)
	default:
		return nil
	}
}

// WrapError оборачивает ошибку с сообщением.
// AppError сохраняет свой код, ошибки контекста становятся 504/503, остальные 500.
func WrapError(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
			Context: appErr.Context,
		}
	}

	if ctxErr := FromContextError(err, message); ctxErr != nil {
		return ctxErr
	}

	return NewInternalError(message, err)
}
