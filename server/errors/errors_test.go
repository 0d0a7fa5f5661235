package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

// TestConstructors проверяет коды ответов конструкторов
func TestConstructors(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		name string
		err  *AppError
		code int
	}{
		{"not found", NewNotFoundError("нет расчета", cause), http.StatusNotFound},
		{"validation", NewValidationError("неверный формат", cause), http.StatusBadRequest},
		{"too many requests", NewTooManyRequestsError("слишком часто", nil), http.StatusTooManyRequests},
		{"unavailable", NewServiceUnavailableError("база недоступна", cause), http.StatusServiceUnavailable},
		{"timeout", NewTimeoutError("расчет не успел", cause), http.StatusGatewayTimeout},
		{"internal", NewInternalError("failed to save", cause), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode() != tt.code {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.code)
			}
			if tt.err.Err != nil && !errors.Is(tt.err, cause) {
				t.Errorf("errors.Is(%v, cause) = false", tt.err)
			}
		})
	}
}

// TestNewInternalError_HidesDetails проверяет, что детали не попадают в сообщение пользователю
func TestNewInternalError_HidesDetails(t *testing.T) {
	err := NewInternalError("failed to save resolution", errors.New("disk I/O error"))

	if strings.Contains(err.UserMessage(), "disk") {
		t.Errorf("UserMessage() leaks details: %q", err.UserMessage())
	}
	if !strings.Contains(err.Error(), "disk I/O error") {
		t.Errorf("Error() = %q, want cause in log message", err.Error())
	}
}

// TestWrapError проверяет оборачивание ошибок
func TestWrapError(t *testing.T) {
	if WrapError(nil, "msg") != nil {
		t.Error("WrapError(nil) should be nil")
	}

	notFound := NewNotFoundError("расчет не найден", nil).WithContext("store-1")
	wrapped := WrapError(fmt.Errorf("layer: %w", notFound), "список клиентов")
	if wrapped.Code != http.StatusNotFound {
		t.Errorf("Code = %d, want %d", wrapped.Code, http.StatusNotFound)
	}
	if wrapped.Message != "список клиентов: расчет не найден" {
		t.Errorf("Message = %q", wrapped.Message)
	}
	if wrapped.GetContext() != "store-1" {
		t.Errorf("Context = %q, want store-1", wrapped.GetContext())
	}

	timeout := WrapError(fmt.Errorf("merge: %w", context.DeadlineExceeded), "расчет клиентов")
	if timeout.Code != http.StatusGatewayTimeout {
		t.Errorf("deadline Code = %d, want %d", timeout.Code, http.StatusGatewayTimeout)
	}

	canceled := WrapError(context.Canceled, "расчет клиентов")
	if canceled.Code != http.StatusServiceUnavailable {
		t.Errorf("canceled Code = %d, want %d", canceled.Code, http.StatusServiceUnavailable)
	}

	plain := WrapError(errors.New("boom"), "расчет клиентов")
	if plain.Code != http.StatusInternalServerError {
		t.Errorf("plain Code = %d, want %d", plain.Code, http.StatusInternalServerError)
	}
}

// TestErrorMetricsCollector проверяет подсчет ошибок
func TestErrorMetricsCollector(t *testing.T) {
	emc := NewErrorMetricsCollector(2)

	emc.RecordError(NewValidationError("bad", nil), "/api/stores/:store_id/orders", "r1")
	emc.RecordError(NewNotFoundError("missing", nil), "/api/stores/:store_id/customers", "r2")
	emc.RecordError(NewNotFoundError("missing", nil), "/api/stores/:store_id/customers", "r3")
	emc.RecordError(nil, "/ignored", "r4")

	m := emc.Snapshot(0)
	if m.TotalErrors != 3 {
		t.Errorf("TotalErrors = %d, want 3", m.TotalErrors)
	}
	if m.ErrorsByType["NotFoundError"] != 2 {
		t.Errorf("NotFoundError = %d, want 2", m.ErrorsByType["NotFoundError"])
	}
	if m.ErrorsByCode[http.StatusBadRequest] != 1 {
		t.Errorf("400 = %d, want 1", m.ErrorsByCode[http.StatusBadRequest])
	}
	if len(m.LastErrors) != 2 {
		t.Fatalf("LastErrors = %d, want 2", len(m.LastErrors))
	}
	if m.LastErrors[0].RequestID != "r3" {
		t.Errorf("newest error = %q, want r3", m.LastErrors[0].RequestID)
	}

	if got := emc.Snapshot(1).LastErrors; len(got) != 1 {
		t.Errorf("Snapshot(1) LastErrors = %d, want 1", len(got))
	}

	emc.Reset()
	if emc.Snapshot(0).TotalErrors != 0 {
		t.Error("Reset should clear counters")
	}
}
