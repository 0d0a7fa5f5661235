package errors

import (
	"net/http"
	"sync"
	"time"
)

// ErrorMetricsCollector собирает счетчики ошибок API
type ErrorMetricsCollector struct {
	mu sync.RWMutex

	totalErrors      int64
	errorsByType     map[string]int64
	errorsByCode     map[int]int64
	errorsByEndpoint map[string]int64

	lastErrors    []ErrorRecord // новые в начале
	maxLastErrors int

	startTime time.Time
}

// ErrorRecord запись об ошибке
type ErrorRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Code        int       `json:"code"`
	Message     string    `json:"message"`
	Endpoint    string    `json:"endpoint"`
	RequestID   string    `json:"request_id,omitempty"`
	UserMessage string    `json:"user_message"`
}

// ErrorMetrics снимок счетчиков ошибок
type ErrorMetrics struct {
	TotalErrors      int64            `json:"total_errors"`
	ErrorsByType     map[string]int64 `json:"errors_by_type"`
	ErrorsByCode     map[int]int64    `json:"errors_by_code"`
	ErrorsByEndpoint map[string]int64 `json:"errors_by_endpoint"`
	LastErrors       []ErrorRecord    `json:"last_errors"`
	UptimeSeconds    float64          `json:"uptime_seconds"`
}

// NewErrorMetricsCollector создает сборщик, хранящий maxLastErrors последних ошибок
func NewErrorMetricsCollector(maxLastErrors int) *ErrorMetricsCollector {
	if maxLastErrors <= 0 {
		maxLastErrors = 100
	}
	emc := &ErrorMetricsCollector{maxLastErrors: maxLastErrors}
	emc.Reset()
	return emc
}

// RecordError записывает ошибку в метрики
func (emc *ErrorMetricsCollector) RecordError(err *AppError, endpoint, requestID string) {
	if err == nil {
		return
	}

	emc.mu.Lock()
	defer emc.mu.Unlock()

	errorType := errorType(err.Code)
	emc.totalErrors++
	emc.errorsByType[errorType]++
	emc.errorsByCode[err.Code]++
	if endpoint != "" {
		emc.errorsByEndpoint[endpoint]++
	}

	record := ErrorRecord{
		Timestamp:   time.Now(),
		Type:        errorType,
		Code:        err.Code,
		Message:     err.Error(),
		Endpoint:    endpoint,
		RequestID:   requestID,
		UserMessage: err.UserMessage(),
	}
	emc.lastErrors = append([]ErrorRecord{record}, emc.lastErrors...)
	if len(emc.lastErrors) > emc.maxLastErrors {
		emc.lastErrors = emc.lastErrors[:emc.maxLastErrors]
	}
}

// Snapshot возвращает копию текущих метрик; limit ограничивает число последних ошибок
func (emc *ErrorMetricsCollector) Snapshot(limit int) ErrorMetrics {
	emc.mu.RLock()
	defer emc.mu.RUnlock()

	if limit <= 0 || limit > len(emc.lastErrors) {
		limit = len(emc.lastErrors)
	}

	metrics := ErrorMetrics{
		TotalErrors:      emc.totalErrors,
		ErrorsByType:     make(map[string]int64, len(emc.errorsByType)),
		ErrorsByCode:     make(map[int]int64, len(emc.errorsByCode)),
		ErrorsByEndpoint: make(map[string]int64, len(emc.errorsByEndpoint)),
		LastErrors:       make([]ErrorRecord, limit),
		UptimeSeconds:    time.Since(emc.startTime).Seconds(),
	}
	for k, v := range emc.errorsByType {
		metrics.ErrorsByType[k] = v
	}
	for k, v := range emc.errorsByCode {
		metrics.ErrorsByCode[k] = v
	}
	for k, v := range emc.errorsByEndpoint {
		metrics.ErrorsByEndpoint[k] = v
	}
	copy(metrics.LastErrors, emc.lastErrors[:limit])

	return metrics
}

// Reset сбрасывает все метрики
func (emc *ErrorMetricsCollector) Reset() {
	emc.mu.Lock()
	defer emc.mu.Unlock()

	emc.totalErrors = 0
	emc.errorsByType = make(map[string]int64)
	emc.errorsByCode = make(map[int]int64)
	emc.errorsByEndpoint = make(map[string]int64)
	emc.lastErrors = make([]ErrorRecord, 0)
	emc.startTime = time.Now()
}

// errorType определяет тип ошибки по коду
func errorType(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusNotFound:
		return "NotFoundError"
	case http.StatusTooManyRequests:
		return "TooManyRequestsError"
	case http.StatusInternalServerError:
		return "InternalError"
	case http.StatusServiceUnavailable:
		return "ServiceUnavailableError"
	case http.StatusGatewayTimeout:
		return "TimeoutError"
	default:
		return "UnknownError"
	}
}
