package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "customerserver/server/errors"
	"customerserver/server/middleware"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler обработчик проверки состояния сервиса
type HealthHandler struct {
	db      Pinger
	started time.Time
}

// NewHealthHandler создает обработчик проверки состояния
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// HealthResponse состояние сервиса
type HealthResponse struct {
	Status        string  `json:"status"`
	Database      string  `json:"database"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Time          string  `json:"time"`
}

// HandleHealth проверяет доступность базы
// @Summary Проверка состояния
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} ErrorResponse
// @Router /health [get]
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		HandleAppError(c, apperrors.NewServiceUnavailableError("База данных недоступна", err))
		return
	}

	SendJSONResponse(c, http.StatusOK, HealthResponse{
		Status:        "ok",
		Database:      "ok",
		UptimeSeconds: time.Since(h.started).Seconds(),
		Time:          time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleErrorMetrics возвращает счетчики ошибок API
// @Summary Метрики ошибок API
// @Tags system
// @Produce json
// @Param limit query int false "Количество последних ошибок" default(20)
// @Success 200 {object} apperrors.ErrorMetrics
// @Router /api/errors/metrics [get]
func (h *HealthHandler) HandleErrorMetrics(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	SendJSONResponse(c, http.StatusOK, middleware.GetErrorMetrics().Snapshot(limit))
}
