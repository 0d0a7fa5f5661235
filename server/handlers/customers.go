package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"customerserver/customers"
	"customerserver/database"
	"customerserver/exporter"
	"customerserver/importer"
	apperrors "customerserver/server/errors"
)

// OrdersStore хранилище снимков заказов и рассчитанных клиентов
type OrdersStore interface {
	InsertOrders(ctx context.Context, storeID string, orders []customers.OrderRecord) (database.InsertResult, error)
	GetOrdersSnapshot(ctx context.Context, storeID string) ([]customers.OrderRecord, error)
	CountOrders(ctx context.Context, storeID string) (int, error)
	ListStores(ctx context.Context) ([]string, error)
	DeleteOrders(ctx context.Context, storeID string) (int64, error)
	SaveResolution(ctx context.Context, storeID string, threshold float64, res *customers.Resolution) error
	GetResolvedCustomers(ctx context.Context, storeID string) ([]*customers.CustomerAggregate, error)
	GetResolutionInfo(ctx context.Context, storeID string) (*database.ResolutionInfo, error)
}

// CustomersHandlerConfig ограничения расчетов
type CustomersHandlerConfig struct {
	// Timeout ограничивает один запрос расчета, 0 - без ограничения
	Timeout time.Duration
	// MaxConcurrentStores число магазинов, рассчитываемых одновременно при полном пересчете
	MaxConcurrentStores int
}

// CustomersHandler обработчик API определения клиентов магазина
type CustomersHandler struct {
	store    OrdersStore
	resolver *customers.Resolver
	config   CustomersHandlerConfig
	logger   *slog.Logger
}

// NewCustomersHandler создает обработчик
func NewCustomersHandler(store OrdersStore, resolver *customers.Resolver, config CustomersHandlerConfig, logger *slog.Logger) *CustomersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomersHandler{
		store:    store,
		resolver: resolver,
		config:   config,
		logger:   logger,
	}
}

// OrdersRequest снимок заказов в теле запроса
type OrdersRequest struct {
	Orders []customers.OrderRecord `json:"orders"`
}

// UploadOrdersResponse итог загрузки заказов
type UploadOrdersResponse struct {
	StoreID      string   `json:"store_id"`
	Received     int      `json:"received"`
	Inserted     int      `json:"inserted"`
	Updated      int      `json:"updated"`
	GeneratedIDs int      `json:"generated_ids"`
	ParseErrors  []string `json:"parse_errors"`
	TotalOrders  int      `json:"total_orders"`
}

// ResolveResponse результат расчета клиентов
type ResolveResponse struct {
	StoreID    string                         `json:"store_id"`
	ResolvedAt time.Time                      `json:"resolved_at"`
	Stored     bool                           `json:"stored"`
	Total      int                            `json:"total"`
	Customers  []*customers.CustomerAggregate `json:"customers"`
	Stats      customers.ResolutionStats      `json:"stats"`
}

// CustomersListResponse сохраненный расчет клиентов
type CustomersListResponse struct {
	StoreID        string                         `json:"store_id"`
	ResolvedAt     time.Time                      `json:"resolved_at"`
	MergeThreshold float64                        `json:"merge_threshold"`
	Total          int                            `json:"total"`
	Offset         int                            `json:"offset"`
	Limit          int                            `json:"limit"`
	Customers      []*customers.CustomerAggregate `json:"customers"`
	Stats          customers.ResolutionStats      `json:"stats"`
}

// StoreSummary магазин и размер его снимка
type StoreSummary struct {
	StoreID string `json:"store_id"`
	Orders  int    `json:"orders"`
}

// StoresResponse список магазинов
type StoresResponse struct {
	Stores []StoreSummary `json:"stores"`
	Total  int            `json:"total"`
}

// DeleteOrdersResponse итог удаления снимка
type DeleteOrdersResponse struct {
	StoreID string `json:"store_id"`
	Deleted int64  `json:"deleted"`
}

// storeIDParam читает и проверяет идентификатор магазина из пути
func storeIDParam(c *gin.Context) (string, bool) {
	storeID := strings.TrimSpace(c.Param("store_id"))
	if storeID == "" {
		HandleAppError(c, apperrors.NewValidationError("Не указан идентификатор магазина", nil))
		return "", false
	}
	return storeID, true
}

// HandleUploadOrders загружает заказы в снимок магазина
// @Summary Загрузить заказы магазина
// @Description Принимает JSON {"orders": [...]} или multipart-файл (csv, xlsx, json) в поле file. Заказ с уже известным order_id обновляется, заказ без order_id сохраняется под сгенерированным номером #<uuid>.
// @Tags orders
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param store_id path string true "Идентификатор магазина"
// @Param request body OrdersRequest false "Заказы"
// @Param file formData file false "Файл выгрузки заказов"
// @Param encoding formData string false "Кодировка CSV (windows-1252, iso-8859-1, windows-1251)"
// @Param delimiter formData string false "Разделитель CSV"
// @Param sheet formData string false "Лист Excel"
// @Success 200 {object} UploadOrdersResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/stores/{store_id}/orders [post]
func (h *CustomersHandler) HandleUploadOrders(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var (
		orders      []customers.OrderRecord
		parseErrors = []string{}
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		result, err := h.parseUploadedFile(c)
		if err != nil {
			HandleAppError(c, err)
			return
		}
		orders = result.Orders
		parseErrors = result.Errors
	} else {
		var req OrdersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleAppError(c, apperrors.NewValidationError("Некорректный JSON с заказами", err))
			return
		}
		orders = req.Orders
	}

	ctx := c.Request.Context()
	result, err := h.store.InsertOrders(ctx, storeID, orders)
	if err != nil {
		HandleAppError(c, apperrors.WrapError(err, "Не удалось сохранить заказы").WithContext(storeID))
		return
	}

	total, err := h.store.CountOrders(ctx, storeID)
	if err != nil {
		HandleAppError(c, apperrors.WrapError(err, "Не удалось посчитать заказы").WithContext(storeID))
		return
	}

	h.logger.Info("Orders uploaded",
		"store_id", storeID,
		"received", len(orders),
		"inserted", result.Inserted,
		"updated", result.Updated,
		"generated_ids", result.GeneratedIDs,
		"parse_errors", len(parseErrors),
	)

	SendJSONResponse(c, http.StatusOK, UploadOrdersResponse{
		StoreID:      storeID,
		Received:     len(orders),
		Inserted:     result.Inserted,
		Updated:      result.Updated,
		GeneratedIDs: result.GeneratedIDs,
		ParseErrors:  parseErrors,
		TotalOrders:  total,
	})
}

// parseUploadedFile сохраняет файл из формы во временный каталог и разбирает его
func (h *CustomersHandler) parseUploadedFile(c *gin.Context) (*importer.ImportResult, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, apperrors.NewValidationError("Не передан файл заказов в поле file", err)
	}

	opts := importer.Options{
		Encoding: c.PostForm("encoding"),
		Sheet:    c.PostForm("sheet"),
	}
	if delimiter := c.PostForm("delimiter"); delimiter != "" {
		r, _ := utf8.DecodeRuneInString(delimiter)
		opts.Comma = r
	}

	tmpDir, err := os.MkdirTemp("", "orders-upload-*")
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create temp dir", err)
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "upload"+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, path); err != nil {
		return nil, apperrors.NewInternalError("failed to save uploaded file", err)
	}

	result, err := importer.ParseOrdersFile(path, opts)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Не удалось разобрать файл %s", file.Filename), err)
	}
	return result, nil
}

// HandleResolve рассчитывает клиентов по переданному снимку, ничего не сохраняя
// @Summary Рассчитать клиентов по снимку заказов
// @Description Группирует заказы по телефону и объединяет похожих клиентов. Результат не сохраняется.
// @Tags customers
// @Accept json
// @Produce json
// @Param store_id path string true "Идентификатор магазина"
// @Param request body OrdersRequest true "Снимок заказов"
// @Success 200 {object} ResolveResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /api/stores/{store_id}/customers/resolve [post]
func (h *CustomersHandler) HandleResolve(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req OrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, apperrors.NewValidationError("Некорректный JSON с заказами", err))
		return
	}

	res, err := h.resolve(c.Request.Context(), req.Orders)
	if err != nil {
		HandleAppError(c, apperrors.WrapError(err, "Не удалось рассчитать клиентов").WithContext(storeID))
		return
	}

	h.logger.Info("Customers resolved from request",
		"store_id", storeID,
		"orders", len(req.Orders),
		"customers", len(res.Customers),
	)

	SendJSONResponse(c, http.StatusOK, newResolveResponse(storeID, res, false))
}

// HandleRebuild пересчитывает клиентов по сохраненному снимку и сохраняет результат
// @Summary Пересчитать клиентов магазина
// @Description Читает снимок заказов из базы, рассчитывает клиентов и заменяет сохраненный расчет.
// @Tags customers
// @Produce json
// @Param store_id path string true "Идентификатор магазина"
// @Success 200 {object} ResolveResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /api/stores/{store_id}/customers/rebuild [post]
func (h *CustomersHandler) HandleRebuild(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	orders, err := h.store.GetOrdersSnapshot(ctx, storeID)
	if err != nil {
		HandleAppError(c, apperrors.WrapError(err, "Не удалось прочитать снимок заказов").WithContext(storeID))
		return
	}

	res, err := h.resolve(ctx, orders)
	if err != nil {
		HandleAppError(c, apperrors.WrapError(err, "Не удалось рассчитать клиентов").WithContext(storeID))
		return
	}

	if err := h.store.SaveResolution(ctx, storeID, h.resolver.Config().MergeThreshold, res); err != nil {
		HandleAppError(c, apperrors.WrapError(err, "Не удалось сохранить расчет клиентов").WithContext(storeID))
		return
	}

	h.logger.Info("Customers rebuilt",
		"store_id", storeID,
		"orders", len(orders),
		"customers", len(res.Customers),
		"duration_ms", res.Stats.Duration.Milliseconds(),
	)

	SendJSONResponse(c, http.StatusOK, newResolveResponse(storeID, res, true))
}

// RebuildAllResponse итог пересчета всех магазинов
type RebuildAllResponse struct {
	Stores    map[string]customers.ResolutionStats `json:"stores"`
	Total     int                                  `json:"total"`
	Customers int                                  `json:"customers"`
}

// HandleRebuildAll пересчитывает клиентов всех магазинов параллельно
// @Summary Пересчитать клиентов всех магазинов
// @Description Магазины рассчитываются независимо, не более RESOLVE_MAX_CONCURRENT_STORES одновременно. Ошибка одного магазина отменяет весь пересчет.
// @Tags customers
// @Produce json
// @Success 200 {object} RebuildAllResponse
// @Failure 500 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /api/customers/rebuild [post]
func (h *CustomersHandler) HandleRebuildAll(c *gin.Context) {
	ctx := c.Request.Context()

	ids, err := h.store.ListStores(ctx)
	if err != nil {
		HandleAppError(c, apperrors.WrapError(err, "Не удалось получить список магазинов"))
		return
	}

	snapshots := make(map[string][]customers.OrderRecord, len(ids))
	for _, id := range ids {
		orders, err := h.store.GetOrdersSnapshot(ctx, id)
		if err != nil {
			HandleAppError(c, apperrors.WrapError(err, "Не удалось прочитать снимок заказов").WithContext(id))
			return
		}
		snapshots[id] = orders
	}

	resolveCtx, cancel := h.withTimeout(ctx)
	defer cancel()

	results, err := h.resolver.ResolveStores(resolveCtx, snapshots, h.config.MaxConcurrentStores)
	if err != nil {
		HandleAppError(c, apperrors.WrapError(err, "Не удалось рассчитать клиентов"))
		return
	}

	resp := RebuildAllResponse{Stores: make(map[string]customers.ResolutionStats, len(results))}
	for _, id := range ids {
		res := results[id]
		if err := h.store.SaveResolution(ctx, id, h.resolver.Config().MergeThreshold, res); err != nil {
			HandleAppError(c, apperrors.WrapError(err, "Не удалось сохранить расчет клиентов").WithContext(id))
			return
		}
		resp.Stores[id] = res.Stats
		resp.Customers += len(res.Customers)
	}
	resp.Total = len(resp.Stores)

	h.logger.Info("All stores rebuilt", "stores", resp.Total, "customers", resp.Customers)
	SendJSONResponse(c, http.StatusOK, resp)
}

// HandleListCustomers возвращает сохраненный расчет клиентов
// @Summary Получить клиентов магазина
// @Description Возвращает последний сохраненный расчет. Поддерживает постраничный вывод.
// @Tags customers
// @Produce json
// @Param store_id path string true "Идентификатор магазина"
// @Param offset query int false "Смещение" default(0)
// @Param limit query int false "Количество, 0 - все" default(0)
// @Success 200 {object} CustomersListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/stores/{store_id}/customers [get]
func (h *CustomersHandler) HandleListCustomers(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	offset, err := queryInt(c, "offset")
	if err != nil {
		HandleAppError(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		HandleAppError(c, err)
		return
	}

	info, list, err := h.loadResolution(c.Request.Context(), storeID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	page := list
	if offset >= len(page) {
		page = []*customers.CustomerAggregate{}
	} else {
		page = page[offset:]
	}
	if limit > 0 && limit < len(page) {
		page = page[:limit]
	}

	SendJSONResponse(c, http.StatusOK, CustomersListResponse{
		StoreID:        storeID,
		ResolvedAt:     info.ResolvedAt,
		MergeThreshold: info.MergeThreshold,
		Total:          len(list),
		Offset:         offset,
		Limit:          limit,
		Customers:      page,
		Stats:          info.Stats,
	})
}

// HandleExportCustomers выгружает сохраненный расчет в файл
// @Summary Выгрузить клиентов магазина
// @Tags customers
// @Produce text/csv
// @Produce application/json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param store_id path string true "Идентификатор магазина"
// @Param format query string false "Формат: csv, json, xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/stores/{store_id}/customers/export [get]
func (h *CustomersHandler) HandleExportCustomers(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	format, err := exporter.ParseFormat(c.Query("format"))
	if err != nil {
		HandleAppError(c, apperrors.NewValidationError("Неизвестный формат выгрузки, допустимо: csv, json, xlsx", err))
		return
	}

	_, list, err := h.loadResolution(c.Request.Context(), storeID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.Write(&buf, format, list); err != nil {
		HandleAppError(c, apperrors.NewInternalError("failed to export customers", err).WithContext(storeID))
		return
	}

	filename := fmt.Sprintf("customers_%s_%s%s", sanitizeFilename(storeID), time.Now().Format("20060102_150405"), format.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// HandleListStores возвращает магазины с загруженными заказами
// @Summary Список магазинов
// @Tags orders
// @Produce json
// @Success 200 {object} StoresResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/stores [get]
func (h *CustomersHandler) HandleListStores(c *gin.Context) {
	ctx := c.Request.Context()

	ids, err := h.store.ListStores(ctx)
	if err != nil {
		HandleAppError(c, apperrors.WrapError(err, "Не удалось получить список магазинов"))
		return
	}

	stores := make([]StoreSummary, 0, len(ids))
	for _, id := range ids {
		count, err := h.store.CountOrders(ctx, id)
		if err != nil {
			HandleAppError(c, apperrors.WrapError(err, "Не удалось посчитать заказы").WithContext(id))
			return
		}
		stores = append(stores, StoreSummary{StoreID: id, Orders: count})
	}

	SendJSONResponse(c, http.StatusOK, StoresResponse{Stores: stores, Total: len(stores)})
}

// HandleDeleteOrders удаляет снимок заказов магазина вместе с расчетом
// @Summary Удалить заказы магазина
// @Tags orders
// @Produce json
// @Param store_id path string true "Идентификатор магазина"
// @Success 200 {object} DeleteOrdersResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/stores/{store_id}/orders [delete]
func (h *CustomersHandler) HandleDeleteOrders(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	deleted, err := h.store.DeleteOrders(c.Request.Context(), storeID)
	if err != nil {
		HandleAppError(c, apperrors.WrapError(err, "Не удалось удалить заказы").WithContext(storeID))
		return
	}

	h.logger.Info("Orders deleted", "store_id", storeID, "deleted", deleted)
	SendJSONResponse(c, http.StatusOK, DeleteOrdersResponse{StoreID: storeID, Deleted: deleted})
}

// resolve запускает расчет с ограничением времени
func (h *CustomersHandler) resolve(ctx context.Context, orders []customers.OrderRecord) (*customers.Resolution, error) {
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	return h.resolver.Resolve(ctx, orders)
}

func (h *CustomersHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.config.Timeout > 0 {
		return context.WithTimeout(ctx, h.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// loadResolution читает сводку и клиентов сохраненного расчета
func (h *CustomersHandler) loadResolution(ctx context.Context, storeID string) (*database.ResolutionInfo, []*customers.CustomerAggregate, error) {
	info, err := h.store.GetResolutionInfo(ctx, storeID)
	if err != nil {
		return nil, nil, resolutionError(err, storeID)
	}
	list, err := h.store.GetResolvedCustomers(ctx, storeID)
	if err != nil {
		return nil, nil, resolutionError(err, storeID)
	}
	return info, list, nil
}

func resolutionError(err error, storeID string) *apperrors.AppError {
	if errors.Is(err, database.ErrResolutionNotFound) {
		return apperrors.NewNotFoundError(
			"Расчет клиентов не найден, выполните POST /api/stores/"+storeID+"/customers/rebuild", err,
		).WithContext(storeID)
	}
	return apperrors.WrapError(err, "Не удалось прочитать расчет клиентов").WithContext(storeID)
}

func newResolveResponse(storeID string, res *customers.Resolution, stored bool) ResolveResponse {
	list := res.Customers
	if list == nil {
		list = []*customers.CustomerAggregate{}
	}
	return ResolveResponse{
		StoreID:    storeID,
		ResolvedAt: time.Now().UTC(),
		Stored:     stored,
		Total:      len(list),
		Customers:  list,
		Stats:      res.Stats,
	}
}

// queryInt читает неотрицательный целый параметр запроса; отсутствие дает 0
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("Параметр %s должен быть неотрицательным числом", name), err)
	}
	return n, nil
}

// sanitizeFilename оставляет в имени файла только безопасные символы
func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
