package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"customerserver/customers"
	"customerserver/database"
	"customerserver/server/middleware"
)

// setupGinTestRouter создает тестовый Gin роутер
func setupGinTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// setupCustomersAPI собирает API поверх базы в памяти
func setupCustomersAPI(t *testing.T, resolveLimit gin.HandlerFunc) (*gin.Engine, *database.OrdersDB) {
	t.Helper()

	db, err := database.NewOrdersDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	resolver := customers.NewResolver(customers.DefaultConfig())
	customersHandler := NewCustomersHandler(db, resolver, CustomersHandlerConfig{
		Timeout:             5 * time.Second,
		MaxConcurrentStores: 2,
	}, nil)

	router := setupGinTestRouter()
	router.Use(middleware.GinRequestIDMiddleware())
	RegisterRoutes(router, customersHandler, NewHealthHandler(db), resolveLimit)
	return router, db
}

func order(id string, createdAt int64, amount float64, name, phone, address string) customers.OrderRecord {
	return customers.OrderRecord{
		OrderID:     id,
		CreatedAt:   createdAt,
		TotalAmount: amount,
		CustomerInfo: &customers.CustomerInfo{
			FullName: name,
			Phone:    phone,
			Address:  address,
		},
	}
}

// sampleOrders два клиента: Awa Diop с тремя записями телефона и Moussa Keita
func sampleOrders() []customers.OrderRecord {
	return []customers.OrderRecord{
		order("o1", 1000, 10, "Awa Diop", "070012345", "Rue 10, Bamako"),
		order("o2", 2000, 20, "awa diop", "+223 70 01 23 45", "Rue 10, Bamako"),
		order("o3", 3000, 30, "Moussa Keita", "076543210", "Rue 5, Kayes"),
		order("o4", 4000, 40, "Awa  Diop", "00223 70 01 23 45", ""),
		{OrderID: "o5", CreatedAt: 5000, TotalAmount: 5},
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// TestHandleResolve рассчитывает клиентов по снимку из запроса
func TestHandleResolve(t *testing.T) {
	router, _ := setupCustomersAPI(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/stores/shop-1/customers/resolve", OrdersRequest{Orders: sampleOrders()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[ResolveResponse](t, w)
	assert.Equal(t, "shop-1", resp.StoreID)
	assert.False(t, resp.Stored)
	require.Equal(t, 2, resp.Total)

	awa := resp.Customers[0]
	assert.Equal(t, "+22370012345", awa.CanonicalPhone)
	assert.Equal(t, []string{"o1", "o2", "o4"}, awa.OrderIDs)
	assert.Equal(t, 3, awa.TotalOrders)
	assert.InDelta(t, 70.0, awa.TotalSpent, 1e-9)
	assert.Equal(t, "+22376543210", resp.Customers[1].CanonicalPhone)

	assert.Equal(t, 5, resp.Stats.InputOrders)
	assert.Equal(t, 4, resp.Stats.AggregatedOrders)

	// расчет по запросу ничего не сохраняет
	w = doJSON(t, router, http.MethodGet, "/api/stores/shop-1/customers", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleResolve_EmptySnapshot пустой снимок дает пустой список
func TestHandleResolve_EmptySnapshot(t *testing.T) {
	router, _ := setupCustomersAPI(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/stores/shop-1/customers/resolve", map[string]interface{}{})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[ResolveResponse](t, w)
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Customers)
	assert.Contains(t, w.Body.String(), `"customers":[]`)
}

// TestHandleResolve_InvalidJSON проверяет ответ 400
func TestHandleResolve_InvalidJSON(t *testing.T) {
	router, _ := setupCustomersAPI(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/stores/shop-1/customers/resolve", strings.NewReader(`{"orders": [`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.True(t, resp.Error)
	assert.NotEmpty(t, resp.RequestID)
}

// TestHandleResolve_Canceled отмененный запрос прерывает расчет
func TestHandleResolve_Canceled(t *testing.T) {
	router, _ := setupCustomersAPI(t, nil)

	data, err := json.Marshal(OrdersRequest{Orders: sampleOrders()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/stores/shop-1/customers/resolve", bytes.NewReader(data)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())
}

// TestResolveAndRebuild_BlankOrderID расчет по присланному снимку и по сохраненному учитывает заказы без номера одинаково
func TestResolveAndRebuild_BlankOrderID(t *testing.T) {
	router, _ := setupCustomersAPI(t, nil)

	orders := []customers.OrderRecord{
		order("o1", 1000, 10, "Awa Diop", "070012345", "Rue 10, Bamako"),
		order("", 2000, 20, "Awa Diop", "+22370012345", "Rue 10, Bamako"),
	}

	w := doJSON(t, router, http.MethodPost, "/api/stores/shop-1/customers/resolve", OrdersRequest{Orders: orders})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[ResolveResponse](t, w)

	w = doJSON(t, router, http.MethodPost, "/api/stores/shop-1/orders", OrdersRequest{Orders: orders})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[UploadOrdersResponse](t, w).GeneratedIDs)

	w = doJSON(t, router, http.MethodPost, "/api/stores/shop-1/customers/rebuild", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rebuilt := decode[ResolveResponse](t, w)

	require.Equal(t, 1, resolved.Total)
	require.Equal(t, 1, rebuilt.Total)
	assert.Equal(t, 2, resolved.Customers[0].TotalOrders)
	assert.Equal(t, resolved.Customers[0].TotalOrders, rebuilt.Customers[0].TotalOrders)
	assert.Equal(t, resolved.Stats.AggregatedOrders, rebuilt.Stats.AggregatedOrders)
}

// TestUploadRebuildList проходит путь загрузка -> пересчет -> чтение -> выгрузка
func TestUploadRebuildList(t *testing.T) {
	router, db := setupCustomersAPI(t, nil)

	orders := sampleOrders()
	orders = append(orders, customers.OrderRecord{OrderID: " ", TotalAmount: 1})

	w := doJSON(t, router, http.MethodPost, "/api/stores/shop-1/orders", OrdersRequest{Orders: orders})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	upload := decode[UploadOrdersResponse](t, w)
	assert.Equal(t, 6, upload.Received)
	assert.Equal(t, 6, upload.Inserted)
	assert.Equal(t, 1, upload.GeneratedIDs)
	assert.Equal(t, 6, upload.TotalOrders)

	w = doJSON(t, router, http.MethodPost, "/api/stores/shop-1/customers/rebuild", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rebuilt := decode[ResolveResponse](t, w)
	assert.True(t, rebuilt.Stored)
	assert.Equal(t, 2, rebuilt.Total)

	info, err := db.GetResolutionInfo(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Customers)

	w = doJSON(t, router, http.MethodGet, "/api/stores/shop-1/customers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[CustomersListResponse](t, w)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 0.8, list.MergeThreshold)
	require.Len(t, list.Customers, 2)
	assert.Equal(t, rebuilt.Customers[0].ID, list.Customers[0].ID)

	w = doJSON(t, router, http.MethodGet, "/api/stores/shop-1/customers?offset=1&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[CustomersListResponse](t, w)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Customers, 1)
	assert.Equal(t, rebuilt.Customers[1].ID, page.Customers[0].ID)

	w = doJSON(t, router, http.MethodGet, "/api/stores/shop-1/customers?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleExportCustomers проверяет выгрузку во всех форматах
func TestHandleExportCustomers(t *testing.T) {
	router, _ := setupCustomersAPI(t, nil)

	w := doJSON(t, router, http.MethodGet, "/api/stores/shop-1/customers/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "no resolution yet")

	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/stores/shop-1/orders", OrdersRequest{Orders: sampleOrders()}).Code)
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/stores/shop-1/customers/rebuild", nil).Code)

	t.Run("csv", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/stores/shop-1/customers/export?format=csv", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, w.Header().Get("Content-Disposition"), "customers_shop-1_")

		records, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("json", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/stores/shop-1/customers/export?format=json", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var payload struct {
			Total     int                            `json:"total"`
			Customers []*customers.CustomerAggregate `json:"customers"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
		assert.Equal(t, 2, payload.Total)
	})

	t.Run("xlsx", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/stores/shop-1/customers/export?format=xlsx", nil)
		require.Equal(t, http.StatusOK, w.Code)

		f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Customers")
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("unknown format", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/stores/shop-1/customers/export?format=pdf", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestHandleUploadOrders_Multipart загружает CSV-файл через форму
func TestHandleUploadOrders_Multipart(t *testing.T) {
	router, db := setupCustomersAPI(t, nil)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("delimiter", ";"))
	part, err := form.CreateFormFile("file", "orders.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("order_id;date;montant;nom;telephone\n" +
		"A-1;2024-03-05;1500;Awa Diop;070012345\n" +
		"A-2;hier;10;Awa Diop;070012345\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/stores/shop-csv/orders", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[UploadOrdersResponse](t, w)
	assert.Equal(t, 1, resp.Inserted)
	require.Len(t, resp.ParseErrors, 1)
	assert.Contains(t, resp.ParseErrors[0], "Row 3")

	snapshot, err := db.GetOrdersSnapshot(context.Background(), "shop-csv")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "Awa Diop", snapshot[0].CustomerInfo.FullName)
}

// TestHandleUploadOrders_MissingFile форма без файла дает 400
func TestHandleUploadOrders_MissingFile(t *testing.T) {
	router, _ := setupCustomersAPI(t, nil)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("encoding", "windows-1252"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/stores/shop-1/orders", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestStoresAndDelete проверяет список магазинов и удаление снимка
func TestStoresAndDelete(t *testing.T) {
	router, _ := setupCustomersAPI(t, nil)

	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/stores/shop-a/orders", OrdersRequest{Orders: sampleOrders()}).Code)
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/stores/shop-b/orders", OrdersRequest{Orders: sampleOrders()[:2]}).Code)

	w := doJSON(t, router, http.MethodGet, "/api/stores", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stores := decode[StoresResponse](t, w)
	assert.Equal(t, []StoreSummary{{StoreID: "shop-a", Orders: 5}, {StoreID: "shop-b", Orders: 2}}, stores.Stores)

	w = doJSON(t, router, http.MethodDelete, "/api/stores/shop-a/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), decode[DeleteOrdersResponse](t, w).Deleted)

	w = doJSON(t, router, http.MethodGet, "/api/stores", nil)
	assert.Equal(t, 1, decode[StoresResponse](t, w).Total)
}

// TestHandleRebuildAll пересчитывает все магазины
func TestHandleRebuildAll(t *testing.T) {
	router, db := setupCustomersAPI(t, nil)

	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/stores/shop-a/orders", OrdersRequest{Orders: sampleOrders()}).Code)
	require.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/stores/shop-b/orders", OrdersRequest{Orders: sampleOrders()[2:3]}).Code)

	w := doJSON(t, router, http.MethodPost, "/api/customers/rebuild", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[RebuildAllResponse](t, w)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 3, resp.Customers)
	assert.Equal(t, 2, resp.Stores["shop-a"].Customers)

	stored, err := db.GetResolvedCustomers(context.Background(), "shop-b")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

// TestResolveRateLimit проверяет ответ 429 при превышении лимита магазина
func TestResolveRateLimit(t *testing.T) {
	limiter := middleware.NewStoreRateLimiter(0.001, 1)
	router, _ := setupCustomersAPI(t, limiter.Middleware("store_id"))

	body := OrdersRequest{Orders: sampleOrders()}
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/stores/shop-1/customers/resolve", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(t, router, http.MethodPost, "/api/stores/shop-1/customers/resolve", body).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodPost, "/api/stores/shop-2/customers/resolve", body).Code)

	// чтение не ограничивается
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodGet, "/api/stores/shop-1/customers", nil).Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

// TestHandleHealth проверяет ответ проверки состояния
func TestHandleHealth(t *testing.T) {
	router, _ := setupCustomersAPI(t, nil)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, w).Status)

	down := setupGinTestRouter()
	down.GET("/health", NewHealthHandler(failingPinger{}).HandleHealth)
	w = doJSON(t, down, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "locked")
}

// TestHandleErrorMetrics проверяет, что ошибки API попадают в метрики
func TestHandleErrorMetrics(t *testing.T) {
	router, _ := setupCustomersAPI(t, nil)

	before := middleware.GetErrorMetrics().Snapshot(0).ErrorsByEndpoint["/api/stores/:store_id/customers"]
	doJSON(t, router, http.MethodGet, "/api/stores/missing/customers", nil)

	w := doJSON(t, router, http.MethodGet, "/api/errors/metrics?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var metrics struct {
		ErrorsByEndpoint map[string]int64 `json:"errors_by_endpoint"`
		LastErrors       []struct {
			Code int `json:"code"`
		} `json:"last_errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.Equal(t, before+1, metrics.ErrorsByEndpoint["/api/stores/:store_id/customers"])
	require.Len(t, metrics.LastErrors, 1)
	assert.Equal(t, http.StatusNotFound, metrics.LastErrors[0].Code)
}

// TestSendJSONError проверяет формат ответа об ошибке
func TestSendJSONError(t *testing.T) {
	router := setupGinTestRouter()
	router.GET("/test", func(c *gin.Context) {
		SendJSONError(c, http.StatusBadRequest, "Неверный параметр")
	})

	w := doJSON(t, router, http.MethodGet, "/test", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.True(t, resp.Error)
	assert.Equal(t, "Неверный параметр", resp.Message)
}
