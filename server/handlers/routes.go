package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует маршруты API.
// resolveLimit, если задан, ограничивает частоту расчетов по магазину.
func RegisterRoutes(router *gin.Engine, customersHandler *CustomersHandler, healthHandler *HealthHandler, resolveLimit gin.HandlerFunc) {
	router.GET("/health", healthHandler.HandleHealth)

	api := router.Group("/api")
	api.GET("/errors/metrics", healthHandler.HandleErrorMetrics)
	api.GET("/stores", customersHandler.HandleListStores)
	api.POST("/customers/rebuild", customersHandler.HandleRebuildAll)

	stores := api.Group("/stores/:store_id")
	stores.POST("/orders", customersHandler.HandleUploadOrders)
	stores.DELETE("/orders", customersHandler.HandleDeleteOrders)
	stores.GET("/customers", customersHandler.HandleListCustomers)
	stores.GET("/customers/export", customersHandler.HandleExportCustomers)

	resolve := stores.Group("/customers")
	if resolveLimit != nil {
		resolve.Use(resolveLimit)
	}
	resolve.POST("/resolve", customersHandler.HandleResolve)
	resolve.POST("/rebuild", customersHandler.HandleRebuild)
}
