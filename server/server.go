package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"customerserver/customers"
	"customerserver/database"
	"customerserver/internal/config"
	"customerserver/server/handlers"
	"customerserver/server/middleware"
)

// Server HTTP API определения клиентов магазинов
type Server struct {
	config   *config.Config
	db       *database.OrdersDB
	resolver *customers.Resolver

	httpServer     *http.Server
	httpHandler    http.Handler
	handlerOnce    sync.Once
	handlerInitErr error
}

// NewServer открывает базу из конфигурации и создает сервер
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.NewOrdersDBWithConfig(cfg.DatabasePath, cfg.DBConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open orders database: %w", err)
	}

	return NewServerWithDB(cfg, db), nil
}

// NewServerWithDB создает сервер поверх уже открытой базы
func NewServerWithDB(cfg *config.Config, db *database.OrdersDB) *Server {
	return &Server{
		config:   cfg,
		db:       db,
		resolver: customers.NewResolver(cfg.ResolverConfig(), customers.WithLogger(Logger)),
	}
}

// Start запускает HTTP сервер и блокируется до его остановки
func (s *Server) Start() error {
	handler, err := s.ensureHTTPHandler()
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.writeTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting HTTP server on %s...", s.httpServer.Addr)
	log.Printf("API доступно по адресу: http://localhost%s, документация: /swagger/index.html", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		LogError(context.Background(), err, "HTTP server failed", "addr", s.httpServer.Addr)
		return fmt.Errorf("failed to start HTTP server on %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// writeTimeout оставляет расчету запас поверх RESOLVE_TIMEOUT
func (s *Server) writeTimeout() time.Duration {
	timeout := 30 * time.Second
	if s.config.Resolution != nil && s.config.Resolution.Timeout > 0 {
		timeout = s.config.Resolution.Timeout
	}
	return timeout + 30*time.Second
}

func (s *Server) ensureHTTPHandler() (http.Handler, error) {
	s.handlerOnce.Do(func() {
		s.httpHandler, s.handlerInitErr = s.buildHTTPHandler()
	})
	if s.handlerInitErr != nil {
		return nil, s.handlerInitErr
	}
	return s.httpHandler, nil
}

func (s *Server) buildHTTPHandler() (http.Handler, error) {
	if s.db == nil {
		return nil, fmt.Errorf("orders database is not initialized")
	}

	// GIN_MODE переопределяет режим, по умолчанию release
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinRequestIDMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinGzipMiddleware())
	router.Use(middleware.GinLoggerMiddleware(Logger))
	router.Use(middleware.GinRecoveryMiddleware(Logger))

	handlers.RegisterSwaggerRoutes(router, "localhost:"+s.config.Port)

	handlerConfig := handlers.CustomersHandlerConfig{}
	if s.config.Resolution != nil {
		handlerConfig.Timeout = s.config.Resolution.Timeout
		handlerConfig.MaxConcurrentStores = s.config.Resolution.MaxConcurrentStores
	}
	customersHandler := handlers.NewCustomersHandler(s.db, s.resolver, handlerConfig, Logger)

	var resolveLimit gin.HandlerFunc
	if rl := s.config.RateLimit; rl != nil && rl.Enabled {
		resolveLimit = middleware.NewStoreRateLimiter(rl.PerSec, rl.Burst).Middleware("store_id")
	}

	handlers.RegisterRoutes(router, customersHandler, handlers.NewHealthHandler(s.db), resolveLimit)

	return router, nil
}

// ServeHTTP реализует http.Handler для тестов и вспомогательных утилит
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler, err := s.ensureHTTPHandler()
	if err != nil {
		http.Error(w, "server is not initialized", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}

// Shutdown останавливает HTTP сервер и закрывает базу
func (s *Server) Shutdown(ctx context.Context) error {
	LogInfo(ctx, "Initiating graceful shutdown")

	var shutdownErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("ошибка остановки сервера: %w", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("failed to close orders database: %w", err))
		}
	}

	if shutdownErr == nil {
		LogInfo(ctx, "Graceful shutdown completed")
	}
	return shutdownErr
}
