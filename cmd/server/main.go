// @title Customer Resolution API
// @version 1.0
// @description Определение реальных клиентов магазина по снимку заказов: нормализация телефонов и имен, группировка и объединение дублей.

// @host localhost:9999
// @BasePath /
// @schemes http https

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"customerserver/internal/config"
	"customerserver/server"
)

func main() {
	log.Println("Запуск сервера определения клиентов...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	server.InitLogger(cfg.LogLevel)

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Ошибка создания сервера: %v", err)
	}
	log.Printf("Используется база данных: %s", cfg.DatabasePath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Сервер остановлен с ошибкой: %v", err)
		}
		return
	case <-ctx.Done():
		log.Println("Получен сигнал остановки")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ошибка при остановке сервера: %v", err)
		os.Exit(1)
	}
	log.Println("Сервер остановлен")
}
