package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"customerserver/customers"
	"customerserver/database"
)

// Config конфигурация сервера
type Config struct {
	// Сервер
	Port string `json:"port"`

	// База заказов и рассчитанных клиентов
	DatabasePath string `json:"database_path"`

	// Connection pooling
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`

	// Логирование
	LogLevel string `json:"log_level"`

	// Определение клиентов
	Resolution *ResolutionConfig `json:"resolution"`

	// Ограничение частоты пересчетов
	RateLimit *RateLimitConfig `json:"rate_limit"`
}

// ResolutionConfig параметры определения клиентов
type ResolutionConfig struct {
	DefaultCountryCode  string                   `json:"default_country_code"`
	MergeThreshold      float64                  `json:"merge_threshold"`
	Timeout             time.Duration            `json:"timeout"`
	MaxConcurrentStores int                      `json:"max_concurrent_stores"`
	Weights             customers.ScoringWeights `json:"weights"`
}

// RateLimitConfig ограничение пересчетов на магазин
type RateLimitConfig struct {
	Enabled bool    `json:"enabled"`
	PerSec  float64 `json:"per_sec"`
	Burst   int     `json:"burst"`
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	config := &Config{
		// Сервер
		Port: getEnv("SERVER_PORT", "9999"),

		// База данных
		DatabasePath: getEnv("DATABASE_PATH", "customers.db"),

		// Connection pooling
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 3),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		// Логирование
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		Resolution: LoadResolutionConfig(),
		RateLimit:  LoadRateLimitConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// LoadResolutionConfig загружает параметры определения клиентов
func LoadResolutionConfig() *ResolutionConfig {
	defaults := customers.DefaultConfig()
	weights := defaults.Weights

	return &ResolutionConfig{
		DefaultCountryCode:  getEnv("DEFAULT_COUNTRY_CODE", defaults.DefaultCountryCode),
		MergeThreshold:      getEnvFloat("MERGE_THRESHOLD", defaults.MergeThreshold),
		Timeout:             getEnvDuration("RESOLVE_TIMEOUT", 30*time.Second),
		MaxConcurrentStores: getEnvInt("RESOLVE_MAX_CONCURRENT_STORES", 4),
		Weights: customers.ScoringWeights{
			NameStrong:      getEnvFloat("SCORE_NAME_STRONG", weights.NameStrong),
			NameWeak:        getEnvFloat("SCORE_NAME_WEAK", weights.NameWeak),
			NameStrongAbove: getEnvFloat("SCORE_NAME_STRONG_ABOVE", weights.NameStrongAbove),
			NameWeakAbove:   getEnvFloat("SCORE_NAME_WEAK_ABOVE", weights.NameWeakAbove),
			Phone:           getEnvFloat("SCORE_PHONE", weights.Phone),
			Address:         getEnvFloat("SCORE_ADDRESS", weights.Address),
		},
	}
}

// LoadRateLimitConfig загружает ограничение частоты пересчетов
func LoadRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: getEnv("RESOLVE_RATE_LIMIT_ENABLED", "true") == "true",
		PerSec:  getEnvFloat("RESOLVE_RATE_LIMIT_PER_SEC", 2),
		Burst:   getEnvInt("RESOLVE_RATE_BURST", 4),
	}
}

// ResolverConfig параметры конвейера определения клиентов
func (c *Config) ResolverConfig() customers.Config {
	if c.Resolution == nil {
		return customers.DefaultConfig()
	}
	return customers.Config{
		DefaultCountryCode: c.Resolution.DefaultCountryCode,
		MergeThreshold:     c.Resolution.MergeThreshold,
		Weights:            c.Resolution.Weights,
	}
}

// DBConfig параметры пула подключений к базе
func (c *Config) DBConfig() database.DBConfig {
	return database.DBConfig{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64 или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
