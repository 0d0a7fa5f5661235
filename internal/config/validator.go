package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"customerserver/customers"
)

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	var errors []string

	// Валидация порта
	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	if c.DatabasePath == "" {
		errors = append(errors, "database path is required")
	}

	// Валидация connection pooling
	if c.MaxOpenConns < 1 {
		errors = append(errors, "max open connections must be at least 1")
	}
	if c.MaxIdleConns < 1 {
		errors = append(errors, "max idle connections must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		errors = append(errors, "max idle connections cannot be greater than max open connections")
	}
	if c.ConnMaxLifetime < time.Second {
		errors = append(errors, "connection max lifetime must be at least 1 second")
	}

	// Валидация уровня логирования
	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if c.LogLevel != "" {
		valid := false
		logLevelUpper := strings.ToUpper(c.LogLevel)
		for _, level := range validLogLevels {
			if logLevelUpper == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("invalid log level: %s (valid: %s)",
				c.LogLevel, strings.Join(validLogLevels, ", ")))
		}
	}

	if c.Resolution != nil {
		if err := c.Resolution.Validate(); err != nil {
			errors = append(errors, fmt.Sprintf("resolution config: %v", err))
		}
	}

	if c.RateLimit != nil {
		if err := c.RateLimit.Validate(); err != nil {
			errors = append(errors, fmt.Sprintf("rate limit config: %v", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate проверяет параметры определения клиентов
func (rc *ResolutionConfig) Validate() error {
	var errors []string

	code := strings.TrimPrefix(strings.TrimSpace(rc.DefaultCountryCode), "+")
	if code == "" {
		errors = append(errors, "default country code is required")
	} else if _, err := strconv.Atoi(code); err != nil || len(code) > 4 {
		errors = append(errors, fmt.Sprintf("invalid default country code: %s", rc.DefaultCountryCode))
	}

	if rc.MergeThreshold <= 0 || rc.MergeThreshold > 1 {
		errors = append(errors, fmt.Sprintf("merge threshold must be in (0, 1], got %v", rc.MergeThreshold))
	}
	if rc.Timeout < time.Second {
		errors = append(errors, "resolve timeout must be at least 1 second")
	}
	if rc.MaxConcurrentStores < 1 {
		errors = append(errors, "max concurrent stores must be at least 1")
	}

	w := rc.Weights
	weights := []struct {
		name  string
		value float64
	}{
		{"name strong", w.NameStrong},
		{"name weak", w.NameWeak},
		{"phone", w.Phone},
		{"address", w.Address},
	}
	for _, weight := range weights {
		if weight.value < 0 || weight.value > 1 {
			errors = append(errors, fmt.Sprintf("%s weight must be between 0 and 1", weight.name))
		}
	}
	if w.NameWeakAbove < 0 || w.NameStrongAbove > 1 || w.NameWeakAbove > w.NameStrongAbove {
		errors = append(errors, "name similarity bands must satisfy 0 <= weak <= strong <= 1")
	}

	if len(errors) > 0 {
		return fmt.Errorf("resolution validation errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

// Validate проверяет ограничение частоты пересчетов
func (rl *RateLimitConfig) Validate() error {
	if !rl.Enabled {
		return nil
	}
	if rl.PerSec <= 0 {
		return fmt.Errorf("rate limit per second must be positive")
	}
	if rl.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1")
	}
	return nil
}

// GetDefaults возвращает конфигурацию со значениями по умолчанию
func GetDefaults() *Config {
	return &Config{
		Port:            "9999",
		DatabasePath:    "customers.db",
		MaxOpenConns:    10,
		MaxIdleConns:    3,
		ConnMaxLifetime: 5 * time.Minute,
		LogLevel:        "INFO",
		Resolution:      DefaultResolutionConfig(),
		RateLimit: &RateLimitConfig{
			Enabled: true,
			PerSec:  2,
			Burst:   4,
		},
	}
}

// DefaultResolutionConfig параметры определения клиентов по умолчанию
func DefaultResolutionConfig() *ResolutionConfig {
	defaults := customers.DefaultConfig()
	return &ResolutionConfig{
		DefaultCountryCode:  defaults.DefaultCountryCode,
		MergeThreshold:      defaults.MergeThreshold,
		Timeout:             30 * time.Second,
		MaxConcurrentStores: 4,
		Weights:             defaults.Weights,
	}
}
