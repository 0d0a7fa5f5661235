package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "customerserver/server/errors"
)

// StoreRateLimiter ограничивает частоту запросов отдельно для каждого магазина
type StoreRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*storeLimiter
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

type storeLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewStoreRateLimiter создает ограничитель: perSec запросов в секунду, не более burst подряд
func NewStoreRateLimiter(perSec float64, burst int) *StoreRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &StoreRateLimiter{
		limiters: make(map[string]*storeLimiter),
		limit:    rate.Limit(perSec),
		burst:    burst,
		idleTTL:  10 * time.Minute,
	}
}

// Allow сообщает, можно ли выполнить запрос для магазина сейчас
func (l *StoreRateLimiter) Allow(storeID string) bool {
	return l.get(storeID, time.Now()).Allow()
}

func (l *StoreRateLimiter) get(storeID string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[storeID]
	if !ok {
		entry = &storeLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[storeID] = entry
		l.evictIdle(now)
	}
	entry.lastSeen = now
	return entry.limiter
}

// evictIdle удаляет ограничители магазинов, не обращавшихся дольше idleTTL
func (l *StoreRateLimiter) evictIdle(now time.Time) {
	for id, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.idleTTL && !entry.lastSeen.IsZero() {
			delete(l.limiters, id)
		}
	}
}

// Middleware отвечает 429, если магазин из параметра param превысил лимит
func (l *StoreRateLimiter) Middleware(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.Param(param)
		if !l.Allow(storeID) {
			c.Header("Retry-After", "1")
			WriteGinError(c, apperrors.NewTooManyRequestsError(
				"Слишком много запросов расчета для магазина, повторите позже", nil,
			).WithContext(storeID))
			return
		}
		c.Next()
	}
}
