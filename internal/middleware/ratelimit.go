package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimit 返回一个基于客户端 IP 的固定窗口限流中间件。
// 单进程内存实现：窗口计数保存在本地 map 里，过期条目惰性清理。
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	type counter struct {
		count   int
		resetAt time.Time
	}

	var (
		mu       sync.Mutex
		counters = make(map[string]*counter)
	)

	return func(c *gin.Context) {
		now := time.Now()
		key := c.ClientIP()

		mu.Lock()
		// 顺手清掉已过期的其他条目，避免 map 无界增长
		for k, v := range counters {
			if now.After(v.resetAt) {
				delete(counters, k)
			}
		}
		entry, ok := counters[key]
		if !ok || now.After(entry.resetAt) {
			entry = &counter{resetAt: now.Add(window)}
			counters[key] = entry
		}
		entry.count++
		exceeded := entry.count > maxRequests
		mu.Unlock()

		if exceeded {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
