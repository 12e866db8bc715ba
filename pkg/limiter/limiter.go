package limiter

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitors struct {
	mu    sync.Mutex
	items map[string]*visitor
	rps   rate.Limit
	burst int
	ttl   time.Duration
}

const defaultTTL = 10 * time.Minute

func newVisitors(rps int, burst int, ttl time.Duration) *visitors {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &visitors{
		items: make(map[string]*visitor),
		rps:   rate.Limit(rps),
		burst: burst,
		ttl:   ttl,
	}
}

func (v *visitors) get(ip string, now time.Time) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	item, ok := v.items[ip]
	if !ok {
		item = &visitor{limiter: rate.NewLimiter(v.rps, v.burst)}
		v.items[ip] = item
	}
	item.lastSeen = now

	return item.limiter
}

func (v *visitors) cleanup(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for ip, item := range v.items {
		if now.Sub(item.lastSeen) > v.ttl {
			delete(v.items, ip)
		}
	}
}

// run forgets idle clients every ttl until ctx is done.
func (v *visitors) run(ctx context.Context) {
	ticker := time.NewTicker(v.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			v.cleanup(now)
		}
	}
}

// Limit throttles requests per client IP. Idle clients are forgotten after ttl,
// a non-positive ttl falls back to 10 minutes. Cleanup stops with ctx.
func Limit(ctx context.Context, rps int, burst int, ttl time.Duration) gin.HandlerFunc {
	v := newVisitors(rps, burst, ttl)

	go v.run(ctx)

	return func(c *gin.Context) {
		if !v.get(c.ClientIP(), time.Now()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}

		c.Next()
	}
}
