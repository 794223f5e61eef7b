package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// client represents a client with its rate limiter and last seen time
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// CORSMiddleware adds CORS headers to the response.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// BasicAuthMiddleware requires HTTP Basic credentials matching the API id and
// key, the same header the rendering service expects on template calls.
func BasicAuthMiddleware(apiID, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, pass, ok := c.Request.BasicAuth()
		if !ok || apiID == "" ||
			subtle.ConstantTimeCompare([]byte(user), []byte(apiID)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(apiKey)) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="hcti"`)
			respond(c, http.StatusUnauthorized, unauthorized, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware applies per-IP rate limiting: RateLimit requests per
// RatePeriod with bursts of RateLimit. Excess requests get 429. The client
// cleanup goroutine stops when ctx is done.
func (h *Handler) RateLimitMiddleware(ctx context.Context) gin.HandlerFunc {
	const (
		cleanupInterval   = time.Minute
		clientInactiveFor = 3 * time.Minute
	)

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	every := rate.Every(h.config.RatePeriod / time.Duration(h.config.RateLimit))

	go cleanupInactiveClients(ctx, &mu, clients, cleanupInterval, clientInactiveFor)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		cl, found := clients[ip]
		if !found {
			cl = &client{limiter: rate.NewLimiter(every, h.config.RateLimit)}
			clients[ip] = cl
		}
		cl.lastSeen = time.Now()
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			respond(c, http.StatusTooManyRequests, "Rate limit exceeded", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

// cleanupInactiveClients periodically removes clients that haven't been seen recently
func cleanupInactiveClients(ctx context.Context, mu *sync.Mutex, clients map[string]*client, interval, inactiveFor time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		mu.Lock()
		for ip, cl := range clients {
			if time.Since(cl.lastSeen) > inactiveFor {
				delete(clients, ip)
			}
		}
		mu.Unlock()
	}
}
