// Package ratelimit provides rate limiting middleware for the WalletGuard API.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Config configures rate limiting
type Config struct {
	// RequestsPerMinute is the max requests per client per minute
	RequestsPerMinute int
	// MinInterval is the minimum spacing between two requests from the
	// same client; 0 disables the check
	MinInterval time.Duration
	// Window is the sliding window length
	Window time.Duration
	// CleanupInterval is how often to clean old entries
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		MinInterval:       0,
		Window:            time.Minute,
		CleanupInterval:   time.Minute,
	}
}

// TransferConfig returns the tighter limits applied to the transfer
// endpoint: 10 transfers per minute, at least a second apart.
func TransferConfig() Config {
	return Config{
		RequestsPerMinute: 10,
		MinInterval:       time.Second,
		Window:            time.Minute,
		CleanupInterval:   time.Minute,
	}
}

// Limiter tracks request timestamps per client in a sliding window.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	clients map[string]*clientState
	stop    chan struct{}
}

type clientState struct {
	requests []time.Time
	last     time.Time
}

// New creates a new rate limiter
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	l := &Limiter{
		cfg:     cfg,
		clients: make(map[string]*clientState),
		stop:    make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go l.cleanup()
	}
	return l
}

// cleanup removes stale entries periodically
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			cutoff := time.Now().Add(-2 * l.cfg.Window)
			for key, state := range l.clients {
				if state.last.Before(cutoff) {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (l *Limiter) Stop() {
	close(l.stop)
}

// Allow checks if a request from key should be allowed right now.
func (l *Limiter) Allow(key string) bool {
	return l.allowAt(key, time.Now())
}

func (l *Limiter) allowAt(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, exists := l.clients[key]
	if !exists {
		state = &clientState{}
		l.clients[key] = state
	}

	// Minimum spacing between requests.
	if l.cfg.MinInterval > 0 && !state.last.IsZero() && now.Sub(state.last) < l.cfg.MinInterval {
		return false
	}

	// Drop timestamps that have slid out of the window.
	cutoff := now.Add(-l.cfg.Window)
	kept := state.requests[:0]
	for _, t := range state.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	state.requests = kept

	if len(state.requests) >= l.cfg.RequestsPerMinute {
		return false
	}

	state.requests = append(state.requests, now)
	state.last = now
	return true
}

// Middleware returns a Gin middleware that rate limits by client IP.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "Too many requests. Please slow down.",
				"retry_after": 1,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// SenderMiddleware rate limits the transfer endpoint by sender address
// from the request body, falling back to the client IP when the body
// cannot be read. The body is re-buffered for the handler.
func (l *Limiter) SenderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		var probe struct {
			Sender string `json:"from_address"`
		}
		if err := c.ShouldBindBodyWithJSON(&probe); err == nil && probe.Sender != "" {
			key = "sender:" + probe.Sender
		}

		if !l.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "Transfer rate limit exceeded. Please slow down.",
				"retry_after": 1,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
