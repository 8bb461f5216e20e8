package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"cashcraft/api/internal/cache"
)

type countingLimiter struct {
	limit int
	calls map[string]int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string) (cache.RateDecision, error) {
	if l.err != nil {
		return cache.RateDecision{}, l.err
	}
	l.calls[key]++
	n := l.calls[key]
	remaining := l.limit - n
	if remaining < 0 {
		remaining = 0
	}
	return cache.RateDecision{
		Allowed:   n <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(15 * time.Minute),
	}, nil
}

func newLimitedEngine(l Limiter) *gin.Engine {
	r := gin.New()
	r.Use(RateLimit(l, zerolog.Nop()))
	r.GET("/api/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{limit: 2, calls: map[string]int{}}
	r := newLimitedEngine(limiter)

	var codes []int
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		last = rr
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "2", last.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "0", last.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "Too many requests, please try again later.")

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "other clients keep their own budget")
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := newLimitedEngine(&countingLimiter{err: errors.New("redis down")})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("RateLimit-Limit"))
}
