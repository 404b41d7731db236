package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplyhub/marketplace-backend/pkg/config"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
)

type memoryCounters struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newMemoryCounters() *memoryCounters {
	return &memoryCounters{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCounters) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counts[key]++
	m.ttls[key] = ttl
	return m.counts[key], nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	return req
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestRateLimitPassesBodyThrough(t *testing.T) {
	rule := RateLimitRule{Name: "login", Window: time.Minute, PerIP: 2, PerEmail: 2}
	var seen string
	handler := RateLimit(rule, newMemoryCounters(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = string(body)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("Buyer@Example.com", "1.2.3.4:5678"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, seen, `"email":"Buyer@Example.com"`)
}

func TestRateLimitEmailIsCaseInsensitive(t *testing.T) {
	counters := newMemoryCounters()
	rule := RateLimitRule{Name: "login", Window: time.Minute, PerEmail: 2}
	handler := RateLimit(rule, counters, nil)(http.HandlerFunc(okHandler))

	codes := []int{}
	for _, email := range []string{"shop@example.com", "SHOP@example.com", " shop@example.com"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, "10.0.0.1:1"))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, string(pkgerrors.CodeRateLimit), payload.Error.Code)
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	for key, ttl := range counters.ttls {
		assert.True(t, strings.HasPrefix(key, "mkt:rate_limit:login:email:"), key)
		assert.NotContains(t, key, "shop@example.com")
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestRateLimitIPUsesRealIP(t *testing.T) {
	counters := newMemoryCounters()
	rule := RegisterRule(config.AuthRateLimitConfig{RegisterWindow: time.Minute, RegisterIPLimit: 1})
	handler := chimw.RealIP(RateLimit(rule, counters, nil)(http.HandlerFunc(okHandler)))

	first := loginRequest("a@example.com", "127.0.0.1:9000")
	first.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := loginRequest("b@example.com", "127.0.0.1:9001")
	second.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, counters.counts, "mkt:rate_limit:register:ip:203.0.113.7")
}

func TestRateLimitDisabledRule(t *testing.T) {
	counters := newMemoryCounters()
	handler := RateLimit(LoginRule(config.AuthRateLimitConfig{}), counters, nil)(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, counters.counts)
}

func TestRateLimitStoreFailure(t *testing.T) {
	counters := newMemoryCounters()
	counters.err = errors.New("redis down")
	rule := RateLimitRule{Name: "login", Window: time.Minute, PerIP: 5}
	handler := RateLimit(rule, counters, nil)(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
	assert.GreaterOrEqual(t, rec.Code, http.StatusInternalServerError)
}
