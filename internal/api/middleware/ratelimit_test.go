package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"lending-engine/internal/config"
)

func TestRateLimiterMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allows requests under the rate limit", func(t *testing.T) {
		middleware := NewRateLimiterMiddleware(config.RateLimitConfig{
			Enabled: true,
			RPS:     1,
			Burst:   2,
		}, logger)
		handler := middleware.Middleware(nextHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})

	t.Run("blocks requests exceeding the burst", func(t *testing.T) {
		middleware := NewRateLimiterMiddleware(config.RateLimitConfig{
			Enabled: true,
			RPS:     1,
			Burst:   1,
		}, logger)
		handler := middleware.Middleware(nextHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.2:12345"

		rec1 := httptest.NewRecorder()
		handler.ServeHTTP(rec1, req)
		if rec1.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec1.Code)
		}

		rec2 := httptest.NewRecorder()
		handler.ServeHTTP(rec2, req)
		if rec2.Code != http.StatusTooManyRequests {
			t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, rec2.Code)
		}
		if got := rec2.Header().Get("Retry-After"); got == "" {
			t.Error("expected a Retry-After header on the throttled response")
		}
	})

	t.Run("limits clients independently by IP", func(t *testing.T) {
		middleware := NewRateLimiterMiddleware(config.RateLimitConfig{
			Enabled: true,
			RPS:     1,
			Burst:   1,
		}, logger)
		handler := middleware.Middleware(nextHandler)

		first := httptest.NewRequest(http.MethodGet, "/", nil)
		first.RemoteAddr = "10.0.0.1:1000"
		rec1 := httptest.NewRecorder()
		handler.ServeHTTP(rec1, first)

		second := httptest.NewRequest(http.MethodGet, "/", nil)
		second.RemoteAddr = "10.0.0.2:1000"
		rec2 := httptest.NewRecorder()
		handler.ServeHTTP(rec2, second)

		if rec2.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec2.Code)
		}
	})

	t.Run("passes requests through when disabled", func(t *testing.T) {
		middleware := NewRateLimiterMiddleware(config.RateLimitConfig{Enabled: false}, logger)
		handler := middleware.Middleware(nextHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.3:12345"

		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
		}
	})

	t.Run("prefers the X-Forwarded-For header", func(t *testing.T) {
		middleware := NewRateLimiterMiddleware(config.RateLimitConfig{
			Enabled: true,
			RPS:     1,
			Burst:   1,
		}, logger)
		handler := middleware.Middleware(nextHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.4:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

		rec1 := httptest.NewRecorder()
		handler.ServeHTTP(rec1, req)

		rec2 := httptest.NewRecorder()
		handler.ServeHTTP(rec2, req)

		if rec2.Code != http.StatusTooManyRequests {
			t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, rec2.Code)
		}
	})
}
