package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPLimiterAllowsWithinBurst(t *testing.T) {
	t.Parallel()

	l := newIPLimiter(1, 3)
	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"), "request %d should be allowed", i)
	}
	assert.False(t, l.allow("10.0.0.1"))

	// A different client has its own bucket.
	assert.True(t, l.allow("10.0.0.2"))
}

func TestIPLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := newIPLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, l.allow("10.0.0.1"))
	}
}

func TestIPLimiterMiddleware(t *testing.T) {
	t.Parallel()

	l := newIPLimiter(1, 1)
	handler := l.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestIPLimiterCleanup(t *testing.T) {
	t.Parallel()

	l := newIPLimiter(1, 1)
	l.allow("10.0.0.1")
	l.allow("10.0.0.2")

	l.mu.Lock()
	l.clients["10.0.0.1"].lastSeen = time.Now().Add(-10 * time.Minute)
	l.mu.Unlock()

	l.cleanup(3 * time.Minute)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.clients, "10.0.0.1")
	assert.Contains(t, l.clients, "10.0.0.2")
}

func TestExtractIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.168.1.5:4567",
			want:       "192.168.1.5",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "x-forwarded-for chain takes first",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2, 10.0.0.3"},
			want:       "203.0.113.9",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": " 198.51.100.7 "},
			want:       "198.51.100.7",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractIP(req))
		})
	}
}
