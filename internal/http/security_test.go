package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"direct", "203.0.113.7:5000", nil, "203.0.113.7"},
		{"untrusted proxy header ignored", "203.0.113.7:5000", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.7"},
		{"trusted proxy forwarded for", "10.0.0.2:5000", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.9"}, "1.2.3.4"},
		{"trusted proxy real ip", "127.0.0.1:5000", map[string]string{"X-Real-IP": "5.6.7.8"}, "5.6.7.8"},
		{"trusted proxy bad header", "192.168.1.1:5000", map[string]string{"X-Forwarded-For": "garbage"}, "192.168.1.1"},
		{"no port", "203.0.113.9", nil, "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}

func TestIsSuspicious(t *testing.T) {
	suspicious := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/../../etc/passwd", nil),
		httptest.NewRequest(http.MethodGet, "/wp-admin/", nil),
		httptest.NewRequest(http.MethodGet, "/api?next=javascript:alert(1)", nil),
		httptest.NewRequest("TRACE", "/", nil),
		httptest.NewRequest(http.MethodGet, "/?x="+strings.Repeat("a", 2100), nil),
	}
	scanner := httptest.NewRequest(http.MethodGet, "/", nil)
	scanner.Header.Set("User-Agent", "sqlmap/1.7")
	suspicious = append(suspicious, scanner)

	for _, r := range suspicious {
		assert.True(t, isSuspicious(r), r.Method+" "+r.URL.String()[:min(40, len(r.URL.String()))])
	}

	assert.False(t, isSuspicious(httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)))
	assert.False(t, isSuspicious(httptest.NewRequest(http.MethodPost, "/api/investments/accounts", nil)))
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2)
	defer rl.stop()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))
	assert.Equal(t, 2, rl.activeClients())

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("a"))

	now = now.Add(11 * time.Minute)
	rl.cleanupStaleEntries()
	assert.Equal(t, 0, rl.activeClients())

	unlimited := newRateLimiter(0)
	defer unlimited.stop()
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.allow("c"))
	}
}
