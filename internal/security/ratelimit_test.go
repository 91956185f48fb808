package security

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterEnforcesWindow(t *testing.T) {
	rl := NewRateLimiter(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("client-a"), "request %d within limit", i)
	}
	assert.False(t, rl.Allow("client-a"), "fourth request rejected")

	// Other clients have their own budget.
	assert.True(t, rl.Allow("client-b"))

	// A fresh window resets the budget.
	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("client-a"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", GetClientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", GetClientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", GetClientIP(req))
}
