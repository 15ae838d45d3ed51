package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"rolegate/internal/testutil"
)

func TestLoginLimiter(t *testing.T) {
	limiter := NewLoginLimiter(0.001, 2, testutil.DiscardLogger())
	h := limiter.Middleware(okHandler)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:2"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:3"))

	// Other clients have their own budget.
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1"))
}

func TestLoginLimiterDisabled(t *testing.T) {
	limiter := NewLoginLimiter(0, 0, nil)
	assert.Nil(t, limiter)

	h := limiter.Middleware(okHandler)
	for i := 0; i < 50; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}
