package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPAllowlist(t *testing.T) {
	list, err := NewIPAllowlist([]string{"127.0.0.1", " ::1 ", "10.1.0.0/16", ""})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Len())

	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"::ffff:127.0.0.1", true},
		{"10.1.200.3", true},
		{"10.2.0.1", false},
		{"10.0.0.5", false},
		{"127.0.0.2", false},
		{"", false},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, list.Contains(tt.ip))
		})
	}
}

func TestIPAllowlistRejectsMalformed(t *testing.T) {
	for _, entry := range []string{"localhost", "10.0.0.0/33", "300.1.1.1"} {
		_, err := NewIPAllowlist([]string{entry})
		assert.Error(t, err, entry)
	}
}

func TestEmptyAllowlistDeniesAll(t *testing.T) {
	list, err := NewIPAllowlist(nil)
	require.NoError(t, err)
	assert.False(t, list.Contains("127.0.0.1"))

	var nilList *IPAllowlist
	assert.False(t, nilList.Contains("127.0.0.1"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientIP(req))

	// chi's RealIP stores the bare forwarded address.
	req.RemoteAddr = "198.51.100.7"
	assert.Equal(t, "198.51.100.7", ClientIP(req))
}
