package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolegate/internal/models"
)

var testSecret = strings.Repeat("k", 32)

func newTestSessions(t *testing.T) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(t.TempDir(), testSecret, SessionOptions{MaxAge: 3600})
	require.NoError(t, err)
	return sm
}

// carry copies the cookies set on rec onto a new request.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionSetUser(t *testing.T) {
	sm := newTestSessions(t)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.SetUser(rec, httptest.NewRequest(http.MethodPost, "/login", nil), 42, models.RoleEmployee))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := carry(rec)
	id, ok := sm.GetUserID(req)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, models.RoleEmployee, sm.GetRole(req))
}

func TestSessionSetUserRotatesID(t *testing.T) {
	sm := newTestSessions(t)

	flash := httptest.NewRecorder()
	require.NoError(t, sm.AddFlash(flash, httptest.NewRequest(http.MethodPost, "/login", nil), "hello"))

	login := httptest.NewRecorder()
	require.NoError(t, sm.SetUser(login, carry(flash), 1, models.RoleUser))

	before := flash.Result().Cookies()[0].Value
	after := login.Result().Cookies()[0].Value
	assert.NotEqual(t, before, after)
}

func TestSessionAnonymous(t *testing.T) {
	sm := newTestSessions(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := sm.GetUserID(req)
	assert.False(t, ok)
	assert.Equal(t, models.Role(""), sm.GetRole(req))
}

func TestSessionClear(t *testing.T) {
	sm := newTestSessions(t)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.SetUser(rec, httptest.NewRequest(http.MethodPost, "/login", nil), 7, models.RoleAdmin))

	clearRec := httptest.NewRecorder()
	require.NoError(t, sm.Clear(clearRec, carry(rec)))

	cookies := clearRec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].MaxAge < 0, "cookie should be expired")

	// Replaying the cookie from before the logout no longer authenticates.
	replay := carry(rec)
	_, ok := sm.GetUserID(replay)
	assert.False(t, ok)
	assert.Empty(t, sm.GetRole(replay))
}

func TestSessionClearWithoutSession(t *testing.T) {
	sm := newTestSessions(t)
	rec := httptest.NewRecorder()
	assert.NoError(t, sm.Clear(rec, httptest.NewRequest(http.MethodGet, "/logout", nil)))
}

func TestSessionForeignCookie(t *testing.T) {
	sm := newTestSessions(t)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.SetUser(rec, httptest.NewRequest(http.MethodPost, "/login", nil), 1, models.RoleAdmin))

	other, err := NewSessionManager(t.TempDir(), strings.Repeat("x", 32), SessionOptions{MaxAge: 3600})
	require.NoError(t, err)
	req := carry(rec)

	_, ok := other.GetUserID(req)
	assert.False(t, ok)

	// Writes still succeed and replace the unusable cookie.
	assert.NoError(t, other.SetUser(httptest.NewRecorder(), req, 2, models.RoleUser))
}

func TestSessionFlashes(t *testing.T) {
	sm := newTestSessions(t)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.AddFlash(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "Invalid username or password"))

	popRec := httptest.NewRecorder()
	msgs := sm.Flashes(popRec, carry(rec))
	assert.Equal(t, []string{"Invalid username or password"}, msgs)

	assert.Empty(t, sm.Flashes(httptest.NewRecorder(), carry(popRec)))
}

func TestSessionSweep(t *testing.T) {
	sm := newTestSessions(t)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.SetUser(rec, httptest.NewRequest(http.MethodPost, "/login", nil), 3, models.RoleUser))

	files, err := filepath.Glob(filepath.Join(sm.dir, sessionFilePrefix+"*"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	removed, err := sm.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(files[0], old, old))

	removed, err = sm.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := sm.GetUserID(carry(rec))
	assert.False(t, ok)
}
