package auth

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rolegate/internal/models"

	"github.com/gorilla/sessions"
)

const (
	SessionName   = "rolegate-session"
	SessionUserID = "user_id"
	SessionRole   = "role"

	// sessionFilePrefix is the file name prefix used by sessions.FilesystemStore.
	sessionFilePrefix = "session_"
)

type SessionOptions struct {
	MaxAge int
	Secure bool
}

// SessionManager keeps session state on disk; the cookie only carries the
// signed session ID, so clearing a session revokes the cookie too.
type SessionManager struct {
	store *sessions.FilesystemStore
	dir   string
}

func NewSessionManager(dir, secret string, opts SessionOptions) (*SessionManager, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}

	store := sessions.NewFilesystemStore(dir, []byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(opts.MaxAge)
	return &SessionManager{store: store, dir: dir}, nil
}

// Get returns the request's session. A cookie that fails to decode, or whose
// session no longer exists, yields a fresh empty session and an error.
func (m *SessionManager) Get(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, SessionName)
}

// fresh returns the session for writing, discarding unusable cookies.
func (m *SessionManager) fresh(r *http.Request) (*sessions.Session, error) {
	session, err := m.Get(r)
	if session == nil {
		return nil, err
	}
	return session, nil
}

// SetUser binds a new session to userID and caches the user's role. The
// session ID is always regenerated.
func (m *SessionManager) SetUser(w http.ResponseWriter, r *http.Request, userID int64, role models.Role) error {
	session, err := m.fresh(r)
	if err != nil {
		return err
	}

	session.ID = ""
	session.Values = map[interface{}]interface{}{
		SessionUserID: userID,
		SessionRole:   string(role),
	}
	session.Options.MaxAge = m.store.Options.MaxAge

	return session.Save(r, w)
}

func (m *SessionManager) GetUserID(r *http.Request) (int64, bool) {
	session, err := m.Get(r)
	if err != nil {
		return 0, false
	}

	userID, ok := session.Values[SessionUserID].(int64)
	return userID, ok && userID > 0
}

// GetRole returns the role cached at login, or "" when none is present.
func (m *SessionManager) GetRole(r *http.Request) models.Role {
	session, err := m.Get(r)
	if err != nil {
		return ""
	}

	role, _ := session.Values[SessionRole].(string)
	return models.Role(role)
}

// Clear deletes the session and expires the cookie. Safe to call without a
// session.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	session, err := m.fresh(r)
	if err != nil {
		return err
	}

	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1

	return session.Save(r, w)
}

func (m *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, message string) error {
	session, err := m.fresh(r)
	if err != nil {
		return err
	}

	session.AddFlash(message)
	return session.Save(r, w)
}

// Flashes pops pending flash messages.
func (m *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) []string {
	session, err := m.Get(r)
	if err != nil {
		return nil
	}

	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}

	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			messages = append(messages, s)
		}
	}
	_ = session.Save(r, w)
	return messages
}

// Sweep removes session files not written for longer than maxAge and
// returns how many were removed.
func (m *SessionManager) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read session dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), sessionFilePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(m.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
