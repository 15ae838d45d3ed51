package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"rolegate/internal/audit"
	"rolegate/internal/database"
	"rolegate/internal/models"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password. Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const userColumns = "id, username, password_hash, role, last_login_ip, last_login_time, created_at"

type UserService struct {
	db    *database.DB
	audit *audit.Logger
	cost  int
	now   func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewUserService(db *database.DB, auditLog *audit.Logger) *UserService {
	return &UserService{
		db:    db,
		audit: auditLog,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}
}

// SetHashCost overrides the bcrypt cost used for new hashes.
func (s *UserService) SetHashCost(cost int) {
	s.cost = cost
}

func (s *UserService) Create(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)",
		username, string(hash), string(role),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Authenticate checks password against the stored hash for username.
// It is read-only and returns ErrInvalidCredentials for unknown users too.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		// Burn the same bcrypt work so response time does not reveal whether
		// the username exists.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login verifies the credentials and records the attempt. On success the
// last-login fields and the LOGIN_SUCCESS entry are committed together. On
// failure a LOGIN_FAILED entry is committed and ErrInvalidCredentials is
// returned. Any other error means nothing was written.
func (s *UserService) Login(ctx context.Context, username, password, ip string) (*models.User, error) {
	user, err := s.Authenticate(ctx, username, password)
	if errors.Is(err, ErrInvalidCredentials) {
		if err := s.audit.Record(ctx, username, models.EventLoginFailed, ip); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET last_login_ip = ?, last_login_time = ? WHERE id = ?",
			ip, now, user.ID,
		); err != nil {
			return fmt.Errorf("failed to update last login: %w", err)
		}
		return s.audit.RecordTx(ctx, tx, user.Username, models.EventLoginSuccess, ip)
	})
	if err != nil {
		return nil, err
	}

	user.LastLoginIP = ip
	user.LastLoginTime = &now
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

func (s *UserService) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		user      models.User
		role      string
		lastIP    sql.NullString
		lastLogin sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &role, &lastIP, &lastLogin, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Role, err = models.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", user.ID, err)
	}
	user.LastLoginIP = lastIP.String
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		user.LastLoginTime = &t
	}
	return &user, nil
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// EnsureDefaultAdmin creates an Admin account when the store is empty.
func (s *UserService) EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	count, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := s.Create(ctx, username, password, models.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("rolegate-dummy-password"), s.cost)
	})
	return s.dummyHash
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
