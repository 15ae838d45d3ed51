package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rolegate/internal/audit"
	"rolegate/internal/auth"
	"rolegate/internal/config"
	"rolegate/internal/database"
	"rolegate/internal/models"
	"rolegate/internal/render"
	"rolegate/internal/server"
	"rolegate/web"

	"github.com/joho/godotenv"
)

const sessionSweepInterval = time.Hour

func main() {
	createUser := flag.Bool("create-user", false, "create a user and exit")
	username := flag.String("username", "", "username for -create-user")
	password := flag.String("password", "", "password for -create-user")
	role := flag.String("role", string(models.RoleUser), "role for -create-user (Admin, Employee, User)")
	flag.Parse()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.EnsureDirs(); err != nil {
		logger.Error("failed to prepare directories", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := database.New(cfg.DataDir)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *createUser {
		if err := runCreateUser(db, *username, *password, *role); err != nil {
			logger.Error("failed to create user", "error", err)
			db.Close()
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, db, logger); err != nil {
		logger.Error("server error", "error", err)
		db.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, db *database.DB, logger *slog.Logger) error {
	accessLogger, closeAccessLog, err := openAccessLog(cfg.AccessLogPath, logger)
	if err != nil {
		return err
	}
	defer closeAccessLog()

	templates, err := render.Load(web.Templates(), cfg.Location())
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	srv, err := server.New(server.Options{
		Config:       cfg,
		DB:           db,
		Templates:    templates,
		Logger:       logger,
		AccessLogger: accessLogger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ensure default admin user exists
	created, err := srv.Users.EnsureDefaultAdmin(ctx, cfg.DefaultAdmin, cfg.DefaultPassword)
	if err != nil {
		logger.Warn("failed to create default admin", "error", err)
	} else if created {
		logger.Info("created default admin", "username", cfg.DefaultAdmin)
	}

	go sweepSessions(ctx, srv.Sessions, time.Duration(cfg.SessionMaxAge)*time.Second, logger)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting rolegate", "addr", cfg.Addr(), "admin_allowed_ips", cfg.AdminAllowedIPs)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runCreateUser(db *database.DB, username, password, roleName string) error {
	if username == "" || password == "" {
		return errors.New("-username and -password are required")
	}
	role, err := models.ParseRole(roleName)
	if err != nil {
		return fmt.Errorf("%w: %q", err, roleName)
	}

	users := auth.NewUserService(db, audit.NewLogger(db))
	user, err := users.Create(context.Background(), username, password, role)
	if err != nil {
		return err
	}
	slog.Info("created user", "id", user.ID, "username", user.Username, "role", user.Role)
	return nil
}

// openAccessLog returns a logger writing to path, or the main logger when
// path is empty.
func openAccessLog(path string, fallback *slog.Logger) (*slog.Logger, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open access log: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, nil)), func() { f.Close() }, nil
}

func sweepSessions(ctx context.Context, sessions *auth.SessionManager, maxAge time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		if n, err := sessions.Sweep(maxAge); err != nil {
			logger.Warn("session sweep failed", "error", err)
		} else if n > 0 {
			logger.Debug("removed expired sessions", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
