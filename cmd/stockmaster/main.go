package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"stockmaster/frontend/login"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/cache"
	"stockmaster/infrastructure/config"
	httpserver "stockmaster/infrastructure/http"
	"stockmaster/infrastructure/mail"
	"stockmaster/infrastructure/ratelimit"
	"stockmaster/infrastructure/rbac"
	"stockmaster/infrastructure/report"
	sessioncookie "stockmaster/infrastructure/session"
	"stockmaster/infrastructure/sqlite"
)

func main() {
	cfg := config.Load()
	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("stockmaster stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	db, err := sqlite.OpenDBWithOptions(cfg.SQLite.Path, sqlite.Options{MaxReadConns: cfg.SQLite.MaxReadConns})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlite.ApplyEmbeddedMigrations(ctx, db); err != nil {
		return err
	}
	if err := login.EnsureProtectedAdmin(ctx, db, cfg.Auth.SupremeAdminName, cfg.Auth.SupremeAdminEmail, cfg.Auth.AdminPassword); err != nil {
		return err
	}

	redisClient, err := ratelimit.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		slog.Info("REDIS_ADDR not set, auth rate limiting disabled")
	}

	sessionCache := cache.NewUserSessionCache()
	userCache := cache.NewUserCache()
	rbacCache := cache.NewRbacRolesCache()
	rbacSvc := rbac.New(rbacCache)
	auditSvc := audit.NewService(db)
	defer auditSvc.Close()

	server := httpserver.NewServer(cfg.Server.Addr, db, sessionCache, userCache, rbacSvc, rbacCache, auditSvc, httpserver.Options{
		Cookies:       sessioncookie.Cookies{TTL: cfg.Auth.SessionTTL, Secure: cfg.Server.SecureCookies},
		Limiter:       ratelimit.New(redisClient, cfg.Auth.RateLimitPerMinute),
		Mailer:        mail.LogMailer{Logger: logger},
		PublicBaseURL: cfg.Server.PublicBaseURL,
		ResetTTL:      cfg.Auth.ResetTokenTTL,
		Report:        report.Options{PriceBasis: cfg.Report.PriceBasis, Location: cfg.Report.Location},
	})
	if err := server.Start(); err != nil {
		return err
	}
	slog.Info("stockmaster listening",
		slog.String("addr", cfg.Server.Addr),
		slog.Int("routes", len(rbacCache.RouteNamesSorted())),
		slog.String("price_basis", cfg.Report.PriceBasis),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := server.Stop(); err != nil {
		slog.Error("graceful shutdown error", slog.Any("err", err))
	}
	return nil
}
