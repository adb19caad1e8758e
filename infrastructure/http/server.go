package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"stockmaster/frontend/login"
	sessioncontext "stockmaster/frontend/shared/context"
	"stockmaster/frontend/shared/respond"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/cache"
	"stockmaster/infrastructure/mail"
	"stockmaster/infrastructure/ratelimit"
	"stockmaster/infrastructure/rbac"
	"stockmaster/infrastructure/report"
	sessioncookie "stockmaster/infrastructure/session"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var ShutdownTimeout = 2 * time.Second

// Options carries the settings that are not shared state.
type Options struct {
	Cookies       sessioncookie.Cookies
	Limiter       *ratelimit.Limiter
	Mailer        mail.Mailer
	PublicBaseURL string
	ResetTTL      time.Duration
	Report        report.Options
}

// Server bundles dependencies and route wiring.
type Server struct {
	Addr   string
	ln     net.Listener
	server *http.Server
	router *chi.Mux

	DB           *sqlite.DB
	SessionCache *cache.UserSessionCache
	UserCache    *cache.UserCache
	RbacCache    *cache.RbacRolesCache
	Rbac         *rbac.Rbac
	Audit        *audit.Service
	Options      Options
}

// NewServer creates a new http server.
func NewServer(addr string, db *sqlite.DB, sessionCache *cache.UserSessionCache, userCache *cache.UserCache, r *rbac.Rbac, rbacCache *cache.RbacRolesCache, auditSvc *audit.Service, opts Options) *Server {
	s := &Server{
		Addr:         addr,
		router:       chi.NewRouter(),
		DB:           db,
		SessionCache: sessionCache,
		UserCache:    userCache,
		RbacCache:    rbacCache,
		Rbac:         r,
		Audit:        auditSvc,
		Options:      opts,
		server: &http.Server{
			MaxHeaderBytes:    1 << 20,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	// Secure headers first.
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Compress(5))
	s.router.Use(s.CSRFMiddleware)

	// Check auth status but don't require it.
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sessionCookie, err := r.Cookie(sessioncookie.CookieName)
		if err != nil || sessionCookie.Value == "" {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if _, ok := s.resolveSession(r.Context(), sessionCookie.Value); !ok {
			http.SetCookie(w, s.Options.Cookies.Clear())
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.RegisterLoginRoutes()

	s.router.Group(func(r chi.Router) {
		r.Use(s.AuthenticateMiddleware)
		s.RegisterSessionRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(s.AuthorizeMiddleware)
			s.RegisterFrontendRoutes(r)
			s.RegisterAdminRoutes(r)
		})
	})

	s.server.Handler = s.router
	return s
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loginDeps() login.Deps {
	return login.Deps{
		DB:           s.DB,
		SessionCache: s.SessionCache,
		UserCache:    s.UserCache,
		RbacCache:    s.RbacCache,
		Cookies:      s.Options.Cookies,
		Audit:        s.Audit,
		Mailer:       s.Options.Mailer,
		BaseURL:      s.Options.PublicBaseURL,
		ResetTTL:     s.Options.ResetTTL,
	}
}

// AuthenticateMiddleware loads the session. API requests get a JSON 401,
// pages are redirected to the login screen.
func (s *Server) AuthenticateMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionCookie, err := r.Cookie(sessioncookie.CookieName)
		if err != nil || sessionCookie.Value == "" {
			s.unauthenticated(w, r)
			return
		}

		sessionToken := sessionCookie.Value
		session, ok := s.resolveSession(r.Context(), sessionToken)
		if !ok {
			slog.Warn("session not found", slog.String("method", r.Method), slog.String("path", r.URL.Path))
			http.SetCookie(w, s.Options.Cookies.Clear())
			s.unauthenticated(w, r)
			return
		}

		if session.Expired() {
			http.SetCookie(w, s.Options.Cookies.Clear())
			s.SessionCache.DeleteSessionBySessionToken(sessionToken)
			if err := login.DeleteSessionByToken(r.Context(), s.DB, sessionToken); err != nil {
				slog.Error("cannot delete session from DB", slog.Any("err", err))
			}
			s.unauthenticated(w, r)
			return
		}

		ctx := sessioncontext.NewContextWithSession(r.Context(), session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthorizeMiddleware applies the route registry to the session roles.
func (s *Server) AuthorizeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessioncontext.GetSessionFromContext(r.Context())
		if !ok {
			s.unauthenticated(w, r)
			return
		}
		if !s.Rbac.Allowed(session.UserRoles, r.URL.Path, r.Method) {
			slog.Warn("rbac denied",
				slog.Int64("user_id", session.UserID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			if isAPI(r) {
				respond.JSONError(w, http.StatusForbidden, "you do not have permission for this action", nil)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) unauthenticated(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		respond.JSONError(w, http.StatusUnauthorized, "authentication required", nil)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func (s *Server) resolveSession(ctx context.Context, token string) (session models.Session, ok bool) {
	if cached, found := s.SessionCache.FindSessionBySessionToken(token); found {
		if cached.Expired() {
			s.SessionCache.DeleteSessionBySessionToken(token)
		} else {
			return cached, true
		}
	}

	dbSession, err := login.LoadSessionByToken(ctx, s.DB, token)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("load session from db failed", slog.Any("err", err))
		}
		return session, false
	}

	s.SessionCache.AddSession(dbSession)
	s.UserCache.Add(dbSession.User)
	return dbSession, true
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	var err error
	if s.ln, err = net.Listen("tcp", s.Addr); err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.Any("err", err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.ln == nil {
		return fmt.Errorf("HTTP server has not been started or is already stopped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	s.ln = nil
	return nil
}
