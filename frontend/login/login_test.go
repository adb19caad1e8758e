package login

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"stockmaster/infrastructure/apperr"
	"stockmaster/infrastructure/argon"
	"stockmaster/infrastructure/cache"
	"stockmaster/infrastructure/mail"
	sessioncookie "stockmaster/infrastructure/session"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/infrastructure/sqlite/sqlitetest"
	"stockmaster/models"
)

const testPassword = "Warehouse#2026"

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func seedUser(t *testing.T, db *sqlite.DB, email string, active bool) {
	t.Helper()
	hash, err := argon.CreateHash(testPassword, argon.DefaultParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	sqlitetest.Exec(t, db, `INSERT INTO users (name, email, password_hash, role, active, protected) VALUES ('Ana', ?, ?, 'operator', ?, 0)`, email, hash, active)
}

func newDeps(db *sqlite.DB, mailer mail.Mailer) Deps {
	return Deps{
		DB:           db,
		SessionCache: cache.NewUserSessionCache(),
		UserCache:    cache.NewUserCache(),
		RbacCache:    cache.NewRbacRolesCache(),
		Mailer:       mailer,
		BaseURL:      "http://stock.local/",
	}
}

func TestAuthenticateUser_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	db := sqlitetest.Open(t)
	seedUser(t, db, "ana@example.com", true)
	ctx := context.Background()

	if _, err := authenticateUser(ctx, db, "nobody@example.com", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := authenticateUser(ctx, db, "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	u, err := authenticateUser(ctx, db, "ANA@example.com", testPassword)
	if err != nil {
		t.Fatalf("expected login to succeed: %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestAuthenticateUser_InactiveRejected(t *testing.T) {
	db := sqlitetest.Open(t)
	seedUser(t, db, "ana@example.com", false)

	_, err := authenticateUser(context.Background(), db, "ana@example.com", testPassword)
	if !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("expected ErrInactiveUser, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden kind, got %v", apperr.KindOf(err))
	}
}

func TestLoginCommandHandler_IssuesCookieAndPersistsSession(t *testing.T) {
	db := sqlitetest.Open(t)
	seedUser(t, db, "ana@example.com", true)
	d := newDeps(db, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ana@example.com","password":"`+testPassword+`"}`))
	rec := httptest.NewRecorder()
	LoginCommandHandler(d).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var token string
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessioncookie.CookieName {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatalf("expected session cookie")
	}
	if _, ok := d.SessionCache.FindSessionBySessionToken(token); !ok {
		t.Fatalf("expected session in cache")
	}
	session, err := LoadSessionByToken(context.Background(), db, token)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.User.Email != "ana@example.com" || len(session.UserRoles) != 1 {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestLoginCommandHandler_BadCredentials401(t *testing.T) {
	db := sqlitetest.Open(t)
	seedUser(t, db, "ana@example.com", true)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ana@example.com","password":"nope"}`))
	rec := httptest.NewRecorder()
	LoginCommandHandler(newDeps(db, nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("expected no cookie on failed login")
	}
}

func TestCreateLoginHandler_FormRedirects(t *testing.T) {
	db := sqlitetest.Open(t)
	seedUser(t, db, "ana@example.com", true)
	d := newDeps(db, nil)

	form := "email=ana%40example.com&password=" + strings.ReplaceAll(testPassword, "#", "%23")
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	CreateLoginHandler(d).ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email=ana%40example.com&password=bad"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	CreateLoginHandler(d).ServeHTTP(rec, req)
	if !strings.HasPrefix(rec.Header().Get("Location"), "/login?error=") {
		t.Fatalf("expected redirect back to login, got %q", rec.Header().Get("Location"))
	}
}

func TestLoadSessionByToken_ExpiredRemoved(t *testing.T) {
	db := sqlitetest.Open(t)
	seedUser(t, db, "ana@example.com", true)
	sqlitetest.Exec(t, db, `INSERT INTO sessions (id, user_id, expires_at) VALUES ('old', 1, ?)`, time.Now().Add(-time.Hour).UTC())

	if _, err := LoadSessionByToken(context.Background(), db, "old"); err == nil {
		t.Fatalf("expected expired session to be rejected")
	}
	n, err := db.R.NewSelect().Model((*models.Session)(nil)).Count(context.Background())
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected expired session deleted, %d left", n)
	}
}

func TestPasswordReset_FlowClearsTokenAndSessions(t *testing.T) {
	db := sqlitetest.Open(t)
	seedUser(t, db, "ana@example.com", true)
	sqlitetest.Exec(t, db, `INSERT INTO sessions (id, user_id, expires_at) VALUES ('live', 1, ?)`, time.Now().Add(time.Hour).UTC())
	mailer := &captureMailer{}
	d := newDeps(db, mailer)

	rec := httptest.NewRecorder()
	ForgotPasswordCommandHandler(d).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password", strings.NewReader(`{"email":"ana@example.com"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(mailer.sent))
	}
	body := mailer.sent[0].Body
	i := strings.Index(body, "token=")
	if i < 0 || !strings.Contains(body, "http://stock.local/reset-password") {
		t.Fatalf("reset link missing: %s", body)
	}
	token := strings.Fields(body[i+len("token="):])[0]

	var stored models.User
	if err := db.R.NewSelect().Model(&stored).Where("id = 1").Scan(context.Background()); err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.ResetTokenHash == nil || *stored.ResetTokenHash == token {
		t.Fatalf("expected hashed token to be stored")
	}

	newPassword := "Inventory$2027x"
	if _, err := ResetPassword(context.Background(), db, token, newPassword, time.Now()); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if _, err := authenticateUser(context.Background(), db, "ana@example.com", newPassword); err != nil {
		t.Fatalf("expected new password to work: %v", err)
	}
	if _, err := ResetPassword(context.Background(), db, token, newPassword, time.Now()); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected token to be single use, got %v", err)
	}
	n, _ := db.R.NewSelect().Model((*models.Session)(nil)).Count(context.Background())
	if n != 0 {
		t.Fatalf("expected sessions dropped, %d left", n)
	}
}

func TestPasswordReset_ExpiredTokenAndUnknownEmail(t *testing.T) {
	db := sqlitetest.Open(t)
	seedUser(t, db, "ana@example.com", true)
	ctx := context.Background()

	_, _, ok, err := IssueResetToken(ctx, db, "ghost@example.com", time.Now(), 0)
	if err != nil || ok {
		t.Fatalf("expected silent no-op for unknown email, ok=%v err=%v", ok, err)
	}

	issued := time.Now().Add(-2 * time.Hour)
	_, token, ok, err := IssueResetToken(ctx, db, "ana@example.com", issued, time.Hour)
	if err != nil || !ok {
		t.Fatalf("issue token: ok=%v err=%v", ok, err)
	}
	if _, err := ResetPassword(ctx, db, token, "Inventory$2027x", time.Now()); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}
}

func TestMeQueryHandler_ProtectedAdminGetsResetPermission(t *testing.T) {
	d := newDeps(nil, nil)
	d.RbacCache.Add(models.RoleAdmin, cache.Resource{UserResourceCode: "USERS_LIST", Path: "/api/users", Method: http.MethodGet, Role: models.RoleAdmin})
	user := models.User{ID: 1, Name: "Root", Role: models.RoleAdmin, Protected: true}

	perms := d.permissions(user, nil)
	if len(perms) != 2 || perms[1] != "SYSTEM_RESET" {
		t.Fatalf("unexpected permissions: %v", perms)
	}
	if got := d.permissions(models.User{Role: models.RoleOperator}, nil); len(got) != 0 {
		t.Fatalf("operator should have no permissions here, got %v", got)
	}
}
