package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"stockmaster/frontend/login"
	"stockmaster/infrastructure/audit"
	"stockmaster/infrastructure/cache"
	"stockmaster/infrastructure/mail"
	"stockmaster/infrastructure/rbac"
	"stockmaster/infrastructure/report"
	"stockmaster/infrastructure/sqlite"
	"stockmaster/infrastructure/sqlite/sqlitetest"
	"stockmaster/models"
)

const (
	rootEmail    = "root@example.com"
	rootPassword = "Supreme#Admin2026"
	opEmail      = "op@example.com"
	opPassword   = "Operator#Floor26"
)

type integrationEnv struct {
	server *httptest.Server
	db     *sqlite.DB
	audit  *audit.Service
}

func setupIntegrationServer(t *testing.T) (*integrationEnv, *http.Client) {
	t.Helper()
	db := sqlitetest.Open(t)
	ctx := context.Background()

	if err := login.EnsureProtectedAdmin(ctx, db, "Root", rootEmail, rootPassword); err != nil {
		t.Fatalf("seed protected admin: %v", err)
	}
	op, err := login.UpsertAdmin(ctx, db, "Floor Op", opEmail, opPassword, false)
	if err != nil {
		t.Fatalf("seed operator: %v", err)
	}
	sqlitetest.Exec(t, db, `UPDATE users SET role = 'operator' WHERE id = ?`, op.ID)

	sessionCache := cache.NewUserSessionCache()
	userCache := cache.NewUserCache()
	rbacCache := cache.NewRbacRolesCache()
	rbacSvc := rbac.New(rbacCache)
	auditSvc := audit.NewService(db)

	s := NewServer("127.0.0.1:0", db, sessionCache, userCache, rbacSvc, rbacCache, auditSvc, Options{
		Mailer:        mail.LogMailer{},
		PublicBaseURL: "http://stock.local",
		Report:        report.Options{Location: time.UTC},
	})
	ts := httptest.NewServer(s.Handler())
	env := &integrationEnv{server: ts, db: db, audit: auditSvc}
	t.Cleanup(func() {
		env.server.Close()
		auditSvc.Close()
	})

	return env, newHTTPClient(t)
}

func newHTTPClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, client *http.Client, baseURL, path string, data url.Values) *http.Response {
	t.Helper()
	if data == nil {
		data = url.Values{}
	}
	if token := csrfToken(t, client, baseURL); token != "" {
		data.Set("_csrf", token)
	}
	resp, err := client.PostForm(baseURL+path, data)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

// doJSON sends body as JSON with the CSRF header taken from the jar.
func doJSON(t *testing.T, client *http.Client, method, baseURL, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, baseURL+path, r)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := csrfToken(t, client, baseURL); token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func postMultipartFile(t *testing.T, client *http.Client, baseURL, path, fieldName, fileName string, fileContents []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if token := csrfToken(t, client, baseURL); token != "" {
		if err := writer.WriteField("_csrf", token); err != nil {
			t.Fatalf("write csrf multipart field: %v", err)
		}
	}

	part, err := writer.CreateFormFile(fieldName, fileName)
	if err != nil {
		t.Fatalf("create multipart file field: %v", err)
	}
	if _, err := part.Write(fileContents); err != nil {
		t.Fatalf("write multipart file content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, &body)
	if err != nil {
		t.Fatalf("build multipart request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST multipart %s failed: %v", path, err)
	}
	return resp
}

func get(t *testing.T, client *http.Client, baseURL, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

func csrfToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == "X-CSRF-Token" {
			return c.Value
		}
	}
	return ""
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, b)
	}
}

func loginAs(t *testing.T, client *http.Client, baseURL, email, password string) {
	t.Helper()

	resp := get(t, client, baseURL, "/login")
	expectStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()

	resp = postForm(t, client, baseURL, "/login", url.Values{
		"email":    {email},
		"password": {password},
	})
	expectStatus(t, resp, http.StatusSeeOther)
	if loc := resp.Header.Get("Location"); loc != "/dashboard" {
		t.Fatalf("unexpected login redirect: %s", loc)
	}
	_ = resp.Body.Close()
}

func countRows(t *testing.T, db *sqlite.DB, table string) int64 {
	t.Helper()
	var count int64
	if err := db.R.NewRaw(`SELECT COUNT(*) FROM ` + table).Scan(context.Background(), &count); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

func TestCSRFPostWithoutTokenRejected(t *testing.T) {
	env, client := setupIntegrationServer(t)

	// No GET first: no CSRF token available in cookie or form.
	resp, err := client.PostForm(env.server.URL+"/login", url.Values{
		"email":    {rootEmail},
		"password": {rootPassword},
	})
	if err != nil {
		t.Fatalf("post login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for missing csrf, got %d", resp.StatusCode)
	}
}

func TestCSRFPostWithTokenAccepted(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, rootEmail, rootPassword)
}

func TestCSRFPostWithoutToken_SameOriginRefererAccepted(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, rootEmail, rootPassword)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/categories", strings.NewReader(`{"name":"Tools"}`))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", env.server.URL+"/dashboard")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post category without csrf token: %v", err)
	}
	expectStatus(t, resp, http.StatusCreated)
	_ = resp.Body.Close()
}

func TestCSRFPostWithoutToken_CrossOriginRejected(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, rootEmail, rootPassword)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/categories", strings.NewReader(`{"name":"Tools"}`))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Referer", "https://evil.example/attack")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("post cross-origin request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for cross-origin missing csrf token, got %d", resp.StatusCode)
	}
	if n := countRows(t, env.db, "categories"); n != 0 {
		t.Fatalf("expected no category created, got %d", n)
	}
}

func TestUnauthenticatedAPIGets401AndPagesRedirect(t *testing.T) {
	env, client := setupIntegrationServer(t)

	resp := get(t, client, env.server.URL, "/api/products")
	expectStatus(t, resp, http.StatusUnauthorized)
	var body map[string]any
	decode(t, resp, &body)
	if body["error"] != "authentication required" {
		t.Fatalf("unexpected body: %v", body)
	}

	resp = get(t, client, env.server.URL, "/dashboard")
	expectStatus(t, resp, http.StatusSeeOther)
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %s", loc)
	}
	_ = resp.Body.Close()

	resp = get(t, client, env.server.URL, "/health")
	expectStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()
}

func TestOperatorRoleMatrix(t *testing.T) {
	env, client := setupIntegrationServer(t)
	base := env.server.URL
	loginAs(t, client, base, opEmail, opPassword)

	resp := doJSON(t, client, http.MethodPost, base, "/api/products", map[string]any{
		"sku": "OP-1", "name": "Tape", "quantity": 4, "cost_price": "1.50", "price": "3",
	})
	expectStatus(t, resp, http.StatusCreated)
	var p models.Product
	decode(t, resp, &p)

	resp = doJSON(t, client, http.MethodPost, base, "/api/movements", map[string]any{
		"product_id": p.ID, "kind": models.MovementStockOut, "quantity": 1,
	})
	expectStatus(t, resp, http.StatusCreated)
	_ = resp.Body.Close()

	for _, c := range []struct {
		method, path string
		body         any
	}{
		{http.MethodDelete, "/api/products/1", nil},
		{http.MethodGet, "/api/users", nil},
		{http.MethodPost, "/api/categories", map[string]string{"name": "X"}},
		{http.MethodGet, "/api/system-logs", nil},
		{http.MethodDelete, "/api/reset-products", map[string]string{"confirmation": "RESET"}},
	} {
		resp := doJSON(t, client, c.method, base, c.path, c.body)
		expectStatus(t, resp, http.StatusForbidden)
		_ = resp.Body.Close()
	}

	resp = doJSON(t, client, http.MethodPost, base, "/api/system-logs", map[string]any{"action": "client.export_failed"})
	expectStatus(t, resp, http.StatusCreated)
	_ = resp.Body.Close()

	resp = get(t, client, base, "/api/auth/me")
	expectStatus(t, resp, http.StatusOK)
	var me struct {
		User        models.User `json:"user"`
		Permissions []string    `json:"permissions"`
	}
	decode(t, resp, &me)
	if me.User.Role != models.RoleOperator {
		t.Fatalf("unexpected me: %+v", me)
	}
	for _, code := range me.Permissions {
		if code == "USERS_LIST" || code == "SYSTEM_RESET" {
			t.Fatalf("operator must not hold %s", code)
		}
	}
}

func TestProtectedAdminResetAndLogsFlow(t *testing.T) {
	env, client := setupIntegrationServer(t)
	base := env.server.URL
	loginAs(t, client, base, rootEmail, rootPassword)

	resp := doJSON(t, client, http.MethodPost, base, "/api/products", map[string]any{"sku": "R-1", "name": "Rope", "quantity": 2})
	expectStatus(t, resp, http.StatusCreated)
	_ = resp.Body.Close()

	resp = doJSON(t, client, http.MethodDelete, base, "/api/reset-products", map[string]string{"confirmation": "nope"})
	expectStatus(t, resp, http.StatusBadRequest)
	_ = resp.Body.Close()

	resp = doJSON(t, client, http.MethodDelete, base, "/api/reset-products", map[string]string{"confirmation": "RESET"})
	expectStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()
	if n := countRows(t, env.db, "products"); n != 0 {
		t.Fatalf("expected products wiped, %d left", n)
	}

	env.audit.Flush()
	resp = get(t, client, base, "/api/system-logs?level=critical")
	expectStatus(t, resp, http.StatusOK)
	var logs []models.SystemLog
	decode(t, resp, &logs)
	if len(logs) != 1 || logs[0].Action != audit.ActionProductsReset {
		t.Fatalf("expected one critical reset entry, got %+v", logs)
	}
}

func TestImportThenExportRoundTrip(t *testing.T) {
	env, client := setupIntegrationServer(t)
	base := env.server.URL
	loginAs(t, client, base, rootEmail, rootPassword)

	csv := "sku,name,category,quantity,cost_price,price\nA-1,Alpha,Tools,3,1.25,2.50\nB-2,Beta,,0,0,0\n"
	resp := postMultipartFile(t, client, base, "/api/products/import", "file", "stock.csv", []byte(csv))
	expectStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()

	resp = get(t, client, base, "/api/products/export.csv")
	expectStatus(t, resp, http.StatusOK)
	out, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.HasPrefix(string(out), "sku,barcode,name,category,quantity,min_stock,cost_price,price,location") {
		t.Fatalf("unexpected export header: %s", out)
	}
	if !strings.Contains(string(out), "A-1,,Alpha,Tools,3,") {
		t.Fatalf("imported row missing from export: %s", out)
	}
}

func TestJSONLoginLogoutRevokesSession(t *testing.T) {
	env, client := setupIntegrationServer(t)
	base := env.server.URL

	resp := get(t, client, base, "/health")
	_ = resp.Body.Close()
	resp = doJSON(t, client, http.MethodPost, base, "/api/auth/login", map[string]string{"email": opEmail, "password": "wrong"})
	expectStatus(t, resp, http.StatusUnauthorized)
	_ = resp.Body.Close()

	resp = doJSON(t, client, http.MethodPost, base, "/api/auth/login", map[string]string{"email": opEmail, "password": opPassword})
	expectStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()

	resp = get(t, client, base, "/api/products")
	expectStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()

	resp = doJSON(t, client, http.MethodPost, base, "/api/auth/log-exit", nil)
	expectStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()

	resp = get(t, client, base, "/api/products")
	expectStatus(t, resp, http.StatusUnauthorized)
	_ = resp.Body.Close()

	env.audit.Flush()
	var n int64
	if err := env.db.R.NewRaw(`SELECT COUNT(*) FROM system_logs WHERE action = ?`, audit.ActionUserLogout).Scan(context.Background(), &n); err != nil {
		t.Fatalf("count logout logs: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one logout entry, got %d", n)
	}
}
