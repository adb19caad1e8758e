package rbac

import (
	"testing"

	"stockmaster/infrastructure/cache"
)

func TestMatchPathWildcardSegments(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		ok      bool
	}{
		{pattern: "/api/products/*", path: "/api/products/12", ok: true},
		{pattern: "/api/products/*/label.pdf", path: "/api/products/3/label.pdf", ok: true},
		{pattern: "/api/products", path: "/api/products/", ok: true},
		{pattern: "/api/products/*", path: "/api/products/12/label.pdf", ok: false},
		{pattern: "/api/users", path: "/api/users/1", ok: false},
		{pattern: "/api/products/*", path: "/api/products", ok: false},
	}

	for _, tc := range cases {
		if got := matchPath(tc.pattern, tc.path); got != tc.ok {
			t.Fatalf("pattern=%s path=%s expected=%v got=%v", tc.pattern, tc.path, tc.ok, got)
		}
	}
}

func TestAllowedPerRole(t *testing.T) {
	r := New(cache.NewRbacRolesCache())
	r.Add("PRODUCTS_LIST", "get", "/api/products", RoleAdmin, RoleOperator)
	r.Add("USERS_LIST", "GET", "/api/users", RoleAdmin)

	if !r.Allowed([]string{RoleOperator}, "/api/products", "GET") {
		t.Fatalf("operator should list products")
	}
	if r.Allowed([]string{RoleOperator}, "/api/users", "GET") {
		t.Fatalf("operator must not list users")
	}
	if !r.Allowed([]string{RoleAdmin}, "/api/users", "GET") {
		t.Fatalf("admin should list users")
	}
	if r.Allowed([]string{RoleAdmin}, "/api/users", "DELETE") {
		t.Fatalf("unregistered method must be denied")
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole("operator") || ValidRole("scanner") {
		t.Fatalf("unexpected role validation")
	}
}
