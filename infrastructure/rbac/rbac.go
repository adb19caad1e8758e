package rbac

import (
	"strings"

	"stockmaster/infrastructure/cache"
	"stockmaster/models"
)

const (
	RoleAdmin    = models.RoleAdmin
	RoleOperator = models.RoleOperator
)

// Roles lists every role the registry knows about.
var Roles = []string{RoleAdmin, RoleOperator}

// ValidRole reports whether role is assignable to a user.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Rbac registers route permissions per role.
type Rbac struct {
	cache *cache.RbacRolesCache
}

func New(c *cache.RbacRolesCache) *Rbac {
	return &Rbac{cache: c}
}

// Add grants code (method + path pattern) to each listed role.
func (r *Rbac) Add(code, method, path string, roles ...string) {
	if r == nil || r.cache == nil {
		return
	}
	for _, role := range roles {
		r.cache.Add(role, cache.Resource{
			Role:             role,
			UserResourceCode: code,
			Method:           strings.ToUpper(method),
			Path:             path,
		})
	}
}

// Allowed reports whether any of roles may call method on urlPath.
func (r *Rbac) Allowed(roles []string, urlPath, method string) bool {
	if r == nil || r.cache == nil {
		return false
	}
	return ValidateResourceAccess(r.cache.GetRolesAndResources(roles), urlPath, method)
}

func ValidateResourceAccess(resources []cache.Resource, urlPath, method string) bool {
	method = strings.ToUpper(method)
	for _, res := range resources {
		if res.Method != method {
			continue
		}
		if matchPath(res.Path, urlPath) {
			return true
		}
	}
	return false
}

// matchPath treats "*" as exactly one path segment.
func matchPath(pattern, path string) bool {
	pattern = strings.Trim(pattern, "/")
	path = strings.Trim(path, "/")
	if pattern == path {
		return true
	}

	patternSeg := strings.Split(pattern, "/")
	pathSeg := strings.Split(path, "/")
	if len(patternSeg) != len(pathSeg) {
		return false
	}
	for i := range patternSeg {
		if patternSeg[i] == "*" {
			if pathSeg[i] == "" {
				return false
			}
			continue
		}
		if patternSeg[i] != pathSeg[i] {
			return false
		}
	}
	return true
}
