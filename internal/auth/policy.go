package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth/RBAC.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves required role for the request.
// Residents read charges and submit payments, accountants read the
// financial surfaces, managers mutate.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path
	method := r.Method

	switch {
	case path == "/api/v1/charges":
		if method == http.MethodPost {
			return RoleManager, true
		}
		return RoleResident, true
	case strings.HasPrefix(path, "/api/v1/charges/"):
		if method == http.MethodGet {
			if strings.Contains(path, "/export.") {
				return RoleAccountant, true
			}
			return RoleResident, true
		}
		return RoleManager, true
	case path == "/api/v1/payments":
		if method == http.MethodPost {
			return RoleResident, true
		}
		return RoleAccountant, true
	case strings.HasPrefix(path, "/api/v1/payments/"):
		if method == http.MethodGet {
			return RoleAccountant, true
		}
		return RoleManager, true
	case path == "/api/v1/collection":
		return RoleAccountant, true
	case path == "/api/v1/debts/aging":
		return RoleAccountant, true
	case strings.HasPrefix(path, "/api/v1/reports"):
		return RoleAccountant, true
	case path == "/api/v1/expenses":
		if method == http.MethodGet {
			return RoleAccountant, true
		}
		return RoleManager, true
	case path == "/api/v1/units":
		if method == http.MethodGet {
			return RoleResident, true
		}
		return RoleManager, true
	case strings.HasPrefix(path, "/api/v1/units/"):
		if method == http.MethodGet {
			return RoleResident, true
		}
		return RoleManager, true
	case path == "/api/v1/exports/payments.csv":
		return RoleAccountant, true
	}

	if strings.HasPrefix(path, "/api/") {
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return RoleResident, true
		}
		return RoleManager, true
	}
	return "", false
}
