package auth

import (
	"net/http"
	"strings"
)

// Policy decides which requests require a bearer token.
type Policy struct {
	ExemptPaths       map[string]struct{}
	ExemptMethods     map[string]struct{}
	ProtectedPrefixes []string
}

// DefaultExemptPaths are served without a token.
var DefaultExemptPaths = []string{"/", "/healthz", "/metrics", "/openapi.yaml", "/api-docs"}

// DefaultProtectedPrefixes cover the station API.
var DefaultProtectedPrefixes = []string{"/stations", "/pumps", "/exports"}

// NewDefaultPolicy builds a policy with exemptions. Nil arguments select the
// defaults. OPTIONS is always exempt so CORS preflights pass.
func NewDefaultPolicy(exemptPaths []string, protectedPrefixes []string) Policy {
	if exemptPaths == nil {
		exemptPaths = DefaultExemptPaths
	}
	if protectedPrefixes == nil {
		protectedPrefixes = DefaultProtectedPrefixes
	}
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{
		ExemptPaths:       set,
		ExemptMethods:     map[string]struct{}{http.MethodOptions: {}},
		ProtectedPrefixes: protectedPrefixes,
	}
}

// IsExempt returns true when a request should skip auth.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptMethods[r.Method]; ok {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	return false
}

// RequiresToken reports whether the request targets a protected resource.
func (p Policy) RequiresToken(r *http.Request) bool {
	if p.IsExempt(r) {
		return false
	}
	path := r.URL.Path
	for _, prefix := range p.ProtectedPrefixes {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}
