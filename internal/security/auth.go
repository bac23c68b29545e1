package security

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerAuth guards the HTTP surface with a single shared token. Paths in
// Exempt stay open: the health probe and the OAuth redirect target must be
// reachable without a bearer token.
type BearerAuth struct {
	Enabled bool
	Token   string
	Exempt  []string
}

func (a BearerAuth) Authorize(r *http.Request) bool {
	if !a.Enabled {
		return true
	}
	for _, path := range a.Exempt {
		if r.URL.Path == path {
			return true
		}
	}
	head := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(head, prefix) {
		return false
	}
	candidate := strings.TrimSpace(strings.TrimPrefix(head, prefix))
	if len(candidate) != len(a.Token) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(a.Token)) == 1
}
