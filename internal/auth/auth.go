// Package auth verifies client credentials at the WebSocket upgrade boundary.
//
// The relay itself does not authenticate peer identities; peer ids remain
// client-supplied. Verification only gates admission to the signaling
// endpoints.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/weblink/signaling/internal/config"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Verifier interface {
	Verify(credential string) error
}

// NewVerifier returns the verifier for the configured auth mode, or nil when
// verification is disabled.
func NewVerifier(cfg config.Config) (Verifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeNone:
		return nil, nil
	case config.AuthModeBearer:
		return BearerVerifier{Expected: cfg.BearerToken}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}

// CredentialFromRequest extracts the bearer credential from an upgrade
// request: the "token" query parameter, falling back to an
// "Authorization: Bearer" header.
func CredentialFromRequest(r *http.Request) (string, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
		if token := strings.TrimSpace(rest); token != "" {
			return token, nil
		}
	}
	return "", ErrMissingCredentials
}
