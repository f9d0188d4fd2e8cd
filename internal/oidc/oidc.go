package oidc

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/devfolio/portfolio-api/pkg/middleware"
)

// ErrNotAdmin is returned for a valid token that carries neither the admin
// role nor the admin subject.
var ErrNotAdmin = errors.New("token does not grant admin access")

// Verifier checks ID tokens issued by an OIDC provider (Keycloak) so an
// operator can reach the admin routes with an SSO token instead of the
// built-in admin login. A verified token must also carry Role (realm or
// client role) or belong to Subject.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	clientID string
	Role     string
	Subject  string
}

type adminClaims struct {
	Subject     string `json:"sub"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// Issuer returns the issuer URL for a Keycloak realm. When realm is empty the
// URL is assumed to already point at the realm.
func Issuer(baseURL, realm string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if realm == "" || strings.Contains(baseURL, "/realms/") {
		return baseURL
	}
	return baseURL + "/realms/" + realm
}

// NewVerifier creates a new OIDC verifier for the given issuer and client ID.
// role and subject select the admin; at least one must be set.
func NewVerifier(ctx context.Context, issuer, clientID, role, subject string) (*Verifier, error) {
	if role == "" && subject == "" {
		return nil, errors.New("oidc admin access needs a role or a subject")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		clientID: clientID,
		Role:     role,
		Subject:  subject,
	}, nil
}

// Verify verifies the provided raw ID token and checks that it belongs to the admin.
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	var claims adminClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	if !v.admin(claims) {
		return nil, ErrNotAdmin
	}
	return idToken, nil
}

func (v *Verifier) admin(c adminClaims) bool {
	if v.Subject != "" && c.Subject == v.Subject {
		return true
	}
	if v.Role == "" {
		return false
	}
	if slices.Contains(c.RealmAccess.Roles, v.Role) {
		return true
	}
	return slices.Contains(c.ResourceAccess[v.clientID].Roles, v.Role)
}
