package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCConfig holds OIDC authentication settings.
type OIDCConfig struct {
	IssuerURL string
	Audience  string
	Enabled   bool
}

type contextKey string

const (
	ctxTenantID contextKey = "tenant_id"
	ctxUserID   contextKey = "user_id"
)

// publicPaths skip token verification.
var publicPaths = map[string]bool{
	"/api/v1/health": true,
}

// TenantFromContext returns the tenant a verified token belongs to, or "".
func TenantFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxTenantID).(string)
	return v
}

// UserFromContext returns the subject of a verified token, or "".
func UserFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxUserID).(string)
	return v
}

// tokenClaims covers both custom tenant claims and Entra ID's tid.
type tokenClaims struct {
	TenantID string `json:"tenant_id"`
	TID      string `json:"tid"`
	Sub      string `json:"sub"`
	Email    string `json:"email"`
}

func (c tokenClaims) tenant() string {
	if c.TenantID != "" {
		return c.TenantID
	}
	return c.TID
}

func (c tokenClaims) user() string {
	if c.Sub != "" {
		return c.Sub
	}
	return c.Email
}

// oidcAuth returns middleware that verifies JWT Bearer tokens against the
// provider's JWKS and stores tenant and user in the request context.
func oidcAuth(provider *oidc.Provider, audience string) func(http.Handler) http.Handler {
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			scheme, raw, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			switch {
			case scheme == "" && !ok:
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			case !ok || !strings.EqualFold(scheme, "Bearer") || raw == "":
				writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			token, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token: "+err.Error())
				return
			}
			var claims tokenClaims
			if err := token.Claims(&claims); err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			ctx := r.Context()
			if t := claims.tenant(); t != "" {
				ctx = context.WithValue(ctx, ctxTenantID, t)
			}
			if u := claims.user(); u != "" {
				ctx = context.WithValue(ctx, ctxUserID, u)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
