package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/aisolutions-cms/internal/model"
)

// CookieName is the cookie that carries the session token.
const CookieName = "session_token"

// Verifier resolves a raw token to the admin it belongs to. The auth
// service implements it; the middleware never touches the blacklist or the
// store directly.
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

// ErrorWriter renders a failed verification. The handler package supplies
// one so 401 bodies look like every other error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// contextKey is unexported so no other package can read or shadow our
// context values.
type contextKey string

const (
	identityKey contextKey = "identity"
	tokenKey    contextKey = "token"
)

// RequireAuth rejects requests without a valid, unrevoked session token.
// On success the Identity and the raw token are stored in the context.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(v Verifier, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				fail(w, r, ErrMissingToken)
				return
			}

			id, err := v.Verify(r.Context(), token)
			if err != nil {
				fail(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), id, token)))
		})
	}
}

// OptionalAuth attaches the Identity when a valid token is present and
// otherwise lets the request through anonymously. Public read routes use it
// so an admin sees drafts while visitors only see published content.
func OptionalAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				if id, err := v.Verify(r.Context(), token); err == nil {
					r = r.WithContext(withSession(r.Context(), id, token))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TokenFromRequest returns the session token from the cookie or, failing
// that, an "Authorization: Bearer" header. Empty when neither is present.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// IdentityFromContext returns the authenticated admin, or (nil, false) for
// an anonymous request.
func IdentityFromContext(ctx context.Context) (*model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*model.Identity)
	return id, ok && id != nil
}

// TokenFromContext returns the raw token RequireAuth verified.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey).(string)
	return t, ok && t != ""
}

// WithIdentity stores id in ctx. Tests use it to fake an authenticated
// request without minting a token.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func withSession(ctx context.Context, id *model.Identity, token string) context.Context {
	ctx = WithIdentity(ctx, id)
	return context.WithValue(ctx, tokenKey, token)
}
