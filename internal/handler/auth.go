package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/auth"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/service"
)

// Authenticator is the slice of service.AuthService the handler uses.
type Authenticator interface {
	Login(ctx context.Context, id model.LoginIdentifier, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, id string) (*model.AdminAccount, error)
	CreateAdmin(ctx context.Context, in model.CreateAdminInput, actor *model.Identity) (*model.AdminAccount, error)
}

// AuthHandler serves the admin session endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin  → check credentials, return a token and set the cookie
//   - HandleLogout → blacklist the presented token and clear the cookie
//   - HandleMe     → return the logged-in admin
//   - HandleCreate → create an admin (bootstrap or by an existing admin)
type AuthHandler struct {
	auth         Authenticator
	cookieSecure bool
}

// NewAuthHandler creates an AuthHandler. cookieSecure should be true
// whenever the API is served over HTTPS.
func NewAuthHandler(a Authenticator, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: a, cookieSecure: cookieSecure}
}

// loginRequest carries either a username or an email, never both.
type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req loginRequest) identifier() model.LoginIdentifier {
	if req.Email != "" && req.Username == "" {
		return model.LoginIdentifier{Kind: model.LoginByEmail, Value: req.Email}
	}
	return model.LoginIdentifier{Kind: model.LoginByUsername, Value: req.Username}
}

type loginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
	Admin     *model.AdminAccount `json:"admin"`
}

// HandleLogin checks credentials and starts a session.
//
// HTTP: POST /api/admin/login
// REQUEST BODY: {"username": "admin1", "password": "..."}
//
//	or {"email": "admin1@example.com", "password": "..."}
//
// The token is returned in the body (for API clients that send a Bearer
// header) and in an HttpOnly cookie (for the browser dashboard).
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Username != "" && req.Email != "" {
		WriteError(w, apperror.ValidationFailed("body", "send either username or email, not both"))
		return
	}

	res, err := h.auth.Login(r.Context(), req.identifier(), req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    res.Token,
		Path:     "/",
		Expires:  res.ExpiresAt,
		MaxAge:   int(time.Until(res.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Admin:     res.Admin,
	})
}

// HandleLogout revokes the presented token.
//
// HTTP: POST /api/admin/logout
//
// The route is not behind RequireAuth: logging out with a token that is
// already revoked or expired still succeeds and still clears the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.TokenFromRequest(r)); err != nil {
		WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// HandleMe returns the logged-in admin.
//
// HTTP: GET /api/admin/me   (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		WriteError(w, apperror.Unauthorized(auth.ErrMissingToken))
		return
	}

	admin, err := h.auth.Me(r.Context(), id.AccountID)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// HandleCreate creates an admin account.
//
// HTTP: POST /api/admin/create   (OptionalAuth)
// REQUEST BODY: {"username": "admin2", "email": "...", "password": "..."}
//
// Anonymous callers are accepted only while no admin exists yet; the
// service enforces that.
func (h *AuthHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.CreateAdminInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, err)
		return
	}

	actor, _ := auth.IdentityFromContext(r.Context())
	admin, err := h.auth.CreateAdmin(r.Context(), in, actor)
	if err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}
