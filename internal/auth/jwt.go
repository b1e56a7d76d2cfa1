// Package auth provides session tokens, password hashing and the
// authentication middleware for the admin API.
//
// SESSION FLOW:
//  1. An admin posts credentials to /api/admin/login
//  2. The server checks them and issues a signed JWT, valid for 24h
//  3. The token comes back in the body and in the session_token cookie
//  4. Later requests send it back (cookie or "Authorization: Bearer")
//  5. RequireAuth verifies it and puts the admin's Identity in the context
//  6. Logout blacklists the exact token string until it would have expired
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<admin id>","username":"admin1","exp":...,"jti":"..."}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// A JWT is stateless, which is exactly why logout needs the blacklist: the
// signature stays valid until exp no matter what the server does.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sakif/aisolutions-cms/internal/model"
)

const (
	// Issuer is stamped into every token and required on verify.
	Issuer = "aisolutions-cms"

	// DefaultTokenTTL is the session lifetime.
	DefaultTokenTTL = 24 * time.Hour

	// MinSecretLength is the shortest HMAC secret accepted.
	MinSecretLength = 32
)

// TokenService signs and parses session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService. A ttl of zero means
// DefaultTokenTTL. Generate a secret with: openssl rand -hex 32
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Claims is the token payload. Subject carries the admin id.
//
// ID (the "jti" claim) is a random UUID. Without it two logins by the same
// admin within one second would produce byte-identical tokens, and logging
// out of one session would silently revoke the other.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issue signs a new token for admin and returns it with its expiry.
func (s *TokenService) Issue(admin *model.AdminAccount) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	c := Claims{
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   admin.ID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies the signature, algorithm, issuer and expiry of tokenStr.
// Every failure wraps ErrInvalidOrExpired.
//
// ALGORITHM CONFUSION ATTACK:
// Without pinning the algorithm, an attacker could send a token with
// alg "none" and some libraries would accept it. WithValidMethods stops that.
func (s *TokenService) Parse(tokenStr string) (*Claims, error) {
	c := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired: %w", ErrInvalidOrExpired)
		}
		return nil, fmt.Errorf("auth: %w: %v", ErrInvalidOrExpired, err)
	}
	if !token.Valid || c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject: %w", ErrInvalidOrExpired)
	}
	return c, nil
}
