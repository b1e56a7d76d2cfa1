// ADMIN AUTHENTICATION:
//
//	AuthHandler (HTTP) → AuthService (rules) → AdminRepository (DB)
//	                   ↘ TokenService (JWT)  ↘ blacklist (revoked tokens)
//
// Every authentication failure leaves this file as apperror.Unauthorized
// wrapping one of the auth.Err* kinds. The handler maps all of them to the
// same 401 body; the kind is logged here so operators can still tell a
// typo'd password from a replayed, revoked token.

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/auth"
	"github.com/sakif/aisolutions-cms/internal/model"
	"github.com/sakif/aisolutions-cms/internal/repository"
	"github.com/sakif/aisolutions-cms/internal/validation"
)

// TokenBlacklist is the part of the blacklist service AuthService needs.
type TokenBlacklist interface {
	Add(ctx context.Context, token string) error
	Contains(ctx context.Context, token string) (bool, error)
}

type AuthService struct {
	admins    repository.AdminRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	blacklist TokenBlacklist
	logger    *slog.Logger
}

func NewAuthService(
	admins repository.AdminRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	blacklist TokenBlacklist,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		admins:    admins,
		tokens:    tokens,
		passwords: passwords,
		blacklist: blacklist,
		logger:    logger,
	}
}

// LoginResult bundles what the handler needs to answer a login: the token
// for the body and cookie, when it expires, and the account.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Admin     *model.AdminAccount
}

// Login checks a username-or-email and password and issues a session token.
//
// Unknown accounts still pay for one bcrypt comparison, so the response
// time does not reveal whether the identifier exists.
func (s *AuthService) Login(ctx context.Context, id model.LoginIdentifier, password string) (*LoginResult, error) {
	value := strings.TrimSpace(id.Value)
	if value == "" || password == "" {
		return nil, s.reject(auth.ErrInvalidCredentials, "empty identifier or password", value)
	}

	var (
		admin *model.AdminAccount
		err   error
	)
	switch id.Kind {
	case model.LoginByEmail:
		admin, err = s.admins.GetAdminByEmail(ctx, value)
	case model.LoginByUsername:
		admin, err = s.admins.GetAdminByUsername(ctx, value)
	default:
		return nil, apperror.ValidationFailed("kind", "login kind must be username or email")
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(password)
			return nil, s.reject(auth.ErrInvalidCredentials, "unknown account", value)
		}
		return nil, fmt.Errorf("service/auth: looking up %s %q: %w", id.Kind, value, err)
	}

	if err := s.passwords.Verify(admin.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, s.reject(auth.ErrInvalidCredentials, "wrong password", value)
		}
		return nil, fmt.Errorf("service/auth: checking password for %s: %w", admin.ID, err)
	}

	token, expires, err := s.tokens.Issue(admin)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", admin.ID, err)
	}

	s.logger.Info("admin logged in",
		slog.String("adminID", admin.ID),
		slog.String("username", admin.Username),
	)

	return &LoginResult{Token: token, ExpiresAt: expires, Admin: admin}, nil
}

// Verify resolves a session token to the admin it belongs to. The checks
// run in a fixed order: presence, blacklist, signature and expiry, then the
// account itself.
func (s *AuthService) Verify(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, apperror.Unauthorized(auth.ErrMissingToken)
	}

	revoked, err := s.blacklist.Contains(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking blacklist: %w", err)
	}
	if revoked {
		return nil, s.reject(auth.ErrRevoked, "blacklisted token presented", "")
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		s.logger.Debug("token rejected", slog.String("error", err.Error()))
		return nil, apperror.Unauthorized(auth.ErrInvalidOrExpired)
	}

	admin, err := s.admins.GetAdminByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, s.reject(auth.ErrUnknownAccount, "token for deleted account", claims.Subject)
		}
		return nil, fmt.Errorf("service/auth: loading admin %s: %w", claims.Subject, err)
	}

	return admin.Identity(), nil
}

// Logout revokes token. Revoking the same token twice is fine.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperror.Unauthorized(auth.ErrMissingToken)
	}
	if err := s.blacklist.Add(ctx, token); err != nil {
		return fmt.Errorf("service/auth: revoking token: %w", err)
	}
	s.logger.Info("admin logged out")
	return nil
}

// CreateAdmin registers a new admin. actor is the authenticated caller; a
// nil actor is only allowed while no admin exists yet, which is how the
// first account gets made.
func (s *AuthService) CreateAdmin(ctx context.Context, in model.CreateAdminInput, actor *model.Identity) (*model.AdminAccount, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	if actor == nil {
		n, err := s.admins.CountAdmins(ctx)
		if err != nil {
			return nil, fmt.Errorf("service/auth: counting admins: %w", err)
		}
		if n > 0 {
			return nil, apperror.Unauthorized(auth.ErrMissingToken)
		}
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	admin := &model.AdminAccount{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.admins.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating admin %s: %w", in.Username, err)
	}

	createdBy := "bootstrap"
	if actor != nil {
		createdBy = actor.Username
	}
	s.logger.Info("admin created",
		slog.String("adminID", admin.ID),
		slog.String("username", admin.Username),
		slog.String("createdBy", createdBy),
	)
	return admin, nil
}

// Me returns the account behind an authenticated identity.
func (s *AuthService) Me(ctx context.Context, id string) (*model.AdminAccount, error) {
	admin, err := s.admins.GetAdminByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(auth.ErrUnknownAccount)
		}
		return nil, fmt.Errorf("service/auth: loading admin %s: %w", id, err)
	}
	return admin, nil
}

// reject logs the specific reason and returns the client-facing error.
func (s *AuthService) reject(kind error, reason, subject string) error {
	s.logger.Warn("authentication failed",
		slog.String("kind", kind.Error()),
		slog.String("reason", reason),
		slog.String("subject", subject),
	)
	return apperror.Unauthorized(kind)
}
