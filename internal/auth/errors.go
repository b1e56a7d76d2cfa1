package auth

import (
	"fmt"

	"github.com/sakif/aisolutions-cms/internal/apperror"
)

// Authentication failure kinds. Each wraps apperror.ErrUnauthorized, so the
// HTTP layer answers every one of them with the same 401; the kind itself
// is only ever written to the server log.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)
	ErrRevoked            = fmt.Errorf("token has been revoked: %w", apperror.ErrUnauthorized)
	ErrInvalidOrExpired   = fmt.Errorf("invalid or expired token: %w", apperror.ErrUnauthorized)
	ErrMissingToken       = fmt.Errorf("no session token: %w", apperror.ErrUnauthorized)
	ErrUnknownAccount     = fmt.Errorf("token refers to an unknown account: %w", apperror.ErrUnauthorized)
)
