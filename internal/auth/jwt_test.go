package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/aisolutions-cms/internal/apperror"
	"github.com/sakif/aisolutions-cms/internal/model"
)

const testSecret = "test-secret-that-is-32-chars-ok!"

// newTestTokenService uses a fixed secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

var testAdmin = &model.AdminAccount{ID: "admin-123", Username: "admin1", Email: "a@x.com"}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	if _, err := NewTokenService("only-sixteen-chr", 0); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 32 chars")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	ts := newTestTokenService(t)
	if ts.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", ts.ttl, DefaultTokenTTL)
	}
}

// =========================================================================
// ISSUE
// =========================================================================

func TestIssue_ClaimsAndExpiry(t *testing.T) {
	ts := newTestTokenService(t)
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return fixed }

	token, expires, err := ts.Issue(testAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// header.payload.signature
	if strings.Count(token, ".") != 2 {
		t.Errorf("Issue() token doesn't look like a JWT: %q", token)
	}
	if !expires.Equal(fixed.Add(24 * time.Hour)) {
		t.Errorf("expires = %v, want issue time + 24h", expires)
	}

	c, err := ts.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.Subject != "admin-123" || c.Username != "admin1" || c.Issuer != Issuer {
		t.Errorf("claims = %+v", c)
	}
	if c.ID == "" {
		t.Error("Issue() did not set a jti")
	}
}

func TestIssue_SameSecondTokensDiffer(t *testing.T) {
	ts := newTestTokenService(t)
	fixed := time.Now()
	ts.now = func() time.Time { return fixed }

	t1, _, _ := ts.Issue(testAdmin)
	t2, _, _ := ts.Issue(testAdmin)

	if t1 == t2 {
		t.Error("two tokens issued in the same second must differ")
	}
}

// =========================================================================
// PARSE
// =========================================================================

func TestParse_Expired(t *testing.T) {
	ts := newTestTokenService(t)
	issued := time.Now().Add(-25 * time.Hour)
	ts.now = func() time.Time { return issued }
	token, _, _ := ts.Issue(testAdmin)

	ts.now = time.Now
	_, err := ts.Parse(token)
	if !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("Parse() error = %v, want ErrInvalidOrExpired", err)
	}
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Error("expired token error must be an Unauthorized kind")
	}
}

func TestParse_Tampered(t *testing.T) {
	ts := newTestTokenService(t)
	token, _, _ := ts.Issue(testAdmin)

	tampered := token[:len(token)-3] + "xxx"
	if _, err := ts.Parse(tampered); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("Parse(tampered) error = %v, want ErrInvalidOrExpired", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!", 0)
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", 0)

	token, _, _ := ts1.Issue(testAdmin)
	if _, err := ts2.Parse(token); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("Parse() with other secret error = %v", err)
	}
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	ts := newTestTokenService(t)

	c := Claims{Username: "admin1", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "admin-123",
		Issuer:    Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}
	if _, err := ts.Parse(none); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("Parse(alg none) error = %v", err)
	}

	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString([]byte(testSecret))
	if _, err := ts.Parse(hs512); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("Parse(HS512) error = %v", err)
	}
}

func TestParse_WrongIssuer(t *testing.T) {
	ts := newTestTokenService(t)

	c := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "admin-123",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))

	if _, err := ts.Parse(token); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("Parse(wrong issuer) error = %v", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	ts := newTestTokenService(t)
	for _, in := range []string{"", "not.a.jwt.token", "abc"} {
		if _, err := ts.Parse(in); !errors.Is(err, ErrInvalidOrExpired) {
			t.Errorf("Parse(%q) error = %v", in, err)
		}
	}
}
