package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/edhub/edhub/internal/domain/resource"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestJWTVerifier_ValidToken(t *testing.T) {
	userID := uuid.New()
	tokenStr := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "edhub-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "doctor",
	})

	v := NewJWTVerifier(JWTConfig{Secret: testSecret, Issuer: "edhub-auth"})
	id, err := v.Verify(tokenStr)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, id.UserID)
	}
	if id.Role != "doctor" {
		t.Fatalf("expected role doctor, got %s", id.Role)
	}
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	tokenStr := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: "nurse",
	})

	v := NewJWTVerifier(JWTConfig{Secret: testSecret})
	if _, err := v.Verify(tokenStr); !errors.Is(err, resource.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	tokenStr := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "nurse",
	})

	v := NewJWTVerifier(JWTConfig{Secret: []byte("other-secret")})
	if _, err := v.Verify(tokenStr); !errors.Is(err, resource.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong secret, got %v", err)
	}
}

func TestJWTVerifier_MissingRole(t *testing.T) {
	tokenStr := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	v := NewJWTVerifier(JWTConfig{Secret: testSecret})
	if _, err := v.Verify(tokenStr); !errors.Is(err, resource.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for missing role, got %v", err)
	}
}

func TestJWTVerifier_NonUUIDSubject(t *testing.T) {
	tokenStr := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "doctor",
	})

	v := NewJWTVerifier(JWTConfig{Secret: testSecret})
	if _, err := v.Verify(tokenStr); !errors.Is(err, resource.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-uuid subject, got %v", err)
	}
}

func TestJWTVerifier_EmptyToken(t *testing.T) {
	v := NewJWTVerifier(JWTConfig{Secret: testSecret})
	if _, err := v.Verify(""); !errors.Is(err, resource.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for empty token, got %v", err)
	}
}

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier()
	id := Identity{UserID: uuid.New(), Role: "nurse"}
	v.Add("tok-1", id)

	got, err := v.Verify("tok-1")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got.UserID != id.UserID || got.Role != id.Role {
		t.Fatalf("unexpected identity: %+v", got)
	}

	if _, err := v.Verify("unknown"); !errors.Is(err, resource.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown token, got %v", err)
	}
}
