// Package auth verifies the signed identity token a client presents when it
// opens a session. Verification happens once, before the connection is
// admitted to the registry; a token revoked mid-session stays valid for that
// open connection until it reconnects.
package auth

import (
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/edhub/edhub/internal/domain/resource"
)

// Identity is the authenticated principal extracted from a token.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// Verifier validates an identity token and returns the principal it carries.
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// Claims are the token claims issued by the upstream authentication service.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTConfig configures the JWT verifier.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
}

type jwtVerifier struct {
	cfg JWTConfig
}

// NewJWTVerifier returns a Verifier that validates HS256 tokens signed with
// the shared secret, optionally enforcing issuer and audience.
func NewJWTVerifier(cfg JWTConfig) Verifier {
	return &jwtVerifier{cfg: cfg}
}

func (v *jwtVerifier) Verify(tokenStr string) (*Identity, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: missing token", resource.ErrUnauthorized)
	}

	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return v.cfg.Secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", resource.ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", resource.ErrUnauthorized)
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("%w: token carries no role", resource.ErrUnauthorized)
	}

	return &Identity{UserID: userID, Role: claims.Role}, nil
}

// StaticVerifier maps literal token strings to identities. Used in tests and
// development setups without an upstream issuer.
type StaticVerifier struct {
	mu     sync.RWMutex
	tokens map[string]Identity
}

func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{tokens: make(map[string]Identity)}
}

// Add registers a token for the given identity.
func (s *StaticVerifier) Add(token string, id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = id
}

func (s *StaticVerifier) Verify(token string) (*Identity, error) {
	s.mu.RLock()
	id, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", resource.ErrUnauthorized)
	}
	return &id, nil
}
