package jwttoken

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/requestcontext"

	"github.com/golang-jwt/jwt/v5"
)

// Operator scopes checked by the HTTP layer.
const (
	ScopeAnchor = "anchor"
	ScopeClaims = "claims"
	ScopeIssue  = "credentials"
)

// OperatorClaims are the JWT claims carried by operator bearer tokens.
type OperatorClaims struct {
	Scope []string `json:"scope"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope.
func (c *OperatorClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scope, scope)
}

// JWTService issues and validates HS256 operator tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
}

func NewJWTService(signingKey, issuer, audience string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

// GenerateOperatorToken signs a token for subject with the given scopes.
func (s *JWTService) GenerateOperatorToken(ctx context.Context, subject string, scopes []string) (string, error) {
	if subject == "" {
		return "", dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	if len(scopes) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "scopes cannot be empty")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	now := requestcontext.Now(ctx)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, OperatorClaims{
		Scope: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        hex.EncodeToString(b),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*OperatorClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*OperatorClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}
	return claims, nil
}
