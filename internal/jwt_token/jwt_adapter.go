package jwttoken

import (
	"vcanchor/pkg/platform/middleware/auth"
)

// JWTServiceAdapter exposes JWTService through the auth middleware's
// validator interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*auth.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.Claims{
		Subject: claims.Subject,
		Scopes:  claims.Scope,
		JTI:     claims.ID,
	}, nil
}
