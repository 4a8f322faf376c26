package jwttoken

import (
	mwauth "gatherhall/pkg/platform/middleware/auth"
)

// MiddlewareAdapter adapts JWTService to the auth middleware's
// JWTValidator interface.
type MiddlewareAdapter struct {
	svc *JWTService
}

func NewMiddlewareAdapter(svc *JWTService) *MiddlewareAdapter {
	return &MiddlewareAdapter{svc: svc}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*mwauth.JWTClaims, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &mwauth.JWTClaims{
		UserID: claims.UserID,
		Role:   claims.Role,
	}, nil
}
