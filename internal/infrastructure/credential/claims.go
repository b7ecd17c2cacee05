package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from a bearer token without the server's key.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// DescribeToken decodes token claims WITHOUT verifying the signature. The
// result is for display only; the server stays the authority on validity.
func DescribeToken(token string) (TokenInfo, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, false
	}

	info := TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, true
}

// Expired reports whether the exp claim lies before now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && i.ExpiresAt.Before(now)
}
