package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Mint issues a signed token locally. Real user tokens come from the
// identity provider; this exists so tests and local tooling can exercise
// the protected routes without standing up an IdP.
func (s *Service) Mint(userID int64, role string) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
