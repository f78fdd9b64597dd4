package auth

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// TokenService issues and verifies HS256 access tokens for principals.
type TokenService struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// Issue signs a token for p. A zero now means time.Now.
func (s TokenService) Issue(p Principal, now time.Time) (string, time.Time, error) {
	if len(s.Secret) == 0 {
		return "", time.Time{}, errors.New("missing jwt secret")
	}
	if strings.TrimSpace(p.Username) == "" {
		return "", time.Time{}, errors.New("missing subject")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	exp := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Roles: p.Roles,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s TokenService) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return s.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Principal converts verified claims into a Principal.
func (c *Claims) Principal() Principal {
	return Principal{Username: c.Subject, Roles: append([]string(nil), c.Roles...)}
}
