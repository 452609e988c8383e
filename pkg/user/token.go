package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator verifies HS256 bearer tokens. The subject claim carries the user id.
type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// Enabled reports whether a signing secret is configured.
func (v *TokenValidator) Enabled() bool {
	return len(v.secret) > 0
}

func (v *TokenValidator) Validate(tokenString string) (User, error) {
	if !v.Enabled() {
		return User{}, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}
	parsed := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, parsed, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if parsed.Subject == "" {
		return User{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return User{Id: parsed.Subject, Email: parsed.Email}, nil
}

// Issue signs a token for u valid for ttl from now. Used by the dev CLI and tests.
func (v *TokenValidator) Issue(u User, now time.Time, ttl time.Duration) (string, error) {
	if !v.Enabled() {
		return "", fmt.Errorf("cannot issue token: no signing secret configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}
