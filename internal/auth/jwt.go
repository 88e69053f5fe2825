package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultAlgorithm = "HS256"

// JWTHandler sends a JWT as a bearer token. Without a Secret the token is
// decoded unverified and only its expiry is checked.
type JWTHandler struct {
	Token     string
	Secret    string
	Algorithm string

	// now is overridable in tests.
	now func() time.Time
}

func (h *JWTHandler) Type() string { return TypeJWT }

func (h *JWTHandler) Headers() map[string]string {
	return map[string]string{"Authorization": defaultTokenType + " " + h.Token}
}

// Validate parses the token and rejects malformed, badly signed or expired
// tokens.
func (h *JWTHandler) Validate() error {
	_, err := h.Claims()
	return err
}

// Claims returns the token claims after validation.
func (h *JWTHandler) Claims() (jwt.MapClaims, error) {
	if h.Token == "" {
		return nil, fmt.Errorf("jwt: %w", ErrMissingCredentials)
	}

	now := time.Now
	if h.now != nil {
		now = h.now
	}
	algorithm := h.Algorithm
	if algorithm == "" {
		algorithm = defaultAlgorithm
	}

	claims := jwt.MapClaims{}
	if h.Secret != "" {
		_, err := jwt.ParseWithClaims(h.Token, claims, func(token *jwt.Token) (any, error) {
			return []byte(h.Secret), nil
		}, jwt.WithValidMethods([]string{algorithm}), jwt.WithTimeFunc(now))
		if err != nil {
			return nil, fmt.Errorf("validate jwt: %w", err)
		}
		return claims, nil
	}

	if _, _, err := jwt.NewParser().ParseUnverified(h.Token, claims); err != nil {
		return nil, fmt.Errorf("decode jwt: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("decode jwt: %w", err)
	}
	if exp != nil && !now().Before(exp.Time) {
		return nil, fmt.Errorf("validate jwt: %w", jwt.ErrTokenExpired)
	}
	return claims, nil
}

// IsExpired reports whether validation failed because the token expired.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
