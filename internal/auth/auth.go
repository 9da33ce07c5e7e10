// Package auth verifies bearer tokens and carries the caller's claims through
// request contexts.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds the shared HS256 secret and expected issuer.
type Config struct {
	Secret string
	Issuer string
}

// Claims is the verified identity of a caller. Subject is the user id every
// walk, grant and schedule is keyed on.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	Scopes    map[string]struct{}
	ExpiresAt time.Time
}

// ErrMissingToken is returned when no bearer token was presented.
var ErrMissingToken = errors.New("missing bearer token")

// ErrInvalidToken wraps signature, issuer, expiry and shape failures.
var ErrInvalidToken = errors.New("invalid bearer token")

// tokenClaims is the JWT body. Scopes may be a JSON array or a
// space-separated string, depending on the issuer.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Scopes any    `json:"scopes,omitempty"`
}

// Parse validates token and returns the caller's claims.
func Parse(token string, cfg Config) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	var body tokenClaims
	_, err := jwt.ParseWithClaims(token, &body, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	},
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if body.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidToken)
	}

	return &Claims{
		Subject:   body.Subject,
		Email:     body.Email,
		Name:      body.Name,
		Scopes:    scopeSet(body.Scopes),
		ExpiresAt: body.ExpiresAt.Time,
	}, nil
}

// Sign issues an HS256 token for subject. walkerctl and the tests use it; the
// identity provider signs with the same secret and issuer.
func Sign(cfg Config, subject string, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now()
	body := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes: scopes,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, body).SignedString([]byte(cfg.Secret))
}

func scopeSet(raw any) map[string]struct{} {
	var names []string
	switch v := raw.(type) {
	case string:
		names = strings.Fields(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	case []string:
		names = v
	}

	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// HasScope reports whether the token carries scope verbatim.
func (c *Claims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Scopes[scope]
	return ok
}
