package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the bearer token payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens for the JSON API.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	logger *zap.Logger
}

// NewTokens returns a token service. A zero ttl defaults to 24h.
func NewTokens(secret string, ttl time.Duration, logger *zap.Logger) (*Tokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, issuer: "supportdesk", logger: logger}, nil
}

// Issue signs a token for id.
func (t *Tokens) Issue(id session.Identity) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(t.ttl)
	claims := Claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses raw and returns the identity it carries.
func (t *Tokens) Verify(raw string) (session.Identity, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(t.issuer))
	if err != nil || !tok.Valid || claims.Subject == "" {
		return session.Identity{}, ErrInvalidToken
	}
	return session.Identity{UID: claims.Subject, Email: claims.Email}, nil
}

// LoadBearer injects the identity from a valid Authorization: Bearer header.
// Invalid tokens are ignored so the guard treats the caller as signed out.
func (t *Tokens) LoadBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if raw, ok := strings.CutPrefix(h, "Bearer "); ok {
			id, err := t.Verify(strings.TrimSpace(raw))
			if err != nil {
				t.logger.Debug("bearer token rejected", zap.Error(err))
			} else {
				r = WithIdentity(r, id)
			}
		}
		next.ServeHTTP(w, r)
	})
}
