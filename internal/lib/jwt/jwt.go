package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"account_service/internal/models"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Manager mints and decodes signed access tokens. The signing key is
// injected once at construction; key rotation is not supported.
type Manager struct {
	secret     []byte
	defaultTTL time.Duration
}

func New(secret string, defaultTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		defaultTTL: defaultTTL,
	}
}

// Mint signs a token carrying the user id and scopes, expiring after ttl.
// A zero ttl falls back to the configured default.
func (m *Manager) Mint(userID string, scopes []string, ttl time.Duration) (string, error) {
	const op = "jwt.Mint"

	if ttl == 0 {
		ttl = m.defaultTTL
	}

	claims := jwt.MapClaims{
		"user_id": userID,
		"scopes":  scopes,
		"exp":     time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Decode verifies signature and expiry and returns the embedded payload.
// Expired-but-authentic tokens yield ErrTokenExpired; everything else
// that fails to verify or parse yields ErrTokenInvalid.
func (m *Manager) Decode(tokenStr string) (models.TokenPayload, error) {
	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.TokenPayload{}, ErrTokenExpired
		}
		return models.TokenPayload{}, ErrTokenInvalid
	}

	if !parsed.Valid {
		return models.TokenPayload{}, ErrTokenInvalid
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return models.TokenPayload{}, ErrTokenInvalid
	}

	rawScopes, ok := claims["scopes"].([]interface{})
	if !ok {
		return models.TokenPayload{}, ErrTokenInvalid
	}

	scopes := make([]string, 0, len(rawScopes))
	for _, s := range rawScopes {
		scope, ok := s.(string)
		if !ok {
			return models.TokenPayload{}, ErrTokenInvalid
		}
		scopes = append(scopes, scope)
	}

	return models.TokenPayload{
		UserID: userID,
		Scopes: scopes,
	}, nil
}
