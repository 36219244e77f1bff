// Package token issues and verifies the signed claims that authenticate
// every request: subject (username), role and an expiry.
package token

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed, tampered and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSubject is returned when a structurally valid token
	// carries no username.
	ErrMissingSubject = errors.New("token missing subject")
)

// Claims carried by an access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
}

// ConfigFromEnv reads signing config from the environment. SECRET_KEY is
// required; ALGORITHM defaults to HS256 and ACCESS_TOKEN_EXPIRE_MINUTES
// to 30.
func ConfigFromEnv() (Config, error) {
	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		return Config{}, errors.New("SECRET_KEY is not set")
	}
	algorithm := os.Getenv("ALGORITHM")
	if algorithm == "" {
		algorithm = "HS256"
	}
	ttl := 30 * time.Minute
	if env := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); env != "" {
		minutes, err := strconv.Atoi(env)
		if err != nil || minutes <= 0 {
			return Config{}, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %q", env)
		}
		ttl = time.Duration(minutes) * time.Minute
	}
	return Config{Secret: secret, Algorithm: algorithm, TTL: ttl}, nil
}

// Manager signs and verifies access tokens with an HMAC secret.
type Manager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, errors.New("signing secret is required")
	}
	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{secret: []byte(cfg.Secret), method: method, ttl: ttl}, nil
}

// Issue creates a signed token for the given username and role,
// expiring after the configured TTL.
func (m *Manager) Issue(username, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the embedded username and role.
func (m *Manager) Verify(tokenString string) (username, role string, err error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", "", ErrMissingSubject
	}
	return claims.Subject, claims.Role, nil
}
