package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t, Config{Secret: "test-secret", TTL: time.Minute})

	signed, err := m.Issue("alice", "MEMBER")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	username, role, err := m.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
	assert.Equal(t, "MEMBER", role)
}

func TestVerifyExpiredToken(t *testing.T) {
	m := newTestManager(t, Config{Secret: "test-secret", TTL: -time.Minute})

	signed, err := m.Issue("alice", "MEMBER")
	require.NoError(t, err)

	_, _, err = m.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := newTestManager(t, Config{Secret: "secret-one", TTL: time.Minute})
	verifier := newTestManager(t, Config{Secret: "secret-two", TTL: time.Minute})

	signed, err := issuer.Issue("alice", "MEMBER")
	require.NoError(t, err)

	_, _, err = verifier.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	m := newTestManager(t, Config{Secret: "test-secret", TTL: time.Minute})

	_, _, err := m.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMissingSubject(t *testing.T) {
	m := newTestManager(t, Config{Secret: "test-secret", TTL: time.Minute})

	// structurally valid token without a sub claim
	claims := jwt.MapClaims{
		"role": "MEMBER",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, _, err = m.Verify(signed)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestNewManagerAlgorithms(t *testing.T) {
	for _, alg := range []string{"", "HS256", "HS384", "HS512"} {
		_, err := NewManager(Config{Secret: "s", Algorithm: alg})
		assert.NoError(t, err, "algorithm %q", alg)
	}

	_, err := NewManager(Config{Secret: "s", Algorithm: "RS256"})
	assert.Error(t, err)

	_, err = NewManager(Config{})
	assert.Error(t, err)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	_, err := ConfigFromEnv()
	require.Error(t, err)

	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("ALGORITHM", "")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Secret)
	assert.Equal(t, "HS256", cfg.Algorithm)
	assert.Equal(t, 30*time.Minute, cfg.TTL)

	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	cfg, err = ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.TTL)

	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "nope")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}
