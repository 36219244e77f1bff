package guard

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/librarium-io/librarium/internal/token"
	"github.com/librarium-io/librarium/internal/user/entity"
)

type stubFinder map[string]*entity.User

func (f stubFinder) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	if u, ok := f[username]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func newTestGuard(t *testing.T, users stubFinder) (*Guard, *token.Manager) {
	t.Helper()
	tokens, err := token.NewManager(token.Config{Secret: "guard-secret", TTL: time.Minute})
	require.NoError(t, err)
	return New(tokens, users, zap.NewNop().Sugar()), tokens
}

func bearer(t *testing.T, tokens *token.Manager, username, role string) string {
	t.Helper()
	signed, err := tokens.Issue(username, role)
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	g, _ := newTestGuard(t, stubFinder{})
	h := g.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	g, _ := newTestGuard(t, stubFinder{})
	h := g.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsUnknownUser(t *testing.T) {
	g, tokens := newTestGuard(t, stubFinder{})
	h := g.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, tokens, "ghost", entity.RoleMember))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	users := stubFinder{
		"bob": {ID: 1, Username: "bob", Role: entity.RoleMember, IsActive: false},
	}
	g, tokens := newTestGuard(t, users)
	h := g.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, tokens, "bob", entity.RoleMember))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "inactive user")
}

func TestAuthenticatePutsCallerInContext(t *testing.T) {
	users := stubFinder{
		"alice": {ID: 7, Username: "alice", Role: entity.RoleMember, IsActive: true},
	}
	g, tokens := newTestGuard(t, users)

	var got Caller
	h := g.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CallerFromContext(r.Context())
		require.True(t, ok)
		got = c
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, tokens, "alice", entity.RoleMember))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, entity.RoleMember, got.Role)
}

func TestRoleGates(t *testing.T) {
	users := stubFinder{
		"alice": {ID: 7, Username: "alice", Role: entity.RoleMember, IsActive: true},
		"marge": {ID: 8, Username: "marge", Role: entity.RoleLibrarian, IsActive: true},
	}
	g, tokens := newTestGuard(t, users)
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	cases := []struct {
		name     string
		handler  http.Handler
		username string
		role     string
		want     int
	}{
		{"member on member route", g.Member(ok), "alice", entity.RoleMember, http.StatusOK},
		{"librarian on librarian route", g.Librarian(ok), "marge", entity.RoleLibrarian, http.StatusOK},
		{"member on librarian route", g.Librarian(ok), "alice", entity.RoleMember, http.StatusForbidden},
		{"librarian on member route", g.Member(ok), "marge", entity.RoleLibrarian, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", bearer(t, tokens, tc.username, tc.role))
			rec := httptest.NewRecorder()
			tc.handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusForbidden {
				assert.Contains(t, rec.Body.String(), "not enough permissions")
			}
		})
	}
}

func TestRoleFromStoreWinsOverClaim(t *testing.T) {
	// token says LIBRARIAN but the stored row says MEMBER
	users := stubFinder{
		"alice": {ID: 7, Username: "alice", Role: entity.RoleMember, IsActive: true},
	}
	g, tokens := newTestGuard(t, users)
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, tokens, "alice", entity.RoleLibrarian))
	rec := httptest.NewRecorder()
	g.Librarian(ok).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
