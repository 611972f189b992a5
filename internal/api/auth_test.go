package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logodouman/domain"
)

func testHandler() *Handler {
	return New(nil, "test-secret", nil)
}

func TestGenerateAndParseToken(t *testing.T) {
	h := testHandler()

	token, err := h.generateToken(42, domain.RoleManager)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := h.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, domain.RoleManager, claims.Role)
}

func TestParseTokenWrongSecret(t *testing.T) {
	h := testHandler()
	token, err := h.generateToken(1, domain.RoleAdmin)
	require.NoError(t, err)

	other := New(nil, "different-secret", nil)
	_, err = other.parseToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	h := testHandler()

	var gotUserID int64
	var gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = userIDFromContext(r)
		gotRole, _ = r.Context().Value(ctxRole).(string)
		w.WriteHeader(http.StatusNoContent)
	})
	protected := h.authMiddleware(next)

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := h.generateToken(7, domain.RoleAdmin)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(7), gotUserID)
		assert.Equal(t, domain.RoleAdmin, gotRole)
	})
}

func TestRequireRole(t *testing.T) {
	h := testHandler()

	roleRequest := func(role string) *http.Request {
		token, err := h.generateToken(1, role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	check := func(role string, allowed ...string) int {
		rec := httptest.NewRecorder()
		handler := h.authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !h.requireRole(w, r, allowed...) {
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		handler.ServeHTTP(rec, roleRequest(role))
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, check(domain.RoleAdmin, domain.RoleAdmin))
	assert.Equal(t, http.StatusNoContent, check(domain.RoleManager, domain.RoleAdmin, domain.RoleManager))
	assert.Equal(t, http.StatusForbidden, check(domain.RoleManager, domain.RoleAdmin))
}
