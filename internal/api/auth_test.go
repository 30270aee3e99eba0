package api

import (
	"net/http"
	"testing"

	"yamdb/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndTokenFlow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"username": "alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	echoed := decode[SignupRequest](t, w)
	assert.Equal(t, "alice", echoed.Username)
	assert.Equal(t, "alice@example.com", echoed.Email)
	require.Equal(t, 1, env.mailer.count())
	assert.Equal(t, "alice@example.com", env.mailer.sent[0].To)
	code := env.mailer.lastCode(t)

	var stored domain.User
	require.NoError(t, env.db.Where("username = ?", "alice").First(&stored).Error)
	assert.Equal(t, domain.RoleUser, stored.Role)
	assert.NotEqual(t, code, stored.ConfirmationCode, "code must be stored hashed")

	// Wrong code: client error, no token
	w = env.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "alice", "confirmation_code": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Contains(t, resp.Fields, "confirmation_code")
	assert.Empty(t, decode[TokenResponse](t, w).Token)

	// Correct code: token accepted by a protected endpoint
	w = env.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "alice", "confirmation_code": code})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decode[TokenResponse](t, w).Token
	require.NotEmpty(t, token)

	w = env.do(http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode[UserResponse](t, w).Username)

	// Codes are single use
	w = env.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "alice", "confirmation_code": code})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupRejectsReservedUsername(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"username": "me", "email": "me@example.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Fields, "username")
	assert.Equal(t, 0, env.mailer.count())
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"missing username", map[string]string{"email": "a@example.com"}, "username"},
		{"missing email", map[string]string{"username": "bob"}, "email"},
		{"bad email", map[string]string{"username": "bob", "email": "not-an-email"}, "email"},
		{"bad username", map[string]string{"username": "bob smith", "email": "b@example.com"}, "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/v1/auth/signup", "", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decode[ErrorResponse](t, w).Fields, tt.field)
		})
	}
}

func TestSignupIsIdempotentForSamePair(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]string{"username": "bob", "email": "bob@example.com"}

	w := env.do(http.MethodPost, "/api/v1/auth/signup", "", body)
	require.Equal(t, http.StatusOK, w.Code)
	first := env.mailer.lastCode(t)

	w = env.do(http.MethodPost, "/api/v1/auth/signup", "", body)
	require.Equal(t, http.StatusOK, w.Code)
	second := env.mailer.lastCode(t)

	assert.Equal(t, 2, env.mailer.count())
	assert.NotEqual(t, first, second, "each signup issues a fresh code")

	var count int64
	env.db.Model(&domain.User{}).Where("username = ?", "bob").Count(&count)
	assert.EqualValues(t, 1, count)

	// Only the latest code is valid
	w = env.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "bob", "confirmation_code": first})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "bob", "confirmation_code": second})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSignupCollisions(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"username": "carol", "email": "carol@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"username": "carol", "email": "other@example.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Fields, "username")

	w = env.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"username": "caroline", "email": "carol@example.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Fields, "email")

	assert.Equal(t, 1, env.mailer.count())
}

func TestTokenUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "ghost", "confirmation_code": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/api/v1/auth/token", "", map[string]string{"username": "ghost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidBearerTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
