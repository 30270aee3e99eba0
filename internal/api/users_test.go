package api

import (
	"net/http"
	"testing"

	"yamdb/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersEndpointsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	_, userToken := env.createUser("plain", domain.RoleUser)
	_, modToken := env.createUser("mod", domain.RoleModerator)
	_, adminToken := env.createUser("boss", domain.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/v1/users", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/v1/users", userToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/v1/users", modToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/v1/users/plain", userToken, nil).Code)

	w := env.do(http.MethodGet, "/api/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[Page[UserResponse]](t, w)
	assert.EqualValues(t, 3, page.Count)

	w = env.do(http.MethodGet, "/api/v1/users?search=MO", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[Page[UserResponse]](t, w)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "mod", page.Results[0].Username)

	// Underscore is matched literally
	env.createUser("dev_ops", domain.RoleUser)
	env.createUser("devXops", domain.RoleUser)
	w = env.do(http.MethodGet, "/api/v1/users?search=v_o", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[Page[UserResponse]](t, w)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "dev_ops", page.Results[0].Username)
}

func TestSuperuserIsAdmin(t *testing.T) {
	env := newTestEnv(t)
	root, token := env.createUser("root", domain.RoleUser)
	require.NoError(t, env.db.Model(&root).Update("is_superuser", true).Error)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/users", token, nil).Code)
}

func TestAdminCreatesAndManagesUser(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser("boss", domain.RoleAdmin)

	w := env.do(http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"username": "dave", "email": "dave@example.com", "role": "moderator", "bio": "hi",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[UserResponse](t, w)
	assert.Equal(t, domain.RoleModerator, created.Role)

	// Duplicates are reported per field
	w = env.do(http.MethodPost, "/api/v1/users", adminToken, map[string]string{"username": "dave", "email": "dave@example.com"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode[ErrorResponse](t, w).Fields
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")

	w = env.do(http.MethodPost, "/api/v1/users", adminToken, map[string]string{"username": "eve", "email": "eve@example.com", "role": "root"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Fields, "role")

	w = env.do(http.MethodGet, "/api/v1/users/dave", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi", decode[UserResponse](t, w).Bio)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/v1/users/nobody", adminToken, nil).Code)
}

func TestRoleChangeSyncsStaff(t *testing.T) {
	env := newTestEnv(t)
	target, _ := env.createUser("frank", domain.RoleUser)
	_, adminToken := env.createUser("boss", domain.RoleAdmin)

	w := env.do(http.MethodPatch, "/api/v1/users/frank", adminToken, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var reloaded domain.User
	require.NoError(t, env.db.First(&reloaded, target.ID).Error)
	assert.Equal(t, domain.RoleAdmin, reloaded.Role)
	assert.True(t, reloaded.IsStaff)

	w = env.do(http.MethodPatch, "/api/v1/users/frank", adminToken, map[string]string{"role": "user"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, env.db.First(&reloaded, target.ID).Error)
	assert.False(t, reloaded.IsStaff)
}

func TestMeCannotChangeOwnRole(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser("gina", domain.RoleUser)

	w := env.do(http.MethodPatch, "/api/v1/users/me", token, map[string]string{"role": "admin", "bio": "new bio"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode[UserResponse](t, w)
	assert.Equal(t, domain.RoleUser, me.Role)
	assert.Equal(t, "new bio", me.Bio)

	// Still not an admin on the next request
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/api/v1/users", token, nil).Code)
}

func TestMeUsernameUniqueness(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("taken", domain.RoleUser)
	_, token := env.createUser("hank", domain.RoleUser)

	w := env.do(http.MethodPatch, "/api/v1/users/me", token, map[string]string{"username": "taken"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[ErrorResponse](t, w).Fields, "username")
}

func TestDeleteUserCascades(t *testing.T) {
	env := newTestEnv(t)
	author, authorToken := env.createUser("ivan", domain.RoleUser)
	_, otherToken := env.createUser("judy", domain.RoleUser)
	_, adminToken := env.createUser("boss", domain.RoleAdmin)
	titleID := env.createTitle(adminToken, map[string]any{"name": "Dune", "year": 1965})

	w := env.do(http.MethodPost, titlePath(titleID, "reviews"), authorToken, map[string]any{"text": "great", "score": 9})
	require.Equal(t, http.StatusCreated, w.Code)
	reviewID := decode[ReviewResponse](t, w).ID
	w = env.do(http.MethodPost, titlePath(titleID, "reviews", uitoa(reviewID), "comments"), otherToken, map[string]any{"text": "agreed"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/v1/users/ivan", adminToken, nil).Code)

	var reviews, comments int64
	env.db.Model(&domain.Review{}).Where("author_id = ?", author.ID).Count(&reviews)
	env.db.Model(&domain.Comment{}).Count(&comments)
	assert.Zero(t, reviews)
	assert.Zero(t, comments)

	// The deleted user's token no longer authenticates
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/v1/users/me", authorToken, nil).Code)
}
