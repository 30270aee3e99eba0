package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundRating(t *testing.T) {
	assert.Equal(t, 9.0, RoundRating(9))
	assert.Equal(t, 6.7, RoundRating(20.0/3.0))
	assert.Equal(t, 3.3, RoundRating(10.0/3.0))
	assert.Equal(t, 7.5, RoundRating(7.5))
}

func TestTitleAfterFindRoundsRating(t *testing.T) {
	avg := 25.0 / 3.0
	title := &Title{Rating: &avg}
	assert.NoError(t, title.AfterFind(nil))
	assert.Equal(t, 8.3, *title.Rating)

	empty := &Title{}
	assert.NoError(t, empty.AfterFind(nil))
	assert.Nil(t, empty.Rating)
}

func TestUserBeforeSaveSyncsStaff(t *testing.T) {
	u := &User{Role: RoleAdmin}
	assert.NoError(t, u.BeforeSave(nil))
	assert.True(t, u.IsStaff)

	u.Role = RoleModerator
	assert.NoError(t, u.BeforeSave(nil))
	assert.False(t, u.IsStaff)

	blank := &User{}
	assert.NoError(t, blank.BeforeSave(nil))
	assert.Equal(t, RoleUser, blank.Role)

	bogus := &User{Role: "superuser"}
	assert.ErrorIs(t, bogus.BeforeSave(nil), ErrInvalidRole)
}

func TestUserRoles(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.True(t, (&User{Role: RoleUser, IsSuperuser: true}).IsAdmin())
	assert.False(t, (&User{Role: RoleModerator}).IsAdmin())
	assert.True(t, (&User{Role: RoleModerator}).IsModerator())

	assert.True(t, ValidRole(RoleUser))
	assert.True(t, ValidRole(RoleModerator))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole("superuser"))
	assert.False(t, ValidRole(""))
}
