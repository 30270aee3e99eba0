package api

import (
	"yamdb/internal/domain" // Importing domain models
)

// canModify is the object-level rule for reviews and comments:
// the author, any moderator and any admin may edit or delete.
func canModify(user *domain.User, authorID uint) bool {
	if user == nil {
		return false
	}
	return user.ID == authorID || user.IsModerator() || user.IsAdmin()
}
