package domain

import (
	"errors" // Sentinel errors
	"fmt"    // Error wrapping

	"gorm.io/gorm" // GORM ORM library
)

// Roles a user can hold
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// ErrInvalidRole is returned when a user is saved with an unknown role
var ErrInvalidRole = errors.New("invalid role")

// ReservedUsername is the path segment of the self-service endpoint and cannot be registered
const ReservedUsername = "me"

// User Model
type User struct {
	ID               uint   `gorm:"primaryKey"`                    // Primary key
	Username         string `gorm:"size:150;uniqueIndex;not null"` // Unique username
	Email            string `gorm:"size:254;uniqueIndex;not null"` // Unique email
	Role             string `gorm:"size:20;not null;default:user"` // Role: user, moderator or admin
	Bio              string `gorm:"type:text"`                     // Free text biography
	FirstName        string `gorm:"size:150"`                      // First name
	LastName         string `gorm:"size:150"`                      // Last name
	ConfirmationCode string `gorm:"size:255"`                      // bcrypt hash of the pending code, empty once consumed
	IsStaff          bool   `gorm:"not null;default:false"`        // Mirrors the admin role
	IsSuperuser      bool   `gorm:"not null;default:false"`        // Set by the admin CLI only
}

// IsAdmin reports whether the user may administer the platform
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsSuperuser
}

// IsModerator reports whether the user moderates reviews and comments
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// BeforeSave rejects unknown roles and keeps staff privileges in step with the role
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if !ValidRole(u.Role) {
		return fmt.Errorf("%w %q", ErrInvalidRole, u.Role)
	}
	u.IsStaff = u.Role == RoleAdmin || u.IsSuperuser
	return nil
}

// BeforeDelete removes everything the user authored
func (u *User) BeforeDelete(tx *gorm.DB) error {
	// Comments left on the user's reviews die with those reviews
	if err := tx.Where("review_id IN (SELECT id FROM reviews WHERE author_id = ?)", u.ID).Delete(&Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("author_id = ?", u.ID).Delete(&Comment{}).Error; err != nil {
		return err
	}
	return tx.Where("author_id = ?", u.ID).Delete(&Review{}).Error
}
