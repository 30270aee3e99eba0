package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"yamdb/internal/domain"     // Importing domain models
	"yamdb/internal/metrics"    // Prometheus collectors
	"yamdb/internal/middleware" // Current user lookup

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// UserResponse is the public representation of a user
type UserResponse struct {
	Username  string `json:"username"`   // Username
	Email     string `json:"email"`      // Email
	FirstName string `json:"first_name"` // First name
	LastName  string `json:"last_name"`  // Last name
	Bio       string `json:"bio"`        // Biography
	Role      string `json:"role"`       // User role
}

// CreateUserRequest is an admin-created account
type CreateUserRequest struct {
	Username  string `json:"username" binding:"required,max=150,username,notme"`
	Email     string `json:"email" binding:"required,max=254,email"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
	Bio       string `json:"bio"`
	Role      string `json:"role" binding:"omitempty,oneof=user moderator admin"`
}

// UpdateUserRequest is a partial update; nil fields are left unchanged
type UpdateUserRequest struct {
	Username  *string `json:"username" binding:"omitempty,min=1,max=150,username,notme"`
	Email     *string `json:"email" binding:"omitempty,max=254,email"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role" binding:"omitempty,oneof=user moderator admin"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      u.Role,
	}
}

// checkUserUnique reports which of username/email already belong to another account
func checkUserUnique(db *gorm.DB, username, email string, excludeID uint) (FieldErrors, error) {
	fields := FieldErrors{}
	var count int64
	if username != "" {
		if err := db.Model(&domain.User{}).Where("username = ? AND id <> ?", username, excludeID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			fields["username"] = "A user with that username already exists."
		}
	}
	if email != "" {
		if err := db.Model(&domain.User{}).Where("email = ? AND id <> ?", email, excludeID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			fields["email"] = "A user with that email already exists."
		}
	}
	return fields, nil
}

// ListUsersHandler returns users, optionally filtered by a username substring
func ListUsersHandler(db *gorm.DB, pageSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := parsePagination(c, pageSize)
		query := db.WithContext(c.Request.Context()).Model(&domain.User{})
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			query = whereContains(query, "username", search)
		}
		var total int64
		if err := query.Count(&total).Error; err != nil {
			abortInternal(c, "Failed to count users", err)
			return
		}
		var users []domain.User
		if err := query.Order("id").Offset(p.Offset).Limit(p.Limit).Find(&users).Error; err != nil {
			abortInternal(c, "Failed to fetch users", err)
			return
		}
		resp := make([]UserResponse, len(users))
		for i := range users {
			resp[i] = newUserResponse(&users[i])
		}
		c.JSON(http.StatusOK, newPage(c, p, total, resp))
	}
}

// CreateUserHandler lets an admin create an account with any role
func CreateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBinding(c, err)
			return
		}
		tx := db.WithContext(c.Request.Context())
		fields, err := checkUserUnique(tx, req.Username, req.Email, 0)
		if err != nil {
			abortInternal(c, "Failed to check user", err)
			return
		}
		if len(fields) > 0 {
			abortValidation(c, fields)
			return
		}
		user := domain.User{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Bio:       req.Bio,
			Role:      req.Role,
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				abortValidation(c, FieldErrors{"username": "A user with that username or email already exists."})
				return
			}
			abortInternal(c, "Failed to create user", err)
			return
		}
		metrics.EntityWrites.WithLabelValues("user", "create").Inc()
		c.JSON(http.StatusCreated, newUserResponse(&user))
	}
}

// GetUserHandler returns a user by username
func GetUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user domain.User
		if err := db.WithContext(c.Request.Context()).Where("username = ?", c.Param("username")).First(&user).Error; err != nil {
			abortLookup(c, err, "User")
			return
		}
		c.JSON(http.StatusOK, newUserResponse(&user))
	}
}

// UpdateUserHandler lets an admin edit any field of a user, role included
func UpdateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user domain.User
		if err := db.WithContext(c.Request.Context()).Where("username = ?", c.Param("username")).First(&user).Error; err != nil {
			abortLookup(c, err, "User")
			return
		}
		updateUser(c, db, &user, true)
	}
}

// DeleteUserHandler removes a user together with their reviews and comments
func DeleteUserHandler(db *gorm.DB, onDelete func(c *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx := db.WithContext(c.Request.Context())
		var user domain.User
		if err := tx.Where("username = ?", c.Param("username")).First(&user).Error; err != nil {
			abortLookup(c, err, "User")
			return
		}
		if err := tx.Delete(&user).Error; err != nil {
			abortInternal(c, "Failed to delete user", err)
			return
		}
		metrics.EntityWrites.WithLabelValues("user", "delete").Inc()
		logrus.WithField("username", user.Username).Info("User deleted")
		if onDelete != nil {
			onDelete(c) // Ratings may have changed
		}
		c.Status(http.StatusNoContent)
	}
}

// MeHandler returns the authenticated user's own record
func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}
		c.JSON(http.StatusOK, newUserResponse(user))
	}
}

// UpdateMeHandler edits the authenticated user's own record; role stays read-only
func UpdateMeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}
		updateUser(c, db, user, false)
	}
}

// updateUser applies a partial update; role is honoured only when allowRole is set
func updateUser(c *gin.Context, db *gorm.DB, user *domain.User, allowRole bool) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBinding(c, err)
		return
	}
	tx := db.WithContext(c.Request.Context())

	var username, email string
	if req.Username != nil && *req.Username != user.Username {
		username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		email = *req.Email
	}
	fields, err := checkUserUnique(tx, username, email, user.ID)
	if err != nil {
		abortInternal(c, "Failed to check user", err)
		return
	}
	if len(fields) > 0 {
		abortValidation(c, fields)
		return
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	previousRole := user.Role
	if allowRole && req.Role != nil {
		user.Role = *req.Role
	}
	// Save runs BeforeSave, which keeps IsStaff in step with the role
	if err := tx.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			abortValidation(c, FieldErrors{"username": "A user with that username or email already exists."})
			return
		}
		abortInternal(c, "Failed to update user", err)
		return
	}
	if user.Role != previousRole {
		logrus.WithFields(logrus.Fields{
			"username": user.Username, // Target user
			"from":     previousRole,  // Previous role
			"to":       user.Role,     // New role
		}).Info("User role changed")
	}
	metrics.EntityWrites.WithLabelValues("user", "update").Inc()
	c.JSON(http.StatusOK, newUserResponse(user))
}
