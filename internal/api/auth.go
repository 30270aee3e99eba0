package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"time"     // Token lifetime

	"yamdb/internal/domain"  // Importing domain models
	"yamdb/internal/mail"    // Confirmation mail
	"yamdb/internal/metrics" // Prometheus collectors
	"yamdb/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Confirmation codes
	"github.com/sirupsen/logrus" // Logrus for structured logging
	"golang.org/x/crypto/bcrypt" // Code hashing
	"gorm.io/gorm"               // GORM ORM library
)

// SignupRequest asks for a confirmation code
type SignupRequest struct {
	Username string `json:"username" binding:"required,max=150,username,notme"` // Desired username
	Email    string `json:"email" binding:"required,max=254,email"`             // Address the code is sent to
}

// TokenRequest exchanges a confirmation code for an access token
type TokenRequest struct {
	Username         string `json:"username" binding:"required"`          // Registered username
	ConfirmationCode string `json:"confirmation_code" binding:"required"` // Code from the signup email
}

// TokenResponse carries the access token
type TokenResponse struct {
	Token string `json:"token"` // JWT token
}

// hashCode stores confirmation codes the way passwords are stored
var hashCode = func(code string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	return string(b), err
}

// SignupHandler creates or fetches the account and emails a fresh confirmation code
func SignupHandler(db *gorm.DB, sender mail.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBinding(c, err)
			return
		}
		tx := db.WithContext(c.Request.Context())

		// The pair must either be new on both halves or match an existing account exactly
		var byName, byEmail domain.User
		nameErr := tx.Where("username = ?", req.Username).First(&byName).Error
		if nameErr != nil && !errors.Is(nameErr, gorm.ErrRecordNotFound) {
			abortInternal(c, "Failed to look up user", nameErr)
			return
		}
		emailErr := tx.Where("email = ?", req.Email).First(&byEmail).Error
		if emailErr != nil && !errors.Is(emailErr, gorm.ErrRecordNotFound) {
			abortInternal(c, "Failed to look up user", emailErr)
			return
		}
		nameTaken := nameErr == nil
		emailTaken := emailErr == nil
		if nameTaken && byName.Email != req.Email {
			abortValidation(c, FieldErrors{"username": "A user with that username is registered with a different email."})
			return
		}
		if emailTaken && byEmail.Username != req.Username {
			abortValidation(c, FieldErrors{"email": "A user with that email is registered with a different username."})
			return
		}

		code := uuid.NewString() // Opaque one-time code
		hash, err := hashCode(code)
		if err != nil {
			abortInternal(c, "Failed to generate confirmation code", err)
			return
		}

		user := byName
		if nameTaken {
			// Existing account: replace any pending code
			if err := tx.Model(&user).Update("confirmation_code", hash).Error; err != nil {
				abortInternal(c, "Failed to store confirmation code", err)
				return
			}
		} else {
			user = domain.User{Username: req.Username, Email: req.Email, Role: domain.RoleUser, ConfirmationCode: hash}
			if err := tx.Create(&user).Error; err != nil {
				// A concurrent signup won the race for one of the unique columns
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					abortValidation(c, FieldErrors{"username": "A user with that username or email already exists."})
					return
				}
				abortInternal(c, "Failed to create user", err)
				return
			}
		}

		subject, body := mail.ConfirmationMessage(user.Username, code)
		if err := sender.Send(c.Request.Context(), user.Email, subject, body); err != nil {
			abortInternal(c, "Failed to send confirmation code", err)
			return
		}
		metrics.SignupsTotal.Inc()
		logrus.WithFields(logrus.Fields{
			"user_id":  user.ID,       // User ID
			"username": user.Username, // Username
			"created":  !nameTaken,    // New account or repeated signup
		}).Info("Confirmation code sent")

		c.JSON(http.StatusOK, SignupRequest{Username: user.Username, Email: user.Email})
	}
}

// TokenHandler consumes a confirmation code and returns an access token
func TokenHandler(db *gorm.DB, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			abortBinding(c, err)
			return
		}
		tx := db.WithContext(c.Request.Context())

		var user domain.User // Fetch user from database
		if err := tx.Where("username = ?", req.Username).First(&user).Error; err != nil {
			abortLookup(c, err, "User")
			return
		}
		if user.ConfirmationCode == "" ||
			bcrypt.CompareHashAndPassword([]byte(user.ConfirmationCode), []byte(req.ConfirmationCode)) != nil {
			abortValidation(c, FieldErrors{"confirmation_code": "Invalid confirmation code."})
			return
		}
		// Consume the code; the hash guard makes a concurrent second exchange fail
		res := tx.Model(&domain.User{}).
			Where("id = ? AND confirmation_code = ?", user.ID, user.ConfirmationCode).
			Update("confirmation_code", "")
		if res.Error != nil {
			abortInternal(c, "Failed to consume confirmation code", res.Error)
			return
		}
		if res.RowsAffected == 0 {
			abortValidation(c, FieldErrors{"confirmation_code": "Invalid confirmation code."})
			return
		}

		token, err := utils.GenerateJWT(user.ID, jwtSecret, ttl)
		if err != nil {
			abortInternal(c, "Failed to generate token", err)
			return
		}
		metrics.TokensIssued.Inc()
		logrus.WithField("user_id", user.ID).Info("Access token issued")
		c.JSON(http.StatusCreated, TokenResponse{Token: token})
	}
}
