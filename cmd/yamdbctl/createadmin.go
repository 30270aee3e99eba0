package main

import (
	"errors"  // Error matching
	"fmt"     // Output formatting
	"strings" // Input normalisation

	"yamdb/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"github.com/spf13/cobra"     // CLI framework
	"gorm.io/gorm"               // GORM ORM library
)

var (
	// createadmin flags
	adminUsername string
	adminEmail    string
)

// createAdminCmd creates a superuser or promotes an existing account
var createAdminCmd = &cobra.Command{
	Use:   "createadmin",
	Short: "Create an admin account or promote an existing one",
	Long: `Create a superuser with the admin role. If the username already exists the
account is promoted instead; its email must match.

The new admin obtains a token through the normal signup and token endpoints.

Examples:
  yamdbctl createadmin --username root --email root@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := openDB()
		if err != nil {
			return err
		}
		user, created, err := createAdmin(gdb, adminUsername, adminEmail)
		if err != nil {
			return err
		}
		verb := "Promoted"
		if created {
			verb = "Created"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s admin %s <%s>\n", verb, user.Username, user.Email)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "Admin username (required)")
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email (required)")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("email")
}

// createAdmin inserts or promotes the account and reports whether it was created
func createAdmin(gdb *gorm.DB, username, email string) (*domain.User, bool, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, false, errors.New("username and email are required")
	}
	if username == domain.ReservedUsername {
		return nil, false, fmt.Errorf("username %q is reserved", username)
	}

	var user domain.User
	created := false
	err := gdb.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("username = ?", username).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = domain.User{Username: username, Email: email}
			created = true
		case err != nil:
			return err
		case user.Email != email:
			return fmt.Errorf("user %q exists with a different email", username)
		}
		user.Role = domain.RoleAdmin
		user.IsSuperuser = true
		// Save runs BeforeSave, which grants IsStaff
		return tx.Save(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, fmt.Errorf("email %q belongs to another user", email)
		}
		return nil, false, err
	}
	logrus.WithFields(logrus.Fields{
		"username": user.Username, // Admin username
		"created":  created,       // New account or promotion
	}).Info("Admin account ready")
	return &user, created, nil
}
