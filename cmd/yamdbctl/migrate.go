package main

import (
	"yamdb/internal/db" // Custom package for the database connection

	"github.com/spf13/cobra" // CLI framework
)

// migrateCmd creates or updates every table
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Create or update the tables, indexes and constraints used by the API.

Examples:
  yamdbctl migrate                                  # Use DB_* from the environment
  yamdbctl migrate --driver sqlite --dsn yamdb.db   # Local SQLite file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := openDB()
		if err != nil {
			return err
		}
		return db.Migrate(gdb)
	},
}
