package main

import (
	"fmt" // Error output
	"os"  // Exit codes

	"yamdb/internal/config" // Custom package for configuration
	"yamdb/internal/db"     // Custom package for the database connection

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"github.com/spf13/cobra"     // CLI framework
	"gorm.io/gorm"               // GORM ORM library
)

var (
	// Global flags, falling back to the environment
	dbDriver string
	dbDSN    string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "yamdbctl",
	Short: "Administrative tasks for the yamdb API",
	Long: `yamdbctl manages the yamdb database outside the HTTP API.

Connection settings are read from the same environment variables (and .env file)
as the server; --driver and --dsn override them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "Database driver: mysql, postgres or sqlite (default from DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "dsn", "", "Database DSN (default assembled from DB_* variables)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log SQL statements")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
}

// openDB connects using the flags, then the environment
func openDB() (*gorm.DB, error) {
	cfg := config.LoadConfig()
	if dbDriver != "" {
		cfg.DBDriver = config.NormalizeDriver(dbDriver)
	}
	if dbDSN != "" {
		cfg.DBDSN = dbDSN
	}
	return db.Open(cfg.DBDriver, cfg.DSN(), verbose)
}
