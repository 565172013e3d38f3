// tourctl is the operator tool: schema migration, catalog seeding, the
// booking.confirmed worker and signature debugging.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/database"
)

var Version = "dev"

// sqlitePath, when set, points every command at a local SQLite file
// instead of the MySQL database from DB_*.
var sqlitePath string

func main() {
	config.LoadDotEnv()

	rootCmd := &cobra.Command{
		Use:          "tourctl",
		Short:        "Operate the tour booking service",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite", "", "use a local SQLite file instead of MySQL")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(signCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB() (*sql.DB, database.Dialect, error) {
	if sqlitePath != "" {
		db, err := database.OpenSQLite(sqlitePath)
		return db, database.SQLite, err
	}
	c := config.LoadDatabase()
	db, err := database.Open(c.User, c.Pass, c.Host, c.Port, c.Name)
	return db, database.MySQL, err
}
