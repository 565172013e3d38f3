package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/tour-booking/internal/database"
)

func migrateCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		Long: `Apply the embedded schema.  Every statement is CREATE ... IF NOT EXISTS,
so running it against an up-to-date database changes nothing.

Examples:
  tourctl migrate
  tourctl migrate --sqlite ./dev.db
  tourctl migrate --print > schema.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				d := database.MySQL
				if sqlitePath != "" {
					d = database.SQLite
				}
				ddl, err := database.Schema(d)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), ddl)
				return nil
			}
			db, dialect, err := openDB()
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, dialect); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema applied\n", dialect)
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the DDL instead of applying it")
	return cmd
}
