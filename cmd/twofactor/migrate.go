package main

import (
	"fmt"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/app"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withStore := func(fn func(cmd *cobra.Command, st app.MigratableStore) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			st, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			return fn(cmd, st)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, st app.MigratableStore) error {
			if err := st.ApplyMigrations(); err != nil {
				return err
			}
			return printVersion(cmd, st)
		}),
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, st app.MigratableStore) error {
			if err := st.MigrateDown(steps); err != nil {
				return err
			}
			return printVersion(cmd, st)
		}),
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back (0 rolls back all)")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE:  withStore(printVersion),
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(cmd *cobra.Command, st app.MigratableStore) error {
	v, dirty, err := st.MigrationVersion()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if dirty {
		_, err = fmt.Fprintf(out, "schema version %d (dirty)\n", v)
		return err
	}
	_, err = fmt.Fprintf(out, "schema version %d\n", v)
	return err
}
