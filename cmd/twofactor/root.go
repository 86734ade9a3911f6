package main

import (
	"github.com/aussiebroadwan/twofactor/internal/twofactor/app"
	"github.com/spf13/cobra"
)

type cli struct {
	envFiles []string
}

func (c *cli) config() (app.Config, error) {
	return app.LoadConfig(c.envFiles...)
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "twofactor",
		Short:         "Two-factor authentication service",
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", nil, "load environment from these files (default ./.env when present)")

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newUserCmd(c),
		newKeygenCmd(),
	)
	return root
}
