package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/app"
	"github.com/aussiebroadwan/twofactor/internal/twofactor/service"
	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/spf13/cobra"
)

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local accounts",
	}

	var (
		password      string
		passwordStdin bool
	)
	add := &cobra.Command{
		Use:   "add <email>",
		Short: "Create a local account for the password login",
		Example: `  twofactor user add alice@example.com --password-stdin < password.txt
  twofactor user add bob@example.com --password 'correct horse battery'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				var err error
				if password, err = readPassword(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if password == "" {
				return errors.New("a password is required: use --password or --password-stdin")
			}

			cfg, err := c.config()
			if err != nil {
				return err
			}
			st, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.ApplyMigrations(); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}

			pepper, err := app.LoadPepper(cfg)
			if err != nil {
				return err
			}
			users := &service.UserService{Store: st, Hasher: cryptox.PasswordHasher{Pepper: pepper}}

			u, err := users.CreateUser(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", u.ID, u.Email)
			return err
		},
	}
	add.Flags().StringVar(&password, "password", "", "account password (visible in the process list)")
	add.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	add.MarkFlagsMutuallyExclusive("password", "password-stdin")

	cmd.AddCommand(add)
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
