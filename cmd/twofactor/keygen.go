package main

import (
	"fmt"
	"os"

	"github.com/aussiebroadwan/twofactor/pkg/cryptox"
	"github.com/aussiebroadwan/twofactor/pkg/jwtx"
	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	var (
		out    string
		master bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an assertion signing key or a master key",
		Long: `Generate an Ed25519 assertion signing key (PKCS8 PEM) or, with --master,
a random master key for sealing secrets. Existing files are never
overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				data []byte
				err  error
			)
			if master {
				data, err = cryptox.NewRandomKey(32)()
			} else {
				data, err = cryptox.GenerateEd25519PEM()
			}
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
			if err != nil {
				return err
			}
			if _, err := f.Write(data); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			if master {
				_, err = fmt.Fprintf(cmd.ErrOrStderr(), "wrote master key to %s\n", out)
				return err
			}
			signer, err := jwtx.NewSignerFromPEM(data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s key %s to %s\n", signer.Alg(), signer.KID(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&master, "master", false, "generate a master key instead of a signing key")
	return cmd
}
