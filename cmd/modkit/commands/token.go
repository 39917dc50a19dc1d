package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage stored access tokens",
		Long: `Manage stored access tokens.

Tokens are stored encrypted, per GitHub owner. Use "registry" as the owner
for the module registry token.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <owner> <token>",
		Short: "Store a token for an owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.app.SaveToken(args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "forget <owner>",
		Short: "Remove the stored token for an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.app.ForgetToken(args[0])
		},
	})
	return cmd
}
