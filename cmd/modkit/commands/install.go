package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/modkit/internal/app"
)

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("token", "", "Access token for the module source")
	cmd.Flags().Bool("insecure", false, "Disable TLS certificate verification")
}

func sourceOptions(cmd *cobra.Command) app.SourceOptions {
	token, _ := cmd.Flags().GetString("token")
	insecure, _ := cmd.Flags().GetBool("insecure")
	saveToken, _ := cmd.Flags().GetBool("save-token")
	return app.SourceOptions{Token: token, SaveToken: saveToken, Insecure: insecure}
}

// cancelled reports a declined confirmation, which is not a failure.
func cancelled(cmd *cobra.Command, err error) bool {
	if !app.IsCancelled(err) {
		return false
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
	return true
}

func (c *CLI) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <identifier>",
		Short: "Install or update a module",
		Long: `Install or update a module from GitHub or the module registry.

Identifiers:
  owner/repo, github.com/owner/repo, https://github.com/owner/repo
  wk://name, wk://vendor/name`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, _ := cmd.Flags().GetString("with-version")
			latest, _ := cmd.Flags().GetBool("latest")
			pre, _ := cmd.Flags().GetBool("pre-release")
			noBackup, _ := cmd.Flags().GetBool("no-backup")
			noHooks, _ := cmd.Flags().GetBool("no-hooks")
			noValidate, _ := cmd.Flags().GetBool("no-validate")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			yes, _ := cmd.Flags().GetBool("yes")

			res, err := c.app.Install(cmd.Context(), args[0], app.InstallOptions{
				SourceOptions: sourceOptions(cmd),
				Version:       version,
				Latest:        latest,
				PreRelease:    pre,
				NoBackup:      noBackup,
				NoHooks:       noHooks,
				NoValidate:    noValidate,
				DryRun:        dryRun,
				Yes:           yes,
			})
			if cancelled(cmd, err) {
				return nil
			}
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "Module installed", res)
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().Bool("save-token", false, "Save --token for the module owner")
	cmd.Flags().String("with-version", "", "Install this release tag")
	cmd.Flags().Bool("latest", false, "Install the newest release without asking")
	cmd.Flags().Bool("pre-release", false, "Include pre-releases")
	cmd.Flags().Bool("no-backup", false, "Do not back up the existing installation")
	cmd.Flags().Bool("no-hooks", false, "Do not run lifecycle hooks")
	cmd.Flags().Bool("no-validate", false, "Skip module validation")
	cmd.Flags().Bool("dry-run", false, "Report what would happen without changing anything")
	cmd.Flags().BoolP("yes", "y", false, "Accept every confirmation")
	return cmd
}

func (c *CLI) newUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall <identifier>",
		Short: "Remove an installed module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noBackup, _ := cmd.Flags().GetBool("no-backup")
			noHooks, _ := cmd.Flags().GetBool("no-hooks")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			yes, _ := cmd.Flags().GetBool("yes")

			res, err := c.app.Uninstall(cmd.Context(), args[0], app.UninstallOptions{
				NoBackup: noBackup,
				NoHooks:  noHooks,
				DryRun:   dryRun,
				Yes:      yes,
			})
			if cancelled(cmd, err) {
				return nil
			}
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "Module removed", res)
			return nil
		},
	}
	cmd.Flags().Bool("no-backup", false, "Do not back up the module before removal")
	cmd.Flags().Bool("no-hooks", false, "Do not run lifecycle hooks")
	cmd.Flags().Bool("dry-run", false, "Report what would happen without changing anything")
	cmd.Flags().BoolP("yes", "y", false, "Accept every confirmation")
	return cmd
}

func (c *CLI) newRollbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <identifier>",
		Short: "Restore a module from a backup snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backupPath, _ := cmd.Flags().GetString("backup")
			res, err := c.app.Rollback(cmd.Context(), args[0], backupPath)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), "Module restored", res)
			return nil
		},
	}
	cmd.Flags().String("backup", "", "Snapshot to restore (defaults to the newest)")
	return cmd
}

func (c *CLI) newReleasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "releases <identifier>",
		Short: "List the releases of a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pre, _ := cmd.Flags().GetBool("pre-release")
			releases, err := c.app.Releases(cmd.Context(), args[0], sourceOptions(cmd), pre)
			if cancelled(cmd, err) {
				return nil
			}
			if err != nil {
				return err
			}
			printReleases(cmd.OutOrStdout(), releases)
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().Bool("pre-release", false, "Include pre-releases")
	return cmd
}
