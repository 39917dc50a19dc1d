package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/modkit/internal/app"
)

func (c *CLI) newBackupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Inspect and prune module backups",
	}
	cmd.AddCommand(c.newBackupsListCmd())
	cmd.AddCommand(c.newBackupsCleanCmd())
	return cmd
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (c *CLI) newBackupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [identifier]",
		Short: "List backup snapshots, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshots, err := c.app.Backups(optionalArg(args))
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No backups found")
				return nil
			}
			printSnapshots(cmd.OutOrStdout(), snapshots)
			return nil
		},
	}
}

func (c *CLI) newBackupsCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [identifier]",
		Short: "Remove old and expired backup snapshots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keep, _ := cmd.Flags().GetInt("keep")
			hours, _ := cmd.Flags().GetInt("older-than")
			if keep == 0 && hours == 0 {
				_ = cmd.Help()
				return nil
			}

			removed, err := c.app.CleanBackups(optionalArg(args), app.CleanOptions{
				Keep:      keep,
				OlderThan: time.Duration(hours) * time.Hour,
			})
			for _, p := range removed {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "removed "+p)
			}
			return err
		},
	}
	cmd.Flags().Int("keep", 0, "Keep this many snapshots per module")
	cmd.Flags().Int("older-than", 0, "Remove snapshots older than this many hours")
	return cmd
}
