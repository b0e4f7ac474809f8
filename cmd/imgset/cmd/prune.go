package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/imgset/pkg/imgset"
)

var pruneDryRun bool

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove artifacts the latest build no longer produces",
	Long: `Deletes files an earlier build wrote into the output directory that the latest
build no longer produces. The build manifest records which files imgset owns,
so files written by anything else are never touched. Run it after 'build'.

Use --dry-run to list the stale files without deleting them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		result, err := client.Prune(cmd.Context(), imgset.PruneOptions{DryRun: pruneDryRun})
		if err != nil {
			return err
		}

		switch {
		case len(result.Removed) == 0 && len(result.Errors) == 0:
			info("No stale artifacts.")
			return nil
		case pruneDryRun:
			info("Stale artifacts (dry run, nothing removed):")
		}

		for _, f := range result.Removed {
			info("  %-8s %s", f.Action, f.Path)
		}
		for _, e := range result.Errors {
			errorf("%s: %s", e.Asset, e.Err)
		}
		if !pruneDryRun {
			info("\n%d stale artifact(s) pruned, %d still tracked.", len(result.Removed), len(result.Kept))
		}

		if n := len(result.Errors); n > 0 {
			return fmt.Errorf("could not remove %d stale artifact(s)", n)
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "list stale artifacts without removing them")
	rootCmd.AddCommand(pruneCmd)
}
