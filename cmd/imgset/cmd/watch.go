package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/bianoble/imgset/pkg/imgset"
)

var watchDryRun bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build, then rebuild whenever a source image changes",
	Long: `Runs a full build, then watches source_dir and rebuilds when files matching
the include patterns are created, changed or removed. Bursts of changes are
coalesced into one rebuild. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		report := func(result *imgset.BuildResult, err error) {
			info("[%s]", time.Now().Format(time.TimeOnly))
			if result != nil {
				if reportErr := reportBuild(result, watchDryRun); err == nil {
					err = reportErr
				}
			}
			if err != nil {
				errorf("%v", err)
			}
		}

		info("Watching for changes (Ctrl-C to stop)...")
		return client.Watch(cmd.Context(), imgset.BuildOptions{DryRun: watchDryRun}, report)
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "show what would change without writing files")
	rootCmd.AddCommand(watchCmd)
}
