package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/imgset/pkg/imgset"
)

var (
	buildDryRun   bool
	buildFailFast bool
)

var buildCmd = &cobra.Command{
	Use:   "build [asset...]",
	Short: "Build variant sets and modules for every image",
	Long: `Discovers the images matched by the include patterns, resolves their density
and format variants, writes the artifacts and one module per image into the
output directory, and records everything in the build manifest.

Pass asset paths relative to source_dir to rebuild only those images; the
manifest keeps the entries of every other asset. A failing image does not stop
the others unless --fail-fast is set, but the command exits non-zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		result, err := client.Build(cmd.Context(), imgset.BuildOptions{
			DryRun:   buildDryRun,
			FailFast: buildFailFast,
			Only:     args,
		})
		if result == nil {
			return err
		}
		if reportErr := reportBuild(result, buildDryRun); err == nil {
			err = reportErr
		}
		return err
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "show what would change without writing files")
	buildCmd.Flags().BoolVar(&buildFailFast, "fail-fast", false, "stop at the first failing image")
	rootCmd.AddCommand(buildCmd)
}
