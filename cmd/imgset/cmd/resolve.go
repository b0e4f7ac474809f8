package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <file>",
	Short: "Show the variants and descriptor of one image",
	Long: `Resolves a single image the way build would and prints its variants and the
descriptor its module would export. Conversions go through the cache, but
nothing is written to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		ar, err := client.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if resolveJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ar.Descriptor)
		}

		fmt.Printf("%s\n", ar.Source)
		fmt.Printf("  size:    %gx%g\n", ar.Descriptor.Width, ar.Descriptor.Height)
		fmt.Printf("  module:  %s\n", ar.Module.Path)
		fmt.Println("\nVariants:")
		for _, a := range ar.Artifacts {
			fmt.Printf("  %dx  %-11s %8s  %s\n", a.Scale, a.MimeType, humanSize(int64(a.Size)), a.URL)
		}
		fmt.Println("\nSources:")
		for _, s := range ar.Descriptor.Sources {
			fmt.Printf("  %-11s %s\n", s.Type, s.SrcSet)
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print the descriptor as JSON")
	rootCmd.AddCommand(resolveCmd)
}
