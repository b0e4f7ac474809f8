package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about imgset configuration and cache",
	Long: `Displays the imgset version, configuration and manifest paths, source and output
directories, enabled formats and scalings, and the conversion cache location
and size.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		result := client.Info(version)

		fmt.Printf("imgset %s\n", result.Version)
		fmt.Printf("  config:        %s\n", result.ConfigPath)
		fmt.Printf("  manifest:      %s\n", result.ManifestPath)
		if result.SourceDir != "" {
			fmt.Printf("  source dir:    %s\n", result.SourceDir)
			fmt.Printf("  output dir:    %s\n", result.OutputDir)

			names := make([]string, len(result.Formats))
			for i, f := range result.Formats {
				names[i] = f.Name
			}
			if len(names) == 0 {
				names = []string{"none"}
			}
			fmt.Printf("  formats:       %s\n", strings.Join(names, ", "))

			scales := make([]string, len(result.Scalings))
			for i, s := range result.Scalings {
				scales[i] = strconv.Itoa(s) + "x"
			}
			fmt.Printf("  scalings:      %s\n", strings.Join(scales, ", "))
		} else {
			fmt.Println("  (config not loaded)")
		}

		if result.CacheDir != "" {
			fmt.Printf("  cache dir:     %s\n", result.CacheDir)
			if result.CacheErr != nil {
				fmt.Printf("  cache size:    unknown (%v)\n", result.CacheErr)
			} else {
				fmt.Printf("  cache size:    %s in %d entries\n", humanSize(result.CacheSize), result.CacheEntries)
			}
		} else {
			fmt.Println("  cache:         unavailable")
		}

		fmt.Printf("  assets:        %d (%d stale files)\n", result.Assets, result.Stale)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
