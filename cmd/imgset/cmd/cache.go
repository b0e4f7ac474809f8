package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the conversion cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every cached conversion",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		dir, err := client.CleanCache()
		if err != nil {
			return err
		}
		info("Cleaned %s", dir)
		return nil
	},
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		result := client.Info(version)
		if result.CacheDir == "" {
			return fmt.Errorf("cache unavailable")
		}
		fmt.Println(result.CacheDir)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheCleanCmd, cacheDirCmd)
	rootCmd.AddCommand(cacheCmd)
}
