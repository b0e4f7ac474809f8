package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bianoble/imgset/pkg/imgset"
)

// newClient creates a library client from the global flags.
func newClient() (*imgset.Client, error) {
	return imgset.New(imgset.Options{
		ConfigPath:   configPath,
		ManifestPath: manifestPath,
		CacheDir:     cacheDir,
		Concurrency:  concurrency,
		Logger:       logger,
	})
}

// reportBuild prints the outcome of a build and returns an error when any
// asset failed.
func reportBuild(result *imgset.BuildResult, dryRun bool) error {
	if dryRun {
		info("Dry run, no files written.")
	}

	for _, f := range result.Written {
		info("  %s  %s", f.Action, f.Path)
	}
	for _, f := range result.Skipped {
		detail("%s  %s", f.Action, f.Path)
	}
	for _, e := range result.Errors {
		errorf("%s: %s", e.Asset, e.Err)
	}

	info("")
	info("Build complete: %d asset(s), %d written, %d unchanged, %d errors.",
		len(result.Assets), len(result.Written), len(result.Skipped), len(result.Errors))

	if result.Failed() {
		return fmt.Errorf("%d asset(s) failed", len(result.Errors))
	}
	return nil
}

// verbose reports whether detail lines are shown.
func verbose() bool {
	return !quiet && logger != nil && logger.Enabled(context.Background(), slog.LevelInfo)
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only at info verbosity or below.
func detail(format string, args ...any) {
	if verbose() {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
