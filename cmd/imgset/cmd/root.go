package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bianoble/imgset/internal/config"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath   string
	manifestPath string
	cacheDir     string
	verbosity    string
	concurrency  int
	quiet        bool
	noColor      bool
)

// settings layers IMGSET_* environment variables over the global flags.
var settings = viper.New()

// logger receives library diagnostics. Commands run without the root
// pre-run hook (as in tests) leave it nil, which discards them.
var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:   "imgset",
	Short: "Density and format variant sets for web images",
	Long: `imgset turns source images into responsive image sets. For every image it
collects the @2x/@3x density siblings, derives AVIF and WebP versions of PNG
and JPEG originals, writes the artifacts with content-hashed names and
generates a small module exporting an AdaptiveImage descriptor.

Conversions are cached by content, so rebuilding unchanged images is cheap.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("imgset %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", config.FileName, "path to config file")
	pf.StringVar(&manifestPath, "manifest", "", "path to build manifest (default .imgset/manifest.yaml next to the config)")
	pf.StringVar(&cacheDir, "cache-dir", "", "conversion cache directory (overrides cache_dir)")
	pf.StringVarP(&verbosity, "verbosity", "v", "warn", "log level (debug, info, warn, error)")
	pf.IntVar(&concurrency, "concurrency", 0, "assets built in parallel (0 uses the config or the CPU count)")
	pf.BoolVar(&quiet, "quiet", false, "minimal output (errors only)")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")

	settings.SetEnvPrefix("IMGSET")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	if err := settings.BindPFlags(pf); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadSettings resolves flag > environment > default for the global flags,
// locates the config file and sets up logging.
func loadSettings(cmd *cobra.Command, args []string) error {
	configPath = settings.GetString("config")
	manifestPath = settings.GetString("manifest")
	cacheDir = settings.GetString("cache-dir")
	verbosity = settings.GetString("verbosity")
	concurrency = settings.GetInt("concurrency")
	quiet = settings.GetBool("quiet")
	noColor = settings.GetBool("no-color") || os.Getenv("NO_COLOR") != ""

	level, err := log.ParseLevel(verbosity)
	if err != nil {
		return fmt.Errorf("invalid verbosity %q: %w", verbosity, err)
	}
	logger = newLogger(level)

	// Without an explicit config, look for one in the parent directories.
	if cmd != initCmd && !settings.IsSet("config") {
		if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
			if found, err := config.Discover("."); err == nil {
				logger.Debug("using discovered config", "path", found)
				configPath = found
			}
		}
	}
	return nil
}

func newLogger(level log.Level) *slog.Logger {
	opts := log.Options{
		Prefix: "imgset",
		Level:  level,
	}
	if noColor {
		opts.Formatter = log.LogfmtFormatter
	}
	return slog.New(log.NewWithOptions(os.Stderr, opts))
}

// Execute runs the root command. An interrupt cancels the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
