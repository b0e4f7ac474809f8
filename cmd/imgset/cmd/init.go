package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default imgset.yaml scaffold. Every optional key is
// shown with its default value.
const initTemplate = `# imgset configuration
version: 1

# Directory scanned for images, relative to this file.
source_dir: ./images

# Images to process (doublestar patterns, relative to source_dir).
include:
  - "**/*.{png,jpg,jpeg,gif,svg,webp}"
# exclude:
#   - "**/raw/**"

# Device pixel densities looked up next to each image (logo.png, logo@2x.png, ...).
scalings: [1, 2, 3]

# Modern formats derived from PNG and JPEG originals.
formats:
  avif: true
  webp: true

output:
  # Directory artifacts and modules are written to, relative to this file.
  dir: ./dist
  # Optional prefix for artifacts inside dir.
  # path: static/img
  # Public URL prefix; defaults to "/" plus the artifact path.
  # public_path: https://cdn.example.com/img
  # Placeholders: [name] [path] [hash] [ext] [scale]
  name: "[hash][scale].[ext]"

module:
  # ES module (export default) or CommonJS (module.exports).
  es_module: true
  # class_path: imgset/AdaptiveImage
  extension: .js

# cache_dir: ~/.cache/imgset
# concurrency: 4
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter imgset.yaml configuration",
	Long: `Creates an imgset.yaml file in the current directory with a commented template
listing every option and its default.

Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Point source_dir at your images")
		info("  2. Run 'imgset build' to write variants and modules")
		info("  3. Import the generated modules from your app")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
