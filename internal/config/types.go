package config

import (
	"github.com/bianoble/imgset/internal/emit"
	"github.com/bianoble/imgset/internal/format"
)

// Config represents the imgset.yaml configuration file.
// Relative paths are resolved against the directory holding the file.
type Config struct {
	Version   int            `yaml:"version"`
	SourceDir string         `yaml:"source_dir"`
	Include   []string       `yaml:"include,omitempty"`
	Exclude   []string       `yaml:"exclude,omitempty"`
	Scalings  []int          `yaml:"scalings,omitempty"`
	Formats   format.Enabled `yaml:"formats"`
	Output    Output         `yaml:"output"`
	Module    Module         `yaml:"module"`
	// CacheDir overrides the default conversion cache location.
	CacheDir    string `yaml:"cache_dir,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
}

// Output controls where artifacts are written and how they are referenced.
type Output struct {
	Dir        string `yaml:"dir"`
	Path       string `yaml:"path,omitempty"`
	PublicPath string `yaml:"public_path,omitempty"`
	Name       string `yaml:"name,omitempty"`
}

// Module controls the generated wrapper modules.
type Module struct {
	ESModule  bool   `yaml:"es_module"`
	ClassPath string `yaml:"class_path,omitempty"`
	Extension string `yaml:"extension,omitempty"`
}

// DefaultInclude matches every image type imgset understands by default.
const DefaultInclude = "**/*.{png,jpg,jpeg,gif,svg,webp}"

// Default returns a Config with every optional field set to its default.
// Load decodes on top of it, so absent keys keep these values.
func Default() *Config {
	return &Config{
		Version:   1,
		SourceDir: ".",
		Include:   []string{DefaultInclude},
		Scalings:  []int{1, 2, 3},
		Formats:   format.AllEnabled(),
		Output: Output{
			Dir:  "dist",
			Name: emit.DefaultName,
		},
		Module: Module{
			ESModule:  true,
			Extension: ".js",
		},
	}
}
