// Package config loads the build configuration of a literate book.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/agentflare-ai/mdbook-lit/internal/literate"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "litbook.yaml"

// BookDir is the directory created under $OUT_DIR for build-script builds.
const BookDir = "rust-book"

// Config holds the settings of a book build.
type Config struct {
	// SourceDir is the directory holding the chapter sources.
	SourceDir string `yaml:"source_dir"`
	// OutDir receives one Markdown page per chapter source.
	OutDir string `yaml:"out_dir"`
	// Root is the entry file of a Rust book, relative to SourceDir.
	Root string `yaml:"root"`
	// Recursive follows nested modules (Rust) or packages (Go).
	Recursive bool `yaml:"recursive"`
	Jobs      int  `yaml:"jobs"`
	// Summary writes SUMMARY.md listing every rendered page.
	Summary bool `yaml:"summary"`

	Fence   FenceConfig   `yaml:"fence"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// FenceConfig configures the code fences of rendered pages.
type FenceConfig struct {
	// Lang overrides the front-end's info string when set.
	Lang     string `yaml:"lang"`
	NoVerify bool   `yaml:"no_verify"`
}

// WatchConfig configures `build --watch`.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Root:      "lib.rs",
		Recursive: true,
		Jobs:      runtime.GOMAXPROCS(0),
		Summary:   true,
		Watch:     WatchConfig{Debounce: "200ms"},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv fills unset directories the way a Cargo build script sees them:
// sources under $CARGO_MANIFEST_DIR/src and pages under $OUT_DIR/rust-book.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.SourceDir == "" {
		if dir := getenv("CARGO_MANIFEST_DIR"); dir != "" {
			c.SourceDir = filepath.Join(dir, "src")
		}
	}
	if c.OutDir == "" {
		if dir := getenv("OUT_DIR"); dir != "" {
			c.OutDir = filepath.Join(dir, BookDir)
		}
	}
}

// Validate checks that a build can run with c.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return &literate.Error{
			Kind: literate.KindEnvironment,
			Err:  errors.New("source directory not configured (set --src, source_dir or CARGO_MANIFEST_DIR)"),
		}
	}
	if c.OutDir == "" {
		return &literate.Error{
			Kind: literate.KindEnvironment,
			Err:  errors.New("output directory not configured (set --out, out_dir or OUT_DIR)"),
		}
	}
	if c.Jobs < 0 {
		return fmt.Errorf("invalid jobs: %d", c.Jobs)
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// DebounceDuration parses Watch.Debounce. An empty value means 200ms.
func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Watch.Debounce == "" {
		return 200 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid watch debounce %q: %w", c.Watch.Debounce, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid watch debounce %q: must be positive", c.Watch.Debounce)
	}
	return d, nil
}

// Level parses Logging.Level. An empty value means info.
func (c *Config) Level() (zapcore.Level, error) {
	if c.Logging.Level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return 0, fmt.Errorf("invalid log level: %w", err)
	}
	return lvl, nil
}
