package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/henriquecbuss/lintwatch/internal/clierr"
)

const fileMode = 0o600

// Sentinel errors.
var (
	ErrNotFound = errors.New("no lintwatch project found (run 'lintwatch init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents a project's watch-mode settings.
type Config struct {
	Version int `yaml:"version" json:"version"`

	// Manifest is the dependency manifest, relative to the project root.
	// A structural change to it restarts the whole watch generation.
	Manifest string `yaml:"manifest" json:"manifest"`
	// Readme is forwarded to the analysis engine on change; empty
	// disables the readme watch.
	Readme string `yaml:"readme,omitempty" json:"readme,omitempty"`
	// SourceDirs are the directories whose files feed the engine.
	SourceDirs []string `yaml:"source_dirs" json:"source_dirs"`
	// Extensions select source files within SourceDirs, e.g. ".elm".
	Extensions []string `yaml:"extensions" json:"extensions"`
	// ReviewDir is the lint configuration directory; any change to a file
	// in it restarts the generation. Empty disables the config watch.
	ReviewDir string `yaml:"review_dir,omitempty" json:"review_dir,omitempty"`
	// SuppressionDir holds the engine's suppressed-error files; empty
	// disables the suppression watch.
	SuppressionDir string `yaml:"suppression_dir,omitempty" json:"suppression_dir,omitempty"`
	// Ignore lists extra exclusion globs for the source watch.
	Ignore []string `yaml:"ignore,omitempty" json:"ignore,omitempty"`
	// Debounce is the quiescence window for suppression refreshes,
	// as a duration string.
	Debounce string `yaml:"debounce,omitempty" json:"debounce,omitempty"`
	// Command is the lint command argv run on each review request.
	Command []string `yaml:"command" json:"command"`
	// Report selects "human" or "json" run reports.
	Report string `yaml:"report,omitempty" json:"report,omitempty"`

	// dir is the absolute path to the project root (not serialized).
	dir string `yaml:"-" json:"-"`
}

// NewDefault creates a Config with default values.
func NewDefault() *Config {
	return &Config{
		Version:        CurrentVersion,
		Manifest:       DefaultManifest,
		Readme:         DefaultReadme,
		SourceDirs:     append([]string{}, DefaultSourceDirs...),
		Extensions:     append([]string{}, DefaultExtensions...),
		ReviewDir:      DefaultReviewDir,
		SuppressionDir: DefaultSuppressionDir,
		Debounce:       DefaultDebounce,
		Command:        append([]string{}, DefaultCommand...),
		Report:         DefaultReport,
	}
}

// Dir returns the absolute path to the project root.
func (c *Config) Dir() string { return c.dir }

// SetDir sets the project root path on the config.
func (c *Config) SetDir(dir string) { c.dir = dir }

// ConfigPath returns the absolute path to the settings file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, FileName)
}

// ManifestPath returns the absolute path to the manifest.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.dir, c.Manifest)
}

// ReadmePath returns the absolute readme path, or "" when disabled.
func (c *Config) ReadmePath() string {
	if c.Readme == "" {
		return ""
	}
	return filepath.Join(c.dir, c.Readme)
}

// SourcePaths returns the absolute source directories.
func (c *Config) SourcePaths() []string {
	paths := make([]string, len(c.SourceDirs))
	for i, d := range c.SourceDirs {
		paths[i] = filepath.Join(c.dir, d)
	}
	return paths
}

// ReviewPath returns the absolute lint configuration directory, or ""
// when disabled or absent on disk.
func (c *Config) ReviewPath() string {
	if c.ReviewDir == "" {
		return ""
	}
	path := filepath.Join(c.dir, c.ReviewDir)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// SuppressionPath returns the absolute suppression directory, or "" when
// disabled or absent on disk.
func (c *Config) SuppressionPath() string {
	if c.SuppressionDir == "" {
		return ""
	}
	path := filepath.Join(c.dir, c.SuppressionDir)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// SourcePatterns converts the configured extensions to glob patterns.
func (c *Config) SourcePatterns() []string {
	patterns := make([]string, len(c.Extensions))
	for i, ext := range c.Extensions {
		patterns[i] = "**/*" + ext
	}
	return patterns
}

// DebounceDuration parses the debounce setting. Returns 0 when empty or
// unparseable; the watch core substitutes its default.
func (c *Config) DebounceDuration() time.Duration {
	if c.Debounce == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.Manifest == "" {
		return fmt.Errorf("%w: manifest is required", ErrInvalid)
	}
	if len(c.SourceDirs) == 0 {
		return fmt.Errorf("%w: at least 1 source dir is required", ErrInvalid)
	}
	if hasDuplicates(c.SourceDirs) {
		return fmt.Errorf("%w: source_dirs contain duplicates", ErrInvalid)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("%w: extension %q must start with a dot", ErrInvalid, ext)
		}
	}
	if len(c.Command) == 0 {
		return fmt.Errorf("%w: command is required", ErrInvalid)
	}
	if c.Debounce != "" {
		if _, err := time.ParseDuration(c.Debounce); err != nil {
			return fmt.Errorf("%w: invalid debounce %q: %w", ErrInvalid, c.Debounce, err)
		}
	}
	if c.Report != "" && !contains(ReportFormats, c.Report) {
		return fmt.Errorf("%w: report must be one of %s", ErrInvalid, strings.Join(ReportFormats, ", "))
	}
	return nil
}

// Init writes a default settings file into dir.
func Init(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	if _, err := os.Stat(filepath.Join(absDir, FileName)); err == nil {
		return nil, clierr.New(clierr.ConfigExists,
			FileName+" already exists in "+absDir)
	}

	cfg := NewDefault()
	cfg.SetDir(absDir)

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to its settings file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads and validates the settings file in the given project root.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, FileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config: %w", ErrInvalid, err)
	}
	cfg.dir = absDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindDir walks upward from startDir looking for a settings file or,
// failing that, a default manifest. Returns the project root.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, DefaultManifest)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.ProjectNotFound,
				"no lintwatch project found (run 'lintwatch init' to create one)")
		}
		dir = parent
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func hasDuplicates(slice []string) bool {
	seen := make(map[string]bool, len(slice))
	for _, s := range slice {
		if seen[s] {
			return true
		}
		seen[s] = true
	}
	return false
}
