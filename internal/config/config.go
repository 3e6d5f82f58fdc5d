// Package config provides configuration management for typesync.
// It supports a per-project YAML file, environment variables, and sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/klauern/typesync/internal/backup"
	"github.com/klauern/typesync/internal/mirror"
	"github.com/klauern/typesync/internal/proxy"
	"github.com/klauern/typesync/internal/upstream"
)

// Config represents the complete typesync configuration.
type Config struct {
	// Upstream configures where the types tree comes from
	Upstream UpstreamConfig `yaml:"upstream"`

	// Package configures the destination package
	Package PackageConfig `yaml:"package"`

	// Backup configures pre-mirror snapshots
	Backup BackupConfig `yaml:"backup"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output"`
}

// UpstreamConfig holds settings for the upstream repository.
type UpstreamConfig struct {
	// Repository is the git location of the upstream SDK
	Repository string `yaml:"repository"`
	// Ref pins a tag, branch or commit; empty selects the newest version tag
	Ref string `yaml:"ref,omitempty"`
	// TypesPath is the slash-separated types subtree inside the upstream repo
	TypesPath string `yaml:"types_path"`
	// VersionFile holds the upstream version declaration
	VersionFile string `yaml:"version_file"`
	// VersionPattern extracts the version from VersionFile (first capture group)
	VersionPattern string `yaml:"version_pattern"`
	// TempPrefix prefixes the temporary checkout directory
	TempPrefix string `yaml:"temp_prefix"`
}

// PackageConfig holds settings for the destination package.
type PackageConfig struct {
	// Dir is the destination package directory, relative to the project root
	Dir string `yaml:"dir"`
	// TypesDir is the name of the mirrored subtree inside Dir
	TypesDir string `yaml:"types_dir"`
	// Keep lists top-level entries of Dir that are never deleted
	Keep []string `yaml:"keep"`
	// Layout selects the proxy generator (python, go)
	Layout string `yaml:"layout"`
	// ImportPath is the Go import path of Dir; resolved from go.mod when empty
	ImportPath string `yaml:"import_path,omitempty"`
	// MetadataFile is the build metadata file whose version is rewritten
	MetadataFile string `yaml:"metadata_file"`
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	// Enabled enables snapshots before the destination is rewritten
	Enabled bool `yaml:"enabled"`
	// MaxBackups is the maximum number of backups to keep
	MaxBackups int `yaml:"max_backups"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Color controls color output (auto, always, never)
	Color string `yaml:"color"`
	// Verbose enables verbose output
	Verbose bool `yaml:"verbose"`
}

// DefaultRepository is the upstream SDK repository.
const DefaultRepository = "https://github.com/openai/openai-python.git"

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			Repository:     DefaultRepository,
			TypesPath:      "src/openai/types",
			VersionFile:    "src/openai/__init__.py",
			VersionPattern: upstream.DefaultVersionPattern.String(),
			TempPrefix:     upstream.DefaultTempPrefix,
		},
		Package: PackageConfig{
			Dir:          "src/openai_types",
			TypesDir:     "types",
			Keep:         append([]string(nil), mirror.DefaultKeep...),
			Layout:       proxy.LayoutPython,
			MetadataFile: "pyproject.toml",
		},
		Backup: BackupConfig{
			Enabled:    true,
			MaxBackups: backup.DefaultMaxBackups,
		},
		Output: OutputConfig{
			Color:   "auto",
			Verbose: false,
		},
	}
}

// FileName is the name of the per-project config file.
const FileName = "typesync.yaml"

// FilePath returns the path to the config file of a project.
func FilePath(projectDir string) string {
	return filepath.Join(projectDir, FileName)
}

// Load loads the project's configuration, merging it with defaults.
// If the config file doesn't exist, returns default configuration.
func Load(projectDir string) (*Config, error) {
	cfg := Default()

	configPath := FilePath(projectDir)
	// #nosec G304 - configPath is constructed from the project directory
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file, use defaults with environment overrides
			cfg.applyEnvironment()
			return cfg, nil
		}
		return nil, err
	}

	// Parse YAML over defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	cfg.applyEnvironment()

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyEnvironment()
	return cfg, nil
}

// Save writes the configuration to the project's config file.
func (c *Config) Save(projectDir string) error {
	return c.SaveToPath(FilePath(projectDir))
}

// SaveToPath writes the configuration to a specific path.
func (c *Config) SaveToPath(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by user
	return os.WriteFile(path, data, 0o644)
}

// Marshal returns the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern TYPESYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	// Upstream settings
	if v := os.Getenv("OPENAI_PYTHON_REPO"); v != "" {
		c.Upstream.Repository = v
	}
	if v := os.Getenv("TYPESYNC_REF"); v != "" {
		c.Upstream.Ref = v
	}

	// Package settings
	if v := os.Getenv("TYPESYNC_PACKAGE_DIR"); v != "" {
		c.Package.Dir = v
	}
	if v := os.Getenv("TYPESYNC_PACKAGE_KEEP"); v != "" {
		c.Package.Keep = splitList(v)
	}
	if v := os.Getenv("TYPESYNC_LAYOUT"); v != "" {
		c.Package.Layout = v
	}
	if v := os.Getenv("TYPESYNC_IMPORT_PATH"); v != "" {
		c.Package.ImportPath = v
	}

	// Backup settings
	if v := os.Getenv("TYPESYNC_BACKUP_ENABLED"); v != "" {
		c.Backup.Enabled = parseBool(v)
	}
	if v := os.Getenv("TYPESYNC_BACKUP_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Backup.MaxBackups = n
		}
	}

	// Output settings
	if v := os.Getenv("TYPESYNC_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("TYPESYNC_OUTPUT_VERBOSE"); v != "" {
		c.Output.Verbose = parseBool(v)
	}
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// splitList splits a comma-separated list into its entries.
// Empty segments are filtered out.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// VersionRegexp compiles the upstream version pattern.
func (c *Config) VersionRegexp() (*regexp.Regexp, error) {
	if c.Upstream.VersionPattern == "" {
		return upstream.DefaultVersionPattern, nil
	}
	re, err := regexp.Compile(c.Upstream.VersionPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream.version_pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("invalid upstream.version_pattern: %q has no capture group", c.Upstream.VersionPattern)
	}
	return re, nil
}

// PackagePath returns the destination package directory for a project.
func (c *Config) PackagePath(projectDir string) string {
	return resolve(projectDir, c.Package.Dir)
}

// MetadataPath returns the build metadata file for a project.
func (c *Config) MetadataPath(projectDir string) string {
	return resolve(projectDir, c.Package.MetadataFile)
}

func resolve(projectDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(projectDir, filepath.FromSlash(p))
}

// Exists returns true if the project has a config file.
func Exists(projectDir string) bool {
	_, err := os.Stat(FilePath(projectDir))
	return err == nil
}
