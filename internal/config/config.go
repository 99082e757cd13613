package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "lemon.toml"

type Config struct {
	Compiler     Compiler     `toml:"compiler"`
	Declarations Declarations `toml:"declarations"`
	Templates    Templates    `toml:"templates"`
	Watch        Watch        `toml:"watch"`
	Cache        Cache        `toml:"cache"`
	Log          Log          `toml:"log"`
}

type Compiler struct {
	Autoescape       bool   `toml:"autoescape"`
	RuntimeHeader    string `toml:"runtime_header"`
	RuntimeNamespace string `toml:"runtime_namespace"`
	OutputSuffix     string `toml:"output_suffix"`
	MaxIncludeDepth  int    `toml:"max_include_depth"`
}

type Declarations struct {
	Files []string `toml:"files"`
}

type Templates struct {
	Root    string   `toml:"root"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{Cache: Cache{Enabled: true}}
	applyDefaults(cfg)
	return cfg
}

// Load decodes path, fills in defaults and validates the result. Relative
// paths in the file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Cache: Cache{Enabled: true}}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	applyDefaults(cfg)
	resolvePaths(cfg, filepath.Dir(path))

	if err := validateCompiler(cfg); err != nil {
		return nil, err
	}
	if err := validateTemplates(cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(cfg); err != nil {
		return nil, err
	}
	if err := validateLog(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOptional behaves like Load but returns Default when path does not exist.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Compiler.RuntimeHeader) == "" {
		cfg.Compiler.RuntimeHeader = "lemon.hpp"
	}
	if strings.TrimSpace(cfg.Compiler.RuntimeNamespace) == "" {
		cfg.Compiler.RuntimeNamespace = "lemon"
	}
	if cfg.Compiler.OutputSuffix == "" {
		cfg.Compiler.OutputSuffix = ".cpp"
	}
	if cfg.Compiler.MaxIncludeDepth == 0 {
		cfg.Compiler.MaxIncludeDepth = 32
	}

	if strings.TrimSpace(cfg.Templates.Root) == "" {
		cfg.Templates.Root = "templates"
	}
	if len(cfg.Templates.Include) == 0 {
		cfg.Templates.Include = []string{"**.html"}
	}
	if cfg.Templates.Exclude == nil {
		// partials are compiled through include and extends
		cfg.Templates.Exclude = []string{"_*.html"}
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 250 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = filepath.Join(".lemon", "cache.db")
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.Log.Format) == "" {
		cfg.Log.Format = "text"
	}
}

func resolvePaths(cfg *Config, base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, f := range cfg.Declarations.Files {
		cfg.Declarations.Files[i] = abs(f)
	}
	cfg.Templates.Root = abs(cfg.Templates.Root)
	cfg.Cache.Path = abs(cfg.Cache.Path)
}

func validateCompiler(cfg *Config) error {
	if cfg.Compiler.MaxIncludeDepth < 1 {
		return fmt.Errorf("compiler.max_include_depth must be >= 1, got %d", cfg.Compiler.MaxIncludeDepth)
	}
	if strings.ContainsAny(cfg.Compiler.RuntimeNamespace, " \t\n") {
		return fmt.Errorf("compiler.runtime_namespace must not contain whitespace")
	}
	if !strings.HasPrefix(cfg.Compiler.OutputSuffix, ".") {
		return fmt.Errorf("compiler.output_suffix must start with a dot, got %q", cfg.Compiler.OutputSuffix)
	}
	return nil
}

func validateTemplates(cfg *Config) error {
	if _, err := NewMatcher(cfg.Templates.Include, cfg.Templates.Exclude); err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 10*time.Millisecond || cfg.Watch.Debounce > time.Minute {
		return fmt.Errorf("watch.debounce must be between 10ms and 1m, got %s", cfg.Watch.Debounce)
	}
	return nil
}

func validateLog(cfg *Config) error {
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	return nil
}

// ParseLevel maps log.level onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be one of: debug, info, warn, error, got %q", s)
}
