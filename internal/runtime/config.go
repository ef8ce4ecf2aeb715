package runtime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"

	"gopkg.in/yaml.v3"

	"github.com/lexcodex/slashcmd/lsp"
)

// Config captures every knob shared by the CLI and the interactive shell.
// Workspace and ConfigPath come from flags; the rest may also be set in
// config.yaml.
type Config struct {
	Workspace           string                      `yaml:"-"`
	ConfigPath          string                      `yaml:"-"`
	LogPath             string                      `yaml:"log_path,omitempty"`
	TranscriptPath      string                      `yaml:"transcript_path,omitempty"`
	BackgroundWorkers   int                         `yaml:"background_workers,omitempty"`
	PreferRelativePaths bool                        `yaml:"prefer_relative_paths"`
	LanguageServers     map[string]lsp.ServerConfig `yaml:"language_servers,omitempty"`
}

// DefaultConfig infers defaults from the current working directory. Errors
// from os.Getwd are ignored so callers can override manually.
func DefaultConfig() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		Workspace:           cwd,
		ConfigPath:          filepath.Join(cwd, ".slashcmd", "config.yaml"),
		LogPath:             filepath.Join(cwd, ".slashcmd", "slashcmd.log"),
		TranscriptPath:      filepath.Join(cwd, ".slashcmd", "transcript.db"),
		BackgroundWorkers:   goruntime.NumCPU(),
		PreferRelativePaths: true,
	}
}

// Normalize makes every path absolute and fills missing defaults.
func (c *Config) Normalize() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace path required")
	}
	absWorkspace, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	c.Workspace = absWorkspace
	c.ConfigPath = c.resolve(c.ConfigPath, "config.yaml")
	c.LogPath = c.resolve(c.LogPath, "slashcmd.log")
	c.TranscriptPath = c.resolve(c.TranscriptPath, "transcript.db")
	if c.BackgroundWorkers <= 0 {
		c.BackgroundWorkers = goruntime.NumCPU()
	}
	for language, server := range c.LanguageServers {
		if server.Command == "" {
			return fmt.Errorf("language server for %s: command required", language)
		}
	}
	return nil
}

func (c *Config) resolve(path, fallback string) string {
	if path == "" {
		return filepath.Join(c.Workspace, ".slashcmd", fallback)
	}
	if !filepath.IsAbs(path) {
		return filepath.Join(c.Workspace, path)
	}
	return path
}

// LoadConfig overlays the YAML file at path onto base. A missing file
// leaves base unchanged.
func LoadConfig(path string, base Config) (Config, error) {
	if path == "" {
		return base, fmt.Errorf("config path required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, nil
		}
		return base, err
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes the file-backed fields of cfg to path.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		return fmt.Errorf("config path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
