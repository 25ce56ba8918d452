package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	ListDir string `json:"list_dir"` //nolint:tagliatelle // snake_case for config file
	Strict  bool   `json:"strict,omitempty"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ListDir: ".",
	}
}

// ConfigFileName is the project config file name.
const ConfigFileName = ".tl.json"

var errConfigRead = errors.New("cannot read config file")

// globalConfigPath returns the path to the global config file:
// $XDG_CONFIG_HOME/tl/config.json if set, otherwise ~/.config/tl/config.json.
// Empty string if neither can be determined.
func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "tl", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "tl", "config.json")
	}

	return ""
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config
// 3. Project config (.tl.json in workDir, if present)
// 4. CLI overrides (applied by the caller).
func LoadConfig(workDir string, env map[string]string) (Config, ConfigSources, error) {
	cfg := DefaultConfig()

	var sources ConfigSources

	if globalPath := globalConfigPath(env); globalPath != "" {
		loaded, ok, err := readConfigFile(globalPath)
		if err != nil {
			return Config{}, ConfigSources{}, err
		}

		if ok {
			sources.Global = globalPath
			cfg = mergeConfig(cfg, loaded)
		}
	}

	projectPath := filepath.Join(workDir, ConfigFileName)

	loaded, ok, err := readConfigFile(projectPath)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}

	if ok {
		sources.Project = projectPath
		cfg = mergeConfig(cfg, loaded)
	}

	return cfg, sources, nil
}

func readConfigFile(path string) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", errConfigRead, path, err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.ListDir != "" {
		base.ListDir = overlay.ListDir
	}

	if overlay.Strict {
		base.Strict = true
	}

	return base
}
