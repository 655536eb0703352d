package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config errors.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrConfigFileEmpty    = errors.New("config_file cannot be empty")
	ErrVerifyFileEmpty    = errors.New("verify_file cannot be empty")
	ErrFlagRequiresArg    = errors.New("flag requires an argument")
	ErrUnknownFlag        = errors.New("unknown flag")
)

// Config holds all tool configuration options.
type Config struct {
	// From config files (serialized)
	ConfigFile string `json:"config_file"`
	VerifyFile string `json:"verify_file"`
	BackupDir  string `json:"backup_dir,omitempty"`
	BackupKeep int    `json:"backup_keep,omitempty"`
	Actor      string `json:"actor,omitempty"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd  string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	ConfigFileAbs string `json:"-"`
	VerifyFileAbs string `json:"-"`
	BackupDirAbs  string `json:"-"` // Empty when no backup_dir override is set

	// Sources tracks which config files were loaded (for diagnostics)
	Sources ConfigSources `json:"-"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// DefaultBackupKeep is the prune-backups retention when neither the flag
// nor backup_keep in the config says otherwise.
const DefaultBackupKeep = 10

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ConfigFile: "config.yml",
		VerifyFile: "verification.yml",
		BackupKeep: DefaultBackupKeep,
	}
}

// ProjectConfigName is the per-project config file name.
const ProjectConfigName = ".sitectl.json"

// globalConfigPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/sitectl/config.json if set, otherwise
// ~/.config/sitectl/config.json. Empty if neither can be determined.
func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "sitectl", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "sitectl", "config.json")
	}

	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride    string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath         string            // -c/--config flag value
	StoreOverride      string            // --store flag value; empty means no override
	VerifyFileOverride string            // --verify-file flag value; empty means no override
	Env                map[string]string // environment variables
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/sitectl/config.json or ~/.config/sitectl/config.json)
// 3. Project config file at default location (.sitectl.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty)
// 5. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadToolConfigFile(globalConfigPath(input.Env), false)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	if input.StoreOverride != "" {
		cfg.ConfigFile = input.StoreOverride
	}

	if input.VerifyFileOverride != "" {
		cfg.VerifyFile = input.VerifyFileOverride
	}

	if cfg.ConfigFile == "" {
		return Config{}, ErrConfigFileEmpty
	}

	if cfg.VerifyFile == "" {
		return Config{}, ErrVerifyFileEmpty
	}

	cfg.EffectiveCwd = workDir
	cfg.ConfigFileAbs = absAgainst(workDir, cfg.ConfigFile)
	cfg.VerifyFileAbs = absAgainst(workDir, cfg.VerifyFile)

	if cfg.BackupDir != "" {
		cfg.BackupDirAbs = absAgainst(workDir, cfg.BackupDir)
	}

	return cfg, nil
}

func absAgainst(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

// loadProjectConfig loads the project config file (.sitectl.json) or an
// explicit config file. Returns the config, the path if loaded, and any error.
func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	if configPath != "" {
		// Explicit config file - must exist
		cfgFile := configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}

		return loadToolConfigFile(cfgFile, true)
	}

	return loadToolConfigFile(filepath.Join(workDir, ProjectConfigName), false)
}

// loadToolConfigFile loads one JSONC config file. If mustExist is false, a
// missing file yields zero config. Returns the config and the path when a
// file was actually loaded.
func loadToolConfigFile(path string, mustExist bool) (Config, string, error) {
	if path == "" {
		return Config{}, "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}

		return Config{}, "", nil
	}

	cfg, parseErr := parseToolConfig(data)
	if parseErr != nil {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, path, nil
}

func parseToolConfig(data []byte) (Config, error) {
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
	if overlay.ConfigFile != "" {
		base.ConfigFile = overlay.ConfigFile
	}

	if overlay.VerifyFile != "" {
		base.VerifyFile = overlay.VerifyFile
	}

	if overlay.BackupDir != "" {
		base.BackupDir = overlay.BackupDir
	}

	if overlay.BackupKeep != 0 {
		base.BackupKeep = overlay.BackupKeep
	}

	if overlay.Actor != "" {
		base.Actor = overlay.Actor
	}

	return base
}
