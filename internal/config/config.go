package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// ConfigurationToken is replaced in BinaryDir with the build configuration.
const ConfigurationToken = "{configuration}"

// Config represents the complete upc configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	// Source and destination project roots. Usually given on the command line.
	Src string `json:"src,omitempty" mapstructure:"src"`
	Dst string `json:"dst,omitempty" mapstructure:"dst"`

	Defines       []string `json:"defines" mapstructure:"defines"`
	Configuration string   `json:"configuration" mapstructure:"configuration"`
	BinaryDir     string   `json:"binaryDir" mapstructure:"binaryDir"`
	FilterDir     string   `json:"filterDir,omitempty" mapstructure:"filterDir"`
	PluginsDir    string   `json:"pluginsDir" mapstructure:"pluginsDir"`

	KeepTargetFiles     bool     `json:"keepTargetFiles" mapstructure:"keepTargetFiles"`
	Extensions          []string `json:"extensions,omitempty" mapstructure:"extensions"`
	CopyProjectSettings bool     `json:"copyProjectSettings" mapstructure:"copyProjectSettings"`
	CopyPackages        bool     `json:"copyPackages" mapstructure:"copyPackages"`
	CheckGitIgnore      bool     `json:"checkGitIgnore" mapstructure:"checkGitIgnore"`

	Workers int  `json:"workers" mapstructure:"workers"`
	Backup  bool `json:"backup" mapstructure:"backup"`
	DryRun  bool `json:"dryRun" mapstructure:"dryRun"`
	Ledger  bool `json:"ledger" mapstructure:"ledger"`

	Build   BuildConfig   `json:"build" mapstructure:"build"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// BuildConfig describes the optional external build step run before compile.
// Args may reference {project}, {name}, {configuration} and {log}.
type BuildConfig struct {
	Enabled bool     `json:"enabled" mapstructure:"enabled"`
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args" mapstructure:"args"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format     string `json:"format" mapstructure:"format"` // text, json
	File       string `json:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `json:"maxSizeMB" mapstructure:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays" mapstructure:"maxAgeDays"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:             CurrentVersion,
		Defines:             []string{},
		Configuration:       "Debug",
		BinaryDir:           filepath.Join("Temp", "bin", ConfigurationToken),
		PluginsDir:          "Plugins",
		CopyProjectSettings: true,
		CopyPackages:        true,
		Workers:             runtime.NumCPU(),
		Ledger:              true,
		Build: BuildConfig{
			Command: "msbuild",
			Args:    []string{"{project}", "/t:Build", "/p:Configuration={configuration}", "/fl", "/flp:logfile={log}"},
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadWithFlags loads configuration for the project in dir.
//
// Lookup order, lowest precedence first: defaults, upc.{json,yaml,toml} in
// dir or dir/.upc (or the explicit file when path is set), a .env file in
// dir, UPC_* environment variables, then command line flags. bindings
// maps config keys to flag names; only flags that were set on the command
// line override the other sources. flags may be nil.
func LoadWithFlags(dir, path string, flags *pflag.FlagSet, bindings map[string]string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("UPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("upc")
		v.AddConfigPath(dir)
		v.AddConfigPath(filepath.Join(dir, ".upc"))
	}

	for key, name := range bindings {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing config file just means defaults + env
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("src", d.Src)
	v.SetDefault("dst", d.Dst)
	v.SetDefault("defines", d.Defines)
	v.SetDefault("configuration", d.Configuration)
	v.SetDefault("binaryDir", d.BinaryDir)
	v.SetDefault("filterDir", d.FilterDir)
	v.SetDefault("pluginsDir", d.PluginsDir)
	v.SetDefault("keepTargetFiles", d.KeepTargetFiles)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("copyProjectSettings", d.CopyProjectSettings)
	v.SetDefault("copyPackages", d.CopyPackages)
	v.SetDefault("checkGitIgnore", d.CheckGitIgnore)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("backup", d.Backup)
	v.SetDefault("dryRun", d.DryRun)
	v.SetDefault("ledger", d.Ledger)
	v.SetDefault("build.enabled", d.Build.Enabled)
	v.SetDefault("build.command", d.Build.Command)
	v.SetDefault("build.args", d.Build.Args)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSizeMB", d.Logging.MaxSizeMB)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
	v.SetDefault("logging.maxAgeDays", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
}

// Save writes the configuration to path as indented JSON.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolvedBinaryDir returns BinaryDir with the configuration substituted.
func (c *Config) ResolvedBinaryDir() string {
	return strings.ReplaceAll(c.BinaryDir, ConfigurationToken, c.Configuration)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Configuration == "" {
		return &ConfigError{Field: "configuration", Message: "must not be empty"}
	}
	if c.PluginsDir == "" || filepath.IsAbs(c.PluginsDir) {
		return &ConfigError{Field: "pluginsDir", Message: "must be a relative directory under Assets"}
	}
	if c.BinaryDir == "" {
		return &ConfigError{Field: "binaryDir", Message: "must not be empty"}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Message: "must not be negative"}
	}
	if c.Build.Enabled && c.Build.Command == "" {
		return &ConfigError{Field: "build.command", Message: "required when build is enabled"}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be text or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
