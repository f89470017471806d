// Package config provides a reusable loader for FantaSim-World
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/GiantCroissant-Lunar/fantasim-world-sub003/pkg/ferrors"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a FantaSim-World
// process. It mirrors the structure of the YAML files Load and
// LoadExplicit read; the repository ships no such file.
type Config struct {
	Storage struct {
		Backend string `mapstructure:"backend" json:"backend"` // "memory" | "bolt"
		DBPath  string `mapstructure:"db_path" json:"db_path"`
	} `mapstructure:"storage" json:"storage"`

	Append struct {
		TickPolicy string `mapstructure:"tick_policy" json:"tick_policy"` // allow|warn|reject
	} `mapstructure:"append" json:"append"`

	Materializer struct {
		TickMode string `mapstructure:"tick_mode" json:"tick_mode"` // scan_all|break_on_first_beyond_tick|auto
	} `mapstructure:"materializer" json:"materializer"`

	Partition struct {
		Tolerance     string  `mapstructure:"tolerance" json:"tolerance"` // strict|lenient|default
		Epsilon       float64 `mapstructure:"epsilon" json:"epsilon"`
		MinPolygonArea float64 `mapstructure:"min_polygon_area" json:"min_polygon_area"`
		AllowPartial  bool    `mapstructure:"allow_partial" json:"allow_partial"`
	} `mapstructure:"partition" json:"partition"`

	Cache struct {
		RetentionMaxSequenceAge uint64 `mapstructure:"retention_max_sequence_age" json:"retention_max_sequence_age"`
		MinArtifactsToKeep      int    `mapstructure:"min_artifacts_to_keep" json:"min_artifacts_to_keep"`
	} `mapstructure:"cache" json:"cache"`

	Logging struct {
		Level  string `mapstructure:"level" json:"level"`
		Format string `mapstructure:"format" json:"format"` // text|json
		File   string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded. A .env file in the working directory, if present, is loaded
// into the process environment before viper resolves anything, so
// FANTASIM_-prefixed variables in it take effect the same as exported
// shell variables.
func Load(env string) (*Config, error) {
	_ = godotenv.Load()

	def := Defaults()
	setDefaults(def)

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ferrors.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, ferrors.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("fantasim")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, ferrors.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the FANTASIM_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(EnvOrDefault("FANTASIM_ENV", ""))
}

// LoadExplicit loads a single config file named by path, bypassing the
// default-plus-environment-overlay discovery Load performs. Used by
// callers (such as the CLI's --config flag) that name an exact file.
func LoadExplicit(path string) (*Config, error) {
	_ = godotenv.Load()

	setDefaults(Defaults())

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("fantasim")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/fantasim")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ferrors.Wrap(err, "load config")
		}
	}

	viper.SetEnvPrefix("fantasim")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, ferrors.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

func setDefaults(d Config) {
	viper.SetDefault("storage.backend", d.Storage.Backend)
	viper.SetDefault("storage.db_path", d.Storage.DBPath)
	viper.SetDefault("append.tick_policy", d.Append.TickPolicy)
	viper.SetDefault("materializer.tick_mode", d.Materializer.TickMode)
	viper.SetDefault("partition.tolerance", d.Partition.Tolerance)
	viper.SetDefault("partition.min_polygon_area", d.Partition.MinPolygonArea)
	viper.SetDefault("cache.min_artifacts_to_keep", d.Cache.MinArtifactsToKeep)
	viper.SetDefault("logging.level", d.Logging.Level)
	viper.SetDefault("logging.format", d.Logging.Format)
}

// EnvOrDefault returns the value of the environment variable identified by
// key, or fallback if it is unset. Exposed here (rather than only in
// pkg/utils) so config callers don't need a second import for a single
// lookup.
func EnvOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// Defaults returns a Config populated with the module's built-in
// defaults, used when no config file is present (e.g. in tests or simple
// CLI invocations).
func Defaults() Config {
	var c Config
	c.Storage.Backend = "bolt"
	c.Storage.DBPath = "./data/fantasim.bolt"
	c.Append.TickPolicy = "reject"
	c.Materializer.TickMode = "auto"
	c.Partition.Tolerance = "default"
	c.Partition.MinPolygonArea = 1e-9
	c.Cache.MinArtifactsToKeep = 3
	c.Logging.Level = "info"
	c.Logging.Format = "text"
	return c
}
