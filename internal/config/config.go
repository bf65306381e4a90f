package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	GameDir        string `mapstructure:"game_dir"`
	OutputDir      string `mapstructure:"output_dir"`
	Database       string `mapstructure:"database"`
	AnimFormat     string `mapstructure:"anim_format"`
	Overwrite      bool   `mapstructure:"overwrite"`
	UseFullPaths   bool   `mapstructure:"use_full_paths"`
	DumpRig        bool   `mapstructure:"dump_rig"`
	Workers        int    `mapstructure:"workers"`
	ChunkCacheSize int    `mapstructure:"chunk_cache_size"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
}

// Load reads configuration from cfgFile, or from rpaktool.yaml in the home
// or working directory when cfgFile is empty. A missing file is not an
// error; defaults apply.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("game_dir", "")
	v.SetDefault("output_dir", "exported")
	v.SetDefault("database", "rpak.db")
	v.SetDefault("anim_format", "seanim")
	v.SetDefault("overwrite", false)
	v.SetDefault("use_full_paths", false)
	v.SetDefault("dump_rig", false)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("chunk_cache_size", 4096)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("RPAKTOOL")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName("rpaktool")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
