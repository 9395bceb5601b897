package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/tuannm99/soliddb/internal/engine"
)

const EnvPrefix = "SOLIDDB"

type SolidConfig struct {
	AppName string `mapstructure:"app_name" yaml:"app_name"`

	Storage struct {
		Workdir         string `mapstructure:"workdir" yaml:"workdir"`
		CheckpointEvery int    `mapstructure:"checkpoint_every" yaml:"checkpoint_every"`
	} `mapstructure:"storage" yaml:"storage"`

	Logger struct {
		Level string `mapstructure:"level" yaml:"level"`
		JSON  bool   `mapstructure:"json" yaml:"json"`
	} `mapstructure:"logger" yaml:"logger"`

	Shell struct {
		Prompt      string `mapstructure:"prompt" yaml:"prompt"`
		HistoryFile string `mapstructure:"history_file" yaml:"history_file"`
		HistoryMax  int    `mapstructure:"history_max" yaml:"history_max"`
	} `mapstructure:"shell" yaml:"shell"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "soliddb")
	v.SetDefault("storage.workdir", "./data")
	v.SetDefault("storage.checkpoint_every", engine.DefaultCheckpointEvery)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)
	v.SetDefault("shell.prompt", "soliddb> ")
	v.SetDefault("shell.history_file", "")
	v.SetDefault("shell.history_max", 1000)
}

// LoadConfig reads the yaml file at path on the OS filesystem. An empty path
// yields the defaults. SOLIDDB_* environment variables override both, e.g.
// SOLIDDB_STORAGE_WORKDIR.
func LoadConfig(path string) (*SolidConfig, error) {
	return LoadConfigFs(afero.NewOsFs(), path)
}

func LoadConfigFs(fs afero.Fs, path string) (*SolidConfig, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg SolidConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Storage.CheckpointEvery < 1 {
		return nil, fmt.Errorf("config: storage.checkpoint_every must be positive, got %d", cfg.Storage.CheckpointEvery)
	}

	return &cfg, nil
}
