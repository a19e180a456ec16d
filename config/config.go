// Package config loads application settings from an optional YAML file and
// BESTSTORE_* environment variables.
package config

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned by Validate for any rejected setting.
var ErrInvalidConfig = errors.New("invalid configuration")

const envPrefix = "BESTSTORE"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	BodyLimitMB int    `mapstructure:"body_limit_mb"`
}

type DatabaseConfig struct {
	Path  string `mapstructure:"path"`
	Debug bool   `mapstructure:"debug"`
}

// StorageConfig points at the single directory holding uploaded images.
type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

type LoggerConfig struct {
	Mode       string `mapstructure:"mode"` // development or production
	Level      string `mapstructure:"level"`
	FileEnable bool   `mapstructure:"file_enable"`
	Filename   string `mapstructure:"filename"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.body_limit_mb", 10)
	v.SetDefault("database.path", "data/beststore.db")
	v.SetDefault("database.debug", false)
	v.SetDefault("storage.dir", "public/images")
	v.SetDefault("logger.mode", "development")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.file_enable", false)
	v.SetDefault("logger.filename", "logs/beststore.log")
}

// Load reads configFile when it is non-empty, then applies environment
// overrides such as BESTSTORE_SERVER_ADDR.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(configFile), "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.Wrap(ErrInvalidConfig, "server.addr is required")
	}
	if c.Server.BodyLimitMB <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "server.body_limit_mb must be positive, got %d", c.Server.BodyLimitMB)
	}
	if c.Database.Path == "" {
		return errors.Wrap(ErrInvalidConfig, "database.path is required")
	}
	if c.Storage.Dir == "" {
		return errors.Wrap(ErrInvalidConfig, "storage.dir is required")
	}
	switch c.Logger.Mode {
	case "development", "production":
	default:
		return errors.Wrapf(ErrInvalidConfig, "logger.mode must be development or production, got %q", c.Logger.Mode)
	}
	if c.Logger.FileEnable && c.Logger.Filename == "" {
		return errors.Wrap(ErrInvalidConfig, "logger.filename is required when logger.file_enable is set")
	}
	return nil
}
