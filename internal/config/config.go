package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime settings for the CLI and the HTTP server.
type Config struct {
	DatabasePath string
	ServerAddr   string
	StaticDir    string
	MaxUploadMB  int
	LogLevel     string
	LogFormat    string
}

const envPrefix = "SMARTSPEND"

// Load reads settings from defaults, an optional .env file, an optional
// config file and SMARTSPEND_* environment variables, in increasing priority.
// The returned viper instance can be used to bind command-line flags.
func Load(configFile string) (*Config, *viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("database.path", "smart_spend.db")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config %q: %w", configFile, err)
		}
	}

	return FromViper(v), v, nil
}

// FromViper snapshots the current values held by v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		DatabasePath: v.GetString("database.path"),
		ServerAddr:   v.GetString("server.addr"),
		StaticDir:    v.GetString("server.static_dir"),
		MaxUploadMB:  v.GetInt("server.max_upload_mb"),
		LogLevel:     v.GetString("log.level"),
		LogFormat:    v.GetString("log.format"),
	}
}
