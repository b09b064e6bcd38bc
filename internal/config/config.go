package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type WatcherConfig struct {
	Proxy     string
	UserAgent string

	Output    Output
	Platforms map[string]PlatformConfig
}

type Output struct {
	Dir     string
	MaxSize string
}

type PlatformConfig struct {
	Cookies string
	Referer string
	Headers map[string]string
}

func ProjectRoot() (string, error) {
	ex, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(ex), nil
}

func Read(name string, cfg interface{}) error {
	v := viper.New()
	v.SetConfigName(name)

	pp, err := ProjectRoot()
	if err != nil {
		return err
	}
	v.AddConfigPath(pp)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode into struct: %w", err)
	}

	return nil
}

func ReadWatcherConfig() (*WatcherConfig, error) {
	cfg := &WatcherConfig{}
	return cfg, Read("livewatch", cfg)
}
