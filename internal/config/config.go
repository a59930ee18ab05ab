package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the optional rdd configuration file.
type Config struct {
	Defaults DefaultsConfig `toml:"defaults"`
	Theme    ThemeConfig    `toml:"theme"`
}

// DefaultsConfig holds persistent flag defaults. Flags given on the command
// line always win.
type DefaultsConfig struct {
	BlockSize        *string `toml:"bs"`
	Hash             *string `toml:"hash"`
	Conv             *string `toml:"conv"`
	Direct           *bool   `toml:"direct"`
	Verify           *bool   `toml:"verify"`
	Queue            *int    `toml:"queue"`
	Retries          *int    `toml:"retries"`
	BWLimit          *string `toml:"bwlimit"`
	ProgressInterval *string `toml:"progress_interval"`
	IOURing          *bool   `toml:"iouring"`
}

// ThemeConfig holds optional color overrides for the completion summary.
type ThemeConfig struct {
	Green  *string `toml:"green"`
	Red    *string `toml:"red"`
	Yellow *string `toml:"yellow"`
	Muted  *string `toml:"muted"`
	Bright *string `toml:"bright"`
}

// Path returns the resolved path to the config file.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "rdd", "config.toml")
}

// Load reads the config file from the XDG path. Returns a zero Config
// (no error) if the file does not exist. Config is always optional.
func Load() (Config, error) {
	path := Path()
	if path == "" {
		return Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path. A missing file yields a zero
// Config; keys rdd does not know are rejected so typos surface.
func LoadFile(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}
