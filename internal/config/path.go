// Package config loads woodsnap settings from the config file, the
// environment and an optional .env file.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names the configuration directory.
const AppName = "woodsnap"

// ExpandPath expands ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// Dir returns $HOME/.config/woodsnap, or a relative directory when the home
// directory cannot be determined.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultDatabasePath is where scan history and quota state live.
func DefaultDatabasePath() string {
	return filepath.Join(Dir(), AppName+".db")
}

// DefaultModelPath is where the offline model is looked up.
func DefaultModelPath() string {
	return filepath.Join(Dir(), "offline-model.json")
}
