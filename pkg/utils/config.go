package utils

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDir returns the script configuration directory for the current
// operating system.
func ConfigDir() string {
	var appDataDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\clickytheclicker\configs
		appData := os.Getenv("APPDATA")
		if appData != "" {
			appDataDir = filepath.Join(appData, "clickytheclicker", "configs")
		}
	case "darwin":
		// macOS: ~/Library/Application Support/clickytheclicker/configs
		homeDir, err := os.UserHomeDir()
		if err == nil {
			appDataDir = filepath.Join(homeDir, "Library", "Application Support", "clickytheclicker", "configs")
		}
	default:
		// Linux and friends: $XDG_CONFIG_HOME/clickytheclicker/configs
		configDir, err := os.UserConfigDir()
		if err == nil {
			appDataDir = filepath.Join(configDir, "clickytheclicker", "configs")
		}
	}

	if appDataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			appDataDir = filepath.Join(homeDir, ".clickytheclicker", "configs")
		} else {
			appDataDir = filepath.Join(".", "configs")
		}
	}

	return appDataDir
}
