// Package store persists action scripts as JSON files and manages the
// default configuration directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Kblack0610/clickytheclicker/internal/model"
	"github.com/Kblack0610/clickytheclicker/internal/recovery"
	"github.com/Kblack0610/clickytheclicker/pkg/utils"
)

var (
	ErrNoActions = errors.New("script contains no actions")
	ErrNotFound  = errors.New("script file not found")
)

// Load reads, validates and normalizes a script. Invalid recovery strategy
// names are dropped here so the execution loop only sees valid overrides.
func Load(path string) (*model.Script, error) {
	resolved := ResolvePath(path)
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read script: %w", err)
	}

	var script model.Script
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", resolved, err)
	}
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", resolved, err)
	}
	script.Normalize(recovery.ValidStrategy)

	return &script, nil
}

// Save writes the script as indented JSON.
func Save(path string, script *model.Script) error {
	resolved := ResolvePath(path)
	if dir := filepath.Dir(resolved); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create script directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}
	if err := os.WriteFile(resolved, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	return nil
}

// ResolvePath normalizes a script name to a full path: a .json suffix is
// added when missing, and bare names are looked up in the default config
// directory when they do not exist locally.
func ResolvePath(name string) string {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	if filepath.Dir(name) != "." {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return filepath.Join(utils.ConfigDir(), name)
}

// List returns the script file names in the default config directory.
func List() ([]string, error) {
	entries, err := os.ReadDir(utils.ConfigDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// CheckpointDir is where checkpoint snapshots are written.
func CheckpointDir() string {
	return filepath.Join(utils.ConfigDir(), "checkpoints")
}
