package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfigFileName = "client_configuration.json"

// Resolver locates the configuration file path to read. Mirrors the
// teacher's client_configuration Resolver seam so the Manager can be
// tested against a fixed path without touching the real home directory.
type Resolver interface {
	Resolve() (string, error)
}

// defaultResolver resolves $XDG_CONFIG_HOME/sevpn/client_configuration.json,
// falling back to $HOME/.config/sevpn/client_configuration.json.
type defaultResolver struct{}

func (defaultResolver) Resolve() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sevpn", defaultConfigFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "sevpn", defaultConfigFileName), nil
}
