package config

import (
	"encoding/json"
	"fmt"
	"os"

	"sevpn/domain/protoerr"
)

// Manager reads and validates the provider configuration.
type Manager struct {
	resolver Resolver
}

// NewManager constructs a Manager using the default resolver.
func NewManager() *Manager {
	return &Manager{resolver: defaultResolver{}}
}

// Configuration resolves the config path, reads it, and validates the
// mandatory fields.
func (m *Manager) Configuration() (ProviderConfig, error) {
	path, err := m.resolver.Resolve()
	if err != nil {
		return ProviderConfig{}, fmt.Errorf("config: %w", err)
	}

	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return ProviderConfig{}, fmt.Errorf("config: file %q does not exist: %w", path, protoerr.ErrProviderConfigMissing)
		}
		return ProviderConfig{}, fmt.Errorf("config: stat %q: %w", path, statErr)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return ProviderConfig{}, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg ProviderConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ProviderConfig{}, fmt.Errorf("config: parse %q: %w", path, err)
	}

	if err := validate(cfg); err != nil {
		return ProviderConfig{}, err
	}
	return cfg, nil
}

func validate(cfg ProviderConfig) error {
	if cfg.Host == "" || cfg.Port == 0 || cfg.Hub == "" {
		return fmt.Errorf("config: %w: se_host, se_port, and se_hub are required", protoerr.ErrProviderConfigInvalid)
	}
	return nil
}
