package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fixedResolver struct {
	path string
	err  error
}

func (r fixedResolver) Resolve() (string, error) { return r.path, r.err }

func writeConfigFile(t *testing.T, cfg ProviderConfig) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "client_configuration.json")
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestManagerResolverError(t *testing.T) {
	m := &Manager{resolver: fixedResolver{err: errors.New("resolver broke")}}
	if _, err := m.Configuration(); err == nil || !strings.Contains(err.Error(), "resolver broke") {
		t.Fatalf("expected resolver error, got %v", err)
	}
}

func TestManagerFileNotExist(t *testing.T) {
	m := &Manager{resolver: fixedResolver{path: "/nonexistent/client_configuration.json"}}
	if _, err := m.Configuration(); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestManagerInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client_configuration.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := &Manager{resolver: fixedResolver{path: path}}
	if _, err := m.Configuration(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestManagerRejectsMissingRequiredFields(t *testing.T) {
	path := writeConfigFile(t, ProviderConfig{Host: "vpn.example.com"})
	m := &Manager{resolver: fixedResolver{path: path}}
	if _, err := m.Configuration(); err == nil {
		t.Fatalf("expected validation error for missing port/hub")
	}
}

func TestManagerSuccess(t *testing.T) {
	path := writeConfigFile(t, ProviderConfig{
		Host:            "vpn.example.com",
		Port:            443,
		Hub:             "DEFAULT",
		UDPAccelEnabled: true,
		ClientBanner:    "sevpn-client",
	})
	m := &Manager{resolver: fixedResolver{path: path}}
	cfg, err := m.Configuration()
	if err != nil {
		t.Fatalf("Configuration: %v", err)
	}
	if cfg.Host != "vpn.example.com" || cfg.Port != 443 || cfg.Hub != "DEFAULT" || !cfg.UDPAccelEnabled {
		t.Fatalf("cfg = %+v", cfg)
	}
}
