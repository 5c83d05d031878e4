// Package config loads the provider configuration consumed by the
// session engine: the SoftEther endpoint, hub, UDP-accel preference,
// client banner, and optional external-identity profile.
package config

// OIDC names an external identity collaborator's profile; the token
// itself is acquired out of process and handed to AuthSource, never
// read or refreshed by this package.
type OIDC struct {
	Issuer   string `json:"issuer"`
	Audience string `json:"audience"`
}

// ProviderConfig carries only the fields a session actually needs to
// connect, nothing process-global.
type ProviderConfig struct {
	Host            string `json:"se_host"`
	Port            int    `json:"se_port"`
	Hub             string `json:"se_hub"`
	ProfileName     string `json:"profile_name"`
	UDPAccelEnabled bool   `json:"udp_accel_enabled"`
	ClientBanner    string `json:"client_banner"`
	OIDC            *OIDC  `json:"oidc,omitempty"`
}
