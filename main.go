//go:build linux

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"sevpn/application"
	"sevpn/infrastructure/appmsg"
	"sevpn/infrastructure/authsource"
	"sevpn/infrastructure/config"
	"sevpn/infrastructure/elevation"
	"sevpn/infrastructure/netconf"
	"sevpn/infrastructure/session"
	"sevpn/infrastructure/settings"
	"sevpn/infrastructure/tunio"
)

func main() {
	if !elevation.IsElevated() {
		fmt.Fprintf(os.Stderr, "sevpn-client must run with elevated privileges (%s)\n", elevation.Hint())
		os.Exit(1)
	}

	cfg, err := config.NewManager().Configuration()
	if err != nil {
		log.Fatalf("sevpn-client: load configuration: %v", err)
	}

	authSrc, err := buildAuthSource(cfg)
	if err != nil {
		log.Fatalf("sevpn-client: resolve credentials: %v", err)
	}

	host, err := settings.NewHost(cfg.Host)
	if err != nil {
		log.Fatalf("sevpn-client: parse se_host: %v", err)
	}

	tun, err := tunio.Open("")
	if err != nil {
		log.Fatalf("sevpn-client: open tun device: %v", err)
	}
	defer tun.Close()

	sess, err := session.New(session.Config{
		Host:            host,
		Port:            cfg.Port,
		Hub:             cfg.Hub,
		AuthSource:      authSrc,
		HostFlow:        tun,
		SettingsApplier: netconf.NewApplier(),
		IfaceName:       tun.Name(),
		UDPAccelEnabled: cfg.UDPAccelEnabled,
	})
	if err != nil {
		log.Fatalf("sevpn-client: construct session: %v", err)
	}

	// The appmsg handler lets an embedding host process query dhcp_status out of
	// band; wiring a transport for it (a control socket, a signal) is left
	// to the deployment, not this entrypoint.
	_ = appmsg.New(func() appmsg.DHCPStatus {
		state, leased := sess.DHCPStatus()
		status := appmsg.DHCPStatus{State: state.String()}
		if leased.Address != nil {
			status.Address = leased.Address.String()
			status.LeaseSecs = leased.LeaseTime
		}
		if leased.Gateway != nil {
			status.Gateway = leased.Gateway.String()
		}
		for _, dns := range leased.DNS {
			status.DNS = append(status.DNS, dns.String())
		}
		return status
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("sevpn-client: signal received, stopping")
		_ = sess.Stop(nil)
		cancel()
	}()

	if err := run(ctx, sess); err != nil {
		log.Fatalf("sevpn-client: %v", err)
	}

	<-ctx.Done()
}

// run drives the session through connect, handshake, DHCP, and
// tunneling in sequence, stopping it on any stage failure.
func run(ctx context.Context, sess *session.Session) error {
	if err := sess.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := sess.Handshake(ctx); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	leased, err := sess.ObtainIPViaDHCP(ctx)
	if err != nil {
		return fmt.Errorf("obtain ip via dhcp: %w", err)
	}
	log.Printf("sevpn-client: leased %s via dhcp", leased.Address)
	if err := sess.StartTunneling(ctx); err != nil {
		return fmt.Errorf("start tunneling: %w", err)
	}
	log.Println("sevpn-client: tunnel established")
	return nil
}

// buildAuthSource picks a credential resolver per the provider
// configuration's oidc group: when present it names only a cached
// token file to read; otherwise credentials come from the environment,
// falling back to an interactive prompt.
func buildAuthSource(cfg config.ProviderConfig) (application.AuthSource, error) {
	if cfg.OIDC != nil {
		path, err := cachedTokenPath(cfg.ProfileName)
		if err != nil {
			return nil, err
		}
		return authsource.CachedTokenSource{Path: path}, nil
	}

	username := os.Getenv("SEVPN_USERNAME")
	password := os.Getenv("SEVPN_PASSWORD")
	if username == "" {
		username = promptLine("Username: ")
	}
	if password == "" {
		password = promptLine("Password: ")
	}
	return authsource.PasswordSource{Username: username, Password: password}, nil
}

func cachedTokenPath(profileName string) (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sevpn", profileName+"_token.json"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "sevpn", profileName+"_token.json"), nil
}

func promptLine(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}
