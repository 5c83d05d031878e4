// Package appmsg implements the AppMessage dispatcher the embedding host
// process uses to query session state out of band from packet data.
package appmsg

import (
	"fmt"

	"sevpn/application"
)

const TypeDHCPStatus = "dhcp_status"

// DHCPStatus is the payload returned for a dhcp_status request.
type DHCPStatus struct {
	State     string   `json:"state"`
	Address   string   `json:"address,omitempty"`
	Gateway   string   `json:"gateway,omitempty"`
	DNS       []string `json:"dns,omitempty"`
	LeaseSecs uint32   `json:"lease_seconds,omitempty"`
}

// StatusProvider returns a point-in-time snapshot of the DHCP client's
// state; the session orchestrator supplies this from its dhcpclient.Client.
type StatusProvider func() DHCPStatus

// Handler dispatches AppMessage requests by type.
type Handler struct {
	dhcpStatus StatusProvider
}

// New constructs a Handler backed by the given status snapshot function.
func New(dhcpStatus StatusProvider) *Handler {
	return &Handler{dhcpStatus: dhcpStatus}
}

// Handle implements application.AppMessageHandler.
func (h *Handler) Handle(req application.AppMessage) (application.AppMessage, error) {
	switch req.Type {
	case TypeDHCPStatus:
		return application.AppMessage{Type: TypeDHCPStatus, Payload: h.dhcpStatus()}, nil
	default:
		return application.AppMessage{}, fmt.Errorf("appmsg: unknown message type %q", req.Type)
	}
}
