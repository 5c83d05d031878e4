package appmsg

import (
	"testing"

	"sevpn/application"
)

func TestHandlerDispatchesDHCPStatus(t *testing.T) {
	h := New(func() DHCPStatus {
		return DHCPStatus{State: "Bound", Address: "10.0.0.5", Gateway: "10.0.0.1"}
	})

	resp, err := h.Handle(application.AppMessage{Type: TypeDHCPStatus})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	status, ok := resp.Payload.(DHCPStatus)
	if !ok {
		t.Fatalf("payload type = %T, want DHCPStatus", resp.Payload)
	}
	if status.State != "Bound" || status.Address != "10.0.0.5" {
		t.Fatalf("status = %+v", status)
	}
}

func TestHandlerRejectsUnknownType(t *testing.T) {
	h := New(func() DHCPStatus { return DHCPStatus{} })
	if _, err := h.Handle(application.AppMessage{Type: "unknown"}); err == nil {
		t.Fatalf("expected error for unknown message type")
	}
}
