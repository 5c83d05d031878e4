package settings

import "testing"

func TestResolveMTU_Default(t *testing.T) {
	if got := ResolveMTU(0); got != DefaultEthernetMTU {
		t.Fatalf("ResolveMTU(0) = %d, want %d", got, DefaultEthernetMTU)
	}
	if got := ResolveMTU(-1); got != DefaultEthernetMTU {
		t.Fatalf("ResolveMTU(-1) = %d, want %d", got, DefaultEthernetMTU)
	}
}

func TestResolveMTU_Leased(t *testing.T) {
	if got := ResolveMTU(1350); got != 1350 {
		t.Fatalf("ResolveMTU(1350) = %d", got)
	}
}

func TestUDPBufferSize(t *testing.T) {
	want := DefaultEthernetMTU + UDPChacha20Overhead
	if got := UDPBufferSize(0); got != want {
		t.Fatalf("UDPBufferSize(0) = %d, want %d", got, want)
	}
	if got := UDPBufferSize(1350); got != 1350+UDPChacha20Overhead {
		t.Fatalf("UDPBufferSize(1350) = %d", got)
	}
}
