package netutil

import (
	"testing"
	"time"
)

func TestFamilyNetwork(t *testing.T) {
	if FamilyV4.Network() != "tcp4" {
		t.Fatalf("v4 network = %q", FamilyV4.Network())
	}
	if FamilyV6.Network() != "tcp6" {
		t.Fatalf("v6 network = %q", FamilyV6.Network())
	}
}

func TestClientForFamilyTimeout(t *testing.T) {
	c := ClientForFamily(FamilyV4, 2*time.Second)
	if c.Timeout != 2*time.Second {
		t.Fatalf("timeout = %s", c.Timeout)
	}
	if c.Transport == nil {
		t.Fatalf("family-pinned client must carry its own transport")
	}
}
