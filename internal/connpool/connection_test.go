package connpool

import "testing"

func TestConnectionStateTransitions(t *testing.T) {
	conn := newConnection(nil, "ag_catalog")
	if conn.State() != StateIdle {
		t.Fatalf("new connection should start IDLE, got %s", conn.State())
	}

	conn.markActive("SELECT 1")
	if conn.State() != StateActive {
		t.Fatalf("expected ACTIVE after markActive, got %s", conn.State())
	}

	conn.markIdle()
	if conn.State() != StateIdle {
		t.Fatalf("expected IDLE after markIdle, got %s", conn.State())
	}

	conn.markActive("SELECT 2")
	conn.markError(nil)
	if conn.State() != StateError {
		t.Fatalf("expected ERROR after markError, got %s", conn.State())
	}
}

func TestConnectionMarkIdleDoesNotReviveClosed(t *testing.T) {
	conn := newConnection(nil, "")
	conn.markClosed()
	conn.markIdle()
	if conn.State() != StateClosed {
		t.Fatalf("markIdle must not revive a CLOSED connection, got %s", conn.State())
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:   "IDLE",
		StateActive: "ACTIVE",
		StateError:  "ERROR",
		StateClosed: "CLOSED",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("state %d: expected %q, got %q", state, want, got)
		}
	}
}

func TestAcquisitionSiteTagging(t *testing.T) {
	conn := newConnection(nil, "")
	conn.setAcquisitionSite("loader.Load")
	if got := conn.AcquisitionSite(); got != "loader.Load" {
		t.Fatalf("expected acquisition site to be recorded, got %q", got)
	}
}
