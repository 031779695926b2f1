package watch

import "testing"

func TestParseHexAddr(t *testing.T) {
	// 127.0.0.1:80 little-endian hex as /proc/net/tcp prints it.
	host, port, ok := parseHexAddr("0100007F:0050")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", host)
	}
	if port != 80 {
		t.Errorf("port = %d, want 80", port)
	}
}

func TestParseHexAddr_Invalid(t *testing.T) {
	if _, _, ok := parseHexAddr("not-an-addr"); ok {
		t.Error("expected failure on malformed field")
	}
}

func TestNetWatcher_DrainNonexistentPidReturnsNil(t *testing.T) {
	nw := NewNetWatcher(999999999)
	if events := nw.Drain(); events != nil {
		t.Errorf("expected nil for nonexistent pid, got %v", events)
	}
}
