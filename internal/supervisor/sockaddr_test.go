package supervisor

import "testing"

// Example bytes: sockaddr_in for 93.184.216.34:443.
func TestParseSockaddr_IPv4(t *testing.T) {
	data := []byte{0x02, 0x00, 0x01, 0xBB, 0x5D, 0xB8, 0xD8, 0x22, 0x00, 0x00, 0x00, 0x00}
	target, ok, err := ParseSockaddr(data)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a target")
	}
	if target.Host != "93.184.216.34" {
		t.Errorf("Host = %q, want 93.184.216.34", target.Host)
	}
	if target.Port != 443 {
		t.Errorf("Port = %d, want 443", target.Port)
	}
}

func TestParseSockaddr_IPv6(t *testing.T) {
	data := make([]byte, 24)
	data[0] = 0x0A // AF_INET6
	data[2] = 0x1F
	data[3] = 0x90 // port 8080
	for i := 0; i < 16; i++ {
		data[8+i] = byte(i + 1)
	}
	target, ok, err := ParseSockaddr(data)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a target")
	}
	if target.Port != 8080 {
		t.Errorf("Port = %d, want 8080", target.Port)
	}
	if target.Host != "102:304:506:708:90a:b0c:d0e:f10" {
		t.Errorf("Host = %q", target.Host)
	}
}

func TestParseSockaddr_UnknownFamilyAllowsWithoutTarget(t *testing.T) {
	data := []byte{0x01, 0x00, 0x00, 0x00}
	_, ok, err := ParseSockaddr(data)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no target for an unrecognized family")
	}
}

func TestParseSockaddr_ShortReadFails(t *testing.T) {
	data := []byte{0x02, 0x00, 0x01, 0xBB}
	_, _, err := ParseSockaddr(data)
	if err == nil {
		t.Error("expected a short-read error")
	}
}
