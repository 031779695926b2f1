package watch

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"winewarden/internal/types"
)

// NetWatcher diffs /proc/<pid>/net/{tcp,udp} between Drain calls, surfacing
// one synthetic Network AccessAttempt per newly observed remote endpoint.
// This is the "net" auxiliary source; it never
// itself decides policy, it only reports what the connect/bind seccomp
// interception path might miss (e.g. connections established by a
// descendant process outside the filtered pid).
type NetWatcher struct {
	pid  int
	seen map[string]bool
}

// NewNetWatcher returns a watcher scoped to pid's network namespace view.
func NewNetWatcher(pid int) *NetWatcher {
	return &NetWatcher{pid: pid, seen: make(map[string]bool)}
}

// Drain rereads /proc/<pid>/net/{tcp,udp} and returns one event per
// not-yet-seen remote endpoint.
func (nw *NetWatcher) Drain() []Event {
	var out []Event
	for _, proto := range []string{"tcp", "udp"} {
		out = append(out, nw.drainProto(proto)...)
	}
	return out
}

func (nw *NetWatcher) drainProto(proto string) []Event {
	path := filepath.Join("/proc", strconv.Itoa(nw.pid), "net", proto)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var out []Event
	lines := strings.Split(string(data), "\n")
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		host, port, ok := parseHexAddr(fields[2])
		if !ok || host == "" {
			continue
		}
		// Listening sockets show an all-zero remote endpoint; only
		// established peers are interesting here.
		if host == "0.0.0.0" && port == 0 {
			continue
		}
		key := proto + ":" + fields[2]
		if nw.seen[key] {
			continue
		}
		nw.seen[key] = true

		out = append(out, Event{
			Source: "net",
			Attempt: types.AccessAttempt{
				Timestamp: time.Now(),
				Kind:      types.AccessNetwork,
				Target: types.AccessTarget{
					Kind: types.TargetNetwork,
					Network: types.NetworkTarget{
						Host:     host,
						Port:     port,
						Protocol: proto,
					},
				},
			},
		})
	}
	return out
}

// parseHexAddr parses /proc/net/{tcp,udp}'s "rem_address" field, a
// little-endian hex IPv4 address followed by a colon and a hex port.
func parseHexAddr(field string) (host string, port uint16, ok bool) {
	parts := strings.Split(field, ":")
	if len(parts) != 2 {
		return "", 0, false
	}
	addrBytes, err := hex.DecodeString(parts[0])
	if err != nil || len(addrBytes) != 4 {
		return "", 0, false
	}
	p, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return "", 0, false
	}
	// /proc's address word is little-endian relative to the byte order
	// the kernel prints, so reverse to get dotted-quad byte order.
	host = fmt.Sprintf("%d.%d.%d.%d", addrBytes[3], addrBytes[2], addrBytes[1], addrBytes[0])
	return host, uint16(p), true
}

// Close is a no-op: NetWatcher owns no resources beyond the seen-set.
func (nw *NetWatcher) Close() error { return nil }
