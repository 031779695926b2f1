package supervisor

import (
	"encoding/binary"
	"fmt"

	"winewarden/errors"
	"winewarden/internal/types"
)

const (
	afINET  = 2
	afINET6 = 10
)

// ParseSockaddr decodes a raw sockaddr byte slice. AF_INET carries a
// big-endian port at [2:4] and an IPv4 address at [4:8]; AF_INET6 carries
// a big-endian port at [2:4] and a 16-byte address at [8:24]. Any other
// family yields no target and the caller allows the call without further
// inspection.
func ParseSockaddr(data []byte) (types.NetworkTarget, bool, error) {
	if len(data) < 2 {
		return types.NetworkTarget{}, false, errors.ErrUnsupportedFamily
	}
	family := binary.LittleEndian.Uint16(data[0:2])

	switch family {
	case afINET:
		if len(data) < 8 {
			return types.NetworkTarget{}, false, errors.ErrPartialRead
		}
		port := binary.BigEndian.Uint16(data[2:4])
		host := fmt.Sprintf("%d.%d.%d.%d", data[4], data[5], data[6], data[7])
		return types.NetworkTarget{Host: host, Port: port}, true, nil

	case afINET6:
		if len(data) < 24 {
			return types.NetworkTarget{}, false, errors.ErrPartialRead
		}
		port := binary.BigEndian.Uint16(data[2:4])
		host := formatIPv6(data[8:24])
		return types.NetworkTarget{Host: host, Port: port}, true, nil

	default:
		return types.NetworkTarget{}, false, nil
	}
}

func formatIPv6(addr []byte) string {
	words := make([]uint16, 8)
	for i := 0; i < 8; i++ {
		words[i] = binary.BigEndian.Uint16(addr[i*2 : i*2+2])
	}
	s := ""
	for i, w := range words {
		if i > 0 {
			s += ":"
		}
		s += fmt.Sprintf("%x", w)
	}
	return s
}
