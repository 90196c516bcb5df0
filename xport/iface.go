package xport

import (
	"fmt"
	"net"

	"github.com/tmarrinan/hpcstream-go/cmn"
)

// IPv4ForInterface probes the named network interface for its first IPv4
// address (spec.md §4.1 producer step 2).
func IPv4ForInterface(name string) ([4]byte, error) {
	var out [4]byte
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return out, fmt.Errorf("%w: %s", cmn.ErrUnknownInterface, name)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return out, err
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			copy(out[:], ip4)
			return out, nil
		}
	}
	return out, fmt.Errorf("%w: %s has no IPv4 address", cmn.ErrUnknownInterface, name)
}
