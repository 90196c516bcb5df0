package xport

import (
	"fmt"
	"math/rand"

	"github.com/tmarrinan/hpcstream-go/cmn"
)

// PickPort shuffles [min,max] with rng and attempts net.Listen in that
// order, returning the first successful bind (spec.md §4.1 producer step 1).
// Fails with cmn.ErrPortRangeExhausted once every port in the range has
// been tried.
func PickPort(host string, min, max uint16, rng *rand.Rand) (*Listener, uint16, error) {
	if max < min {
		return nil, 0, fmt.Errorf("xport: invalid port range [%d,%d]", min, max)
	}
	n := int(max-min) + 1
	order := rng.Perm(n)
	for _, i := range order {
		port := min + uint16(i)
		ln, err := Listen(fmt.Sprintf("%s:%d", host, port), 64)
		if err == nil {
			return ln, port, nil
		}
	}
	return nil, 0, cmn.ErrPortRangeExhausted
}
