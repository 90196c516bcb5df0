package group

import "sync"

// LocalComm is an in-memory Comm for single-process tests where every rank
// of a role runs as a goroutine in the same binary (S1-S6 in spec.md §8 do
// not require separate processes). NewLocalGroup builds Size() of them,
// sharing one coordinator so Gather/Broadcast/Barrier behave as a true
// collective instead of N independent stubs.
type localGroup struct {
	mu      sync.Mutex
	cond    *sync.Cond
	size    int
	arrived int
	gen     int
	contrib [][]byte
	bcast   []byte
}

// NewLocalGroup returns n Comm implementations, one per rank, all members of
// the same collective.
func NewLocalGroup(n int) []Comm {
	g := &localGroup{size: n, contrib: make([][]byte, n)}
	g.cond = sync.NewCond(&g.mu)
	comms := make([]Comm, n)
	for r := 0; r < n; r++ {
		comms[r] = &localComm{rank: r, g: g}
	}
	return comms
}

type localComm struct {
	rank int
	g    *localGroup
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.g.size }
func (c *localComm) Close() error { return nil }

// Barrier implements a reusable cyclic barrier: the generation counter lets
// the same Comm be barriered repeatedly (each bootstrap step, and
// optionally once per frame) without a fresh rendezvous object every time.
func (c *localComm) Barrier() error {
	g := c.g
	g.mu.Lock()
	defer g.mu.Unlock()
	gen := g.gen
	g.arrived++
	if g.arrived == g.size {
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
		return nil
	}
	for g.gen == gen {
		g.cond.Wait()
	}
	return nil
}

func (c *localComm) Gather(data []byte) ([][]byte, error) {
	g := c.g
	g.mu.Lock()
	g.contrib[c.rank] = data
	g.mu.Unlock()
	if err := c.Barrier(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	out := make([][]byte, g.size)
	copy(out, g.contrib)
	g.mu.Unlock()
	// second barrier: nobody overwrites contrib before every rank has read it
	if err := c.Barrier(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *localComm) Broadcast(root int, data []byte) ([]byte, error) {
	g := c.g
	if c.rank == root {
		g.mu.Lock()
		g.bcast = data
		g.mu.Unlock()
	}
	if err := c.Barrier(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	out := g.bcast
	g.mu.Unlock()
	if err := c.Barrier(); err != nil {
		return nil, err
	}
	return out, nil
}
