package group

import (
	"encoding/binary"
	"fmt"

	"github.com/tmarrinan/hpcstream-go/xport"
)

// TCPComm is a star-topology Comm rooted at rank 0: every other rank dials
// rank 0's control address once at startup; rank 0 accepts. Gather is one
// hop (leaf→root) and Broadcast one hop (root→leaves); Barrier is a
// Gather followed by a Broadcast of zero-length payloads. This is the multi-process
// analogue of LocalComm, for a Producer/Consumer cluster actually spread
// across machines.
type TCPComm struct {
	rank, size int
	ln         *xport.Listener // non-nil only at rank 0
	byRank     []*xport.Conn   // rank 0: peer connections indexed by rank (nil at index 0)
	toRoot     *xport.Conn     // non-root: connection to rank 0
	events     <-chan xport.Event

	// pending buffers a root-only event that arrived for some other rank
	// while rootRecvFrom was waiting on a different one — the single-comm
	// equivalent of consumer.Peer.recvOneFrom's requeue, but local since nothing else
	// is draining this comm's channel concurrently.
	pending map[int][]xport.Event
}

// NewTCPRoot binds addr and blocks until size-1 followers have connected and
// announced their rank.
func NewTCPRoot(addr string, size int) (*TCPComm, error) {
	ln, err := xport.Listen(addr, size*2)
	if err != nil {
		return nil, err
	}
	// events is ln's own channel: every accepted Conn's recvLoop was handed
	// ln's sink at accept time (xport.Listener.acceptLoop), so post-rendezvous
	// per-rank traffic keeps arriving on the same channel the rendezvous loop
	// below already reads from.
	c := &TCPComm{rank: 0, size: size, ln: ln, byRank: make([]*xport.Conn, size), events: ln.Events(), pending: make(map[int][]xport.Event)}
	pending := map[uint64]*xport.Conn{}
	for connected := 0; connected < size-1; {
		ev := <-ln.Events()
		switch ev.Kind {
		case xport.EventConnect:
			pending[ev.Conn.ID] = ev.Conn
		case xport.EventData:
			rank, err := decodeRankAnnounce(ev.Data)
			if err != nil {
				return nil, err
			}
			if rank <= 0 || rank >= size || c.byRank[rank] != nil {
				return nil, fmt.Errorf("group: bad rank announcement %d (size=%d)", rank, size)
			}
			c.byRank[rank] = ev.Conn
			delete(pending, ev.Conn.ID)
			connected++
		case xport.EventClose:
			return nil, fmt.Errorf("group: follower disconnected during rendezvous: %v", ev.Err)
		}
	}
	return c, nil
}

// DialTCPFollower connects to rootAddr and announces rank.
func DialTCPFollower(rootAddr string, rank, size int) (*TCPComm, error) {
	events := make(chan xport.Event, 8)
	conn, err := xport.Dial(rootAddr, events)
	if err != nil {
		return nil, err
	}
	if err := conn.Send(encodeRankAnnounce(rank)); err != nil {
		return nil, err
	}
	return &TCPComm{rank: rank, size: size, toRoot: conn, events: events}, nil
}

func encodeRankAnnounce(rank int) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(rank))
	return b[:]
}

func decodeRankAnnounce(b []byte) (int, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("group: malformed rank announcement (%d bytes)", len(b))
	}
	return int(binary.BigEndian.Uint32(b)), nil
}

func (c *TCPComm) Rank() int { return c.rank }
func (c *TCPComm) Size() int { return c.size }

func (c *TCPComm) Close() error {
	if c.ln != nil {
		for _, conn := range c.byRank {
			if conn != nil {
				conn.Close()
			}
		}
		return c.ln.Close()
	}
	if c.toRoot != nil {
		return c.toRoot.Close()
	}
	return nil
}

// rankOf finds the rank byRank associates with conn, or -1 (a rendezvous
// artifact or already-closed peer, safe to ignore).
func (c *TCPComm) rankOf(conn *xport.Conn) int {
	for r, pc := range c.byRank {
		if pc == conn {
			return r
		}
	}
	return -1
}

func (c *TCPComm) consumeFrom(rank int, ev xport.Event) ([]byte, error) {
	switch ev.Kind {
	case xport.EventData:
		return ev.Data, nil
	case xport.EventClose:
		return nil, fmt.Errorf("group: rank %d disconnected: %v", rank, ev.Err)
	default:
		return nil, fmt.Errorf("group: unexpected event kind %v from rank %d", ev.Kind, rank)
	}
}

// rootRecvFrom blocks until rank's next message arrives, buffering any
// other rank's message that arrives first in c.pending so a later call for
// that rank still observes it (events may arrive interleaved across ranks,
// spec.md's group communicator gives no ordering guarantee across peers).
func (c *TCPComm) rootRecvFrom(rank int) ([]byte, error) {
	if buffered := c.pending[rank]; len(buffered) > 0 {
		ev := buffered[0]
		c.pending[rank] = buffered[1:]
		return c.consumeFrom(rank, ev)
	}
	for {
		ev := <-c.events
		r := c.rankOf(ev.Conn)
		if r == rank {
			return c.consumeFrom(rank, ev)
		}
		if r >= 0 {
			c.pending[r] = append(c.pending[r], ev)
		}
	}
}

func (c *TCPComm) Gather(data []byte) ([][]byte, error) {
	if c.rank == 0 {
		out := make([][]byte, c.size)
		out[0] = data
		for r := 1; r < c.size; r++ {
			b, err := c.rootRecvFrom(r)
			if err != nil {
				return nil, err
			}
			out[r] = b
		}
		return out, nil
	}
	if err := c.toRoot.Send(data); err != nil {
		return nil, err
	}
	return nil, nil // non-root ranks get nil; only rank 0 sees the gathered slice (see Broadcast for fan-out)
}

func (c *TCPComm) Broadcast(root int, data []byte) ([]byte, error) {
	if root != 0 {
		return nil, fmt.Errorf("group: TCPComm only supports root=0 (star topology)")
	}
	if c.rank == 0 {
		for r := 1; r < c.size; r++ {
			if err := c.byRank[r].Send(data); err != nil {
				return nil, err
			}
		}
		return data, nil
	}
	ev := <-c.events
	if ev.Kind != xport.EventData {
		return nil, fmt.Errorf("group: expected broadcast data, got close: %v", ev.Err)
	}
	return ev.Data, nil
}

func (c *TCPComm) Barrier() error {
	if c.rank == 0 {
		if _, err := c.Gather(nil); err != nil {
			return err
		}
		_, err := c.Broadcast(0, nil)
		return err
	}
	if _, err := c.Gather(nil); err != nil {
		return err
	}
	_, err := c.Broadcast(0, nil)
	return err
}

var _ Comm = (*TCPComm)(nil)
