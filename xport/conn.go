package xport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/teris-io/shortid"
)

var nextConnID uint64

// tagGen produces the short human-readable Tag every Conn carries for log
// correlation, the same role teris-io/shortid plays in aistore/cmn/cos's
// UUID generator — here applied to connections instead of daemons.
var tagGen = shortid.MustNew(1, shortid.DEFAULT_ABC, 1)

// Conn is one TCP connection in the mesh: a producer's connection to one
// consumer peer, or a consumer's connection to one producer peer. xport
// itself adds exactly one framing layer — a u32 byte count ahead of every
// message — so that everything inside a received Data event is exactly the
// bytes spec.md §4.2/§4.3 describe, nothing more.
type Conn struct {
	ID   uint64
	Tag  string // short id for log lines, independent of the numeric ID
	nc   net.Conn
	sink chan<- Event

	wmu    sync.Mutex
	closed atomic.Bool
}

func newConn(nc net.Conn, sink chan<- Event) *Conn {
	return &Conn{ID: atomic.AddUint64(&nextConnID, 1), Tag: tagGen.MustGenerate(), nc: nc, sink: sink}
}

// Dial opens a TCP connection to addr and starts its receive loop, pushing
// Data/Close events onto sink — the consumer side's half of the mesh
// (spec.md §4.1 consumer step 3).
func Dial(addr string, sink chan<- Event) (*Conn, error) {
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c := newConn(nc, sink)
	go c.recvLoop()
	return c, nil
}

func (c *Conn) RemoteAddr() net.Addr { return c.nc.RemoteAddr() }
func (c *Conn) LocalAddr() net.Addr  { return c.nc.LocalAddr() }

// Send writes one length-prefixed message to the peer. Safe for concurrent
// use with Close and with other Sends: wmu serializes the header and body
// writes of each message.
func (c *Conn) Send(msg []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(msg)))
	if _, err := c.nc.Write(hdr[:]); err != nil {
		return fmt.Errorf("xport: send header: %w", err)
	}
	if len(msg) > 0 {
		if _, err := c.nc.Write(msg); err != nil {
			return fmt.Errorf("xport: send body: %w", err)
		}
	}
	return nil
}

func (c *Conn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		return c.nc.Close()
	}
	return nil
}

func (c *Conn) recvLoop() {
	defer func() {
		if c.closed.CompareAndSwap(false, true) {
			c.nc.Close()
		}
	}()
	var hdr [4]byte
	for {
		if _, err := io.ReadFull(c.nc, hdr[:]); err != nil {
			c.sink <- Event{Kind: EventClose, Conn: c, Err: ignoreEOF(err)}
			return
		}
		n := binary.BigEndian.Uint32(hdr[:])
		buf := make([]byte, n)
		if n > 0 {
			if _, err := io.ReadFull(c.nc, buf); err != nil {
				c.sink <- Event{Kind: EventClose, Conn: c, Err: err}
				return
			}
		}
		c.sink <- Event{Kind: EventData, Conn: c, Data: buf}
	}
}

func ignoreEOF(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}
