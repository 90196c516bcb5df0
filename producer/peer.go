// Package producer implements spec.md §2's Producer Peer: binds a listener,
// participates in the endpoint-gather collective, accepts and handshakes
// consumer connections, owns the authoritative variable schema, and drives
// the per-frame send/flow-control cycle. Grounded on aistore's primary-node
// bootstrap shape (one rank gathers and serves a cluster map to joiners) and
// on go-mcast/core.Peer's single-event-channel main loop.
package producer

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/tmarrinan/hpcstream-go/cmn"
	"github.com/tmarrinan/hpcstream-go/group"
	"github.com/tmarrinan/hpcstream-go/schema"
	"github.com/tmarrinan/hpcstream-go/stats"
	"github.com/tmarrinan/hpcstream-go/wire"
	"github.com/tmarrinan/hpcstream-go/xport"
)

// Peer is one producer rank. Its exported methods are the Go realization of
// spec.md §6's producer public operations.
type Peer struct {
	comm   group.Comm
	rank   int
	size   int
	logger cmn.Logger

	ln        *xport.Listener
	localIP   [4]byte
	localPort uint16

	// masterIPs/masterPorts are populated only on rank 0: every producer
	// rank's advertised endpoint, network order, for the three framed
	// messages sent to a fresh consumer master connection (spec.md §4.1
	// consumer step 1).
	masterIPs   []byte
	masterPorts []byte

	vars      map[string]*schema.Variable
	varOrder  []string // declaration order, for deterministic schema encode
	varsFrozen bool
	schemaBlob *schema.Blob

	behavior         cmn.StreamBehavior
	initialWaitCount int
	frameDeadline    time.Duration

	conns          map[uint64]*Connection // keyed by xport.Conn.ID
	streamingCount int
	pendingRelease map[uint64]bool // this frame's Streaming snapshot, keyed by xport.Conn.ID

	// Stats is nil by default; cmd/producer wires a *stats.Registry in.
	Stats *stats.Registry
}

func (p *Peer) rankLabel() string { return fmt.Sprintf("%d", p.rank) }

// LocalPort and LocalIP expose the address this rank bound to, for a caller
// (e.g. cmd/producer) that needs to hand the master rank's address to a
// consumer out of band — spec.md itself has no discovery mechanism beyond
// "supplied externally" (§4.1 consumer step 1).
func (p *Peer) LocalPort() uint16  { return p.localPort }
func (p *Peer) LocalIP() [4]byte   { return p.localIP }
func (p *Peer) Rank() int          { return p.rank }

// Close tears down this rank's listener and every open connection. Not part
// of spec.md's operation set (the spec describes no shutdown path), but
// every real process needs one to release its bound port and sockets.
func (p *Peer) Close() error {
	for _, conn := range p.conns {
		conn.Conn.Close()
	}
	return p.ln.Close()
}

// New implements spec.md §6 new(interface_name, port_min, port_max, comm):
// binds a listener on a port chosen from [portMin,portMax], probes iface for
// the advertised IPv4 address, then gathers every rank's (ip,port) via comm.
func New(iface string, portMin, portMax uint16, comm group.Comm) (*Peer, error) {
	return NewWithConfig(cmn.Config{Iface: iface, PortMin: portMin, PortMax: portMax}, comm, cmn.NlogLogger{}, nil)
}

// NewWithConfig is the fuller constructor cmd/producer uses, accepting the
// whole ambient Config, an injectable Logger, and an optional stats Registry
// (nil disables metrics entirely). cfg.Behavior and cfg.InitialWaitCount are
// not read here: the caller passes them to VarDefinitionsComplete.
// cfg.FrameDeadline bounds AdvanceTimeStep's WaitForAll drain.
func NewWithConfig(cfg cmn.Config, comm group.Comm, logger cmn.Logger, reg *stats.Registry) (*Peer, error) {
	if logger == nil {
		logger = cmn.DiscardLogger{}
	}
	rng := rand.New(rand.NewSource(int64(comm.Rank()) + 1))
	ln, port, err := xport.PickPort("0.0.0.0", cfg.PortMin, cfg.PortMax, rng)
	if err != nil {
		return nil, cmn.NewBootstrapError("port-select", err)
	}
	ip, err := xport.IPv4ForInterface(cfg.Iface)
	if err != nil {
		ln.Close()
		return nil, cmn.NewBootstrapError("interface", err)
	}

	p := &Peer{
		comm:           comm,
		rank:           comm.Rank(),
		size:           comm.Size(),
		logger:         logger,
		ln:             ln,
		localIP:        ip,
		localPort:      port,
		vars:           make(map[string]*schema.Variable),
		frameDeadline:  cfg.FrameDeadline,
		conns:          make(map[uint64]*Connection),
		pendingRelease: make(map[uint64]bool),
		Stats:          reg,
	}

	payload := make([]byte, 6)
	copy(payload[0:4], ip[:])
	wire.NetworkOrder.PutUint16(payload[4:6], port)
	gathered, err := comm.Gather(payload)
	if err != nil {
		ln.Close()
		return nil, cmn.NewBootstrapError("group-gather", err)
	}

	if p.rank == 0 {
		p.masterIPs = make([]byte, 4*p.size)
		p.masterPorts = make([]byte, 2*p.size)
		for r := 0; r < p.size; r++ {
			copy(p.masterIPs[4*r:4*r+4], gathered[r][0:4])
			copy(p.masterPorts[2*r:2*r+2], gathered[r][4:6])
		}
	}

	logger.Infof("producer rank %d/%d listening on %s:%d", p.rank, p.size, cfg.Iface, port)
	return p, nil
}

// DefineVar implements spec.md §6 define_var. Empty csv triples declare a
// scalar; otherwise all three lists must be non-empty, equal length.
func (p *Peer) DefineVar(name string, baseType schema.DataType, globalSizeCSV, localSizeCSV, localOffsetCSV string) error {
	if p.varsFrozen {
		return fmt.Errorf("producer: cannot define_var %q after var_definitions_complete", name)
	}
	if _, exists := p.vars[name]; exists {
		return fmt.Errorf("producer: variable %q already defined", name)
	}
	gs := schema.ParseNameList(globalSizeCSV)
	ls := schema.ParseNameList(localSizeCSV)
	lo := schema.ParseNameList(localOffsetCSV)

	var v *schema.Variable
	var err error
	if len(gs) == 0 && len(ls) == 0 && len(lo) == 0 {
		v, err = schema.NewScalar(name, baseType)
	} else {
		v, err = schema.NewArray(name, baseType, gs, ls, lo)
	}
	if err != nil {
		return err
	}
	p.vars[name] = v
	p.varOrder = append(p.varOrder, name)
	return nil
}

// VarDefinitionsComplete implements spec.md §6 var_definitions_complete:
// freezes the schema, serializes it once, then blocks until initialWaitCount
// consumer connections have reached Streaming.
func (p *Peer) VarDefinitionsComplete(behavior cmn.StreamBehavior, initialWaitCount int) error {
	if p.varsFrozen {
		return fmt.Errorf("producer: var_definitions_complete already called")
	}
	ordered := make([]*schema.Variable, 0, len(p.varOrder))
	for _, name := range p.varOrder {
		ordered = append(ordered, p.vars[name])
	}
	p.schemaBlob = schema.Encode(ordered)
	p.varsFrozen = true
	p.behavior = behavior
	p.initialWaitCount = initialWaitCount
	p.flushPendingHandshakes()

	return p.drainBlocking(func() bool { return p.streamingCount >= p.initialWaitCount }, 0)
}

// SetValue implements spec.md §6 set_value: copies a scalar payload or
// rebinds an array's payload pointer (Go: the caller's byte slice is
// borrowed, not copied, for arrays — spec.md §9 "explicit borrowed-buffer
// semantics"), marks Updated, and propagates an ArraySize scalar's new value
// into every dependent array's dimension caches.
func (p *Peer) SetValue(name string, value []byte) error {
	v, ok := p.vars[name]
	if !ok {
		return fmt.Errorf("producer: set_value on undeclared variable %q", name)
	}
	if v.IsArray() && v.Length == 0 {
		return cmn.ErrDimensionNotReady
	}
	if v.IsArray() {
		v.ValueBuf = value // borrowed, not copied (spec.md §9)
	} else {
		if len(value) != int(v.ElementSize) {
			return fmt.Errorf("producer: set_value %q expected %d bytes, got %d", name, v.ElementSize, len(value))
		}
		copy(v.ValueBuf, value)
	}
	v.Updated = true

	if v.IsResolvedArraySizeScalar() {
		// ArraySize payloads are native-order (spec.md §4.2), the same
		// convention consumer/frame.go's decode uses on receipt.
		newVal := wire.NativeUint32(v.ValueBuf)
		for _, other := range p.vars {
			if other == v {
				continue
			}
			other.ResolveDimension(name, newVal)
		}
	}
	return nil
}
