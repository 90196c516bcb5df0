package producer

import (
	"time"

	"github.com/tmarrinan/hpcstream-go/cmn"
	"github.com/tmarrinan/hpcstream-go/schema"
	"github.com/tmarrinan/hpcstream-go/wire"
	"github.com/tmarrinan/hpcstream-go/xport"
)

// localEndianness is this process's probed byte order (spec.md §3
// "Endianness"), looked up lazily rather than cached on Peer so it reads the
// same way at every call site that needs it.
func localEndianness() wire.Endian { return wire.DetectEndianness() }

// drainNonBlocking processes every event already queued on the listener
// without waiting for more — used by Write/AdvanceTimeStep in DropFrames
// mode and as the first step of AdvanceTimeStep in either mode, per spec.md
// §4.3 "simultaneously accepting new Connect events and advancing their
// state machines."
func (p *Peer) drainNonBlocking() {
	for {
		select {
		case ev := <-p.ln.Events():
			p.handleEvent(ev)
		default:
			return
		}
	}
}

// drainBlocking processes events until until() reports true, honoring the
// given deadline if nonzero (spec.md §4.3 wait-for-all drain; SPEC_FULL.md
// §4.3 additive per-frame deadline — pass 0 for the unbounded waits
// VarDefinitionsComplete needs, which spec.md never describes as having a
// timeout).
func (p *Peer) drainBlocking(until func() bool, deadlineDur time.Duration) error {
	if until() {
		return nil
	}
	var deadline <-chan time.Time
	if deadlineDur > 0 {
		t := time.NewTimer(deadlineDur)
		defer t.Stop()
		deadline = t.C
	}
	for {
		select {
		case ev := <-p.ln.Events():
			p.handleEvent(ev)
			if until() {
				return nil
			}
		case <-deadline:
			waiting := 0
			for _, released := range p.pendingRelease {
				if !released {
					waiting++
				}
			}
			p.logger.Errorf("producer: frame deadline (%s) exceeded, %d/%d connections had not released", p.frameDeadline, waiting, p.streamingCount)
			return &cmn.FrameDeadlineError{Waiting: waiting, Total: p.streamingCount}
		}
	}
}

func (p *Peer) handleEvent(ev xport.Event) {
	switch ev.Kind {
	case xport.EventConnect:
		p.onConnect(ev.Conn)
	case xport.EventData:
		p.onData(ev.Conn, ev.Data)
	case xport.EventClose:
		p.onClose(ev.Conn)
	}
}

func (p *Peer) onConnect(c *xport.Conn) {
	conn := &Connection{Conn: c, State: Connecting}
	p.conns[c.ID] = conn
	if p.rank == 0 {
		// spec.md §4.1 producer handshake acceptance: "the producer sends
		// the three-message endpoint advertisement (only from rank-0 — other
		// ranks send nothing at connect time)."
		if err := c.Send([]byte{byte(localEndianness())}); err != nil {
			p.logger.Warningf("producer: master endianness send failed: %v", err)
			return
		}
		if err := c.Send(p.masterIPs); err != nil {
			p.logger.Warningf("producer: master ip-list send failed: %v", err)
			return
		}
		if err := c.Send(p.masterPorts); err != nil {
			p.logger.Warningf("producer: master port-list send failed: %v", err)
		}
	}
}

func (p *Peer) onClose(c *xport.Conn) {
	conn, ok := p.conns[c.ID]
	if !ok {
		return
	}
	conn.State = Finished
	delete(p.pendingRelease, c.ID)
	delete(p.conns, c.ID)
}

func (p *Peer) onData(c *xport.Conn, data []byte) {
	conn, ok := p.conns[c.ID]
	if !ok {
		return
	}
	switch conn.State {
	case Connecting:
		p.onHandshake(conn, data)
	case Streaming:
		if schema.IsSentinel(data) {
			p.pendingRelease[c.ID] = true
			if p.Stats != nil {
				p.Stats.ReleasesTotal.WithLabelValues("producer", p.rankLabel()).Inc()
			}
		}
	default:
		p.logger.Warningf("producer: unexpected message on connection in state %s", conn.State)
	}
}

func (p *Peer) onHandshake(conn *Connection, data []byte) {
	hs, err := schema.DecodeHandshake(data)
	if err != nil {
		p.logger.Warningf("producer: %v", cmn.NewHandshakeError("%v", err))
		conn.Conn.Close()
		delete(p.conns, conn.Conn.ID)
		return
	}
	if int(hs.RemoteRanksTotal) != p.size {
		p.logger.Warningf("producer: %v", cmn.NewHandshakeError("remote_ranks_total=%d, want %d", hs.RemoteRanksTotal, p.size))
		conn.Conn.Close()
		delete(p.conns, conn.Conn.ID)
		return
	}

	conn.ClientID = hs.ClientID
	conn.RemoteRank = int32(hs.Rank)
	conn.RemoteRanksTotal = int32(hs.RemoteRanksTotal)
	conn.SameEndianness = hs.Endianness == localEndianness()
	conn.IsNew = true
	conn.State = Handshake
	if !conn.SameEndianness {
		p.logger.Warningf("producer: connection %d reports endianness %s, ours is %s; proceeding without conversion", conn.ClientID, hs.Endianness, localEndianness())
	}

	if !p.varsFrozen {
		// Schema isn't ready yet; the connection is parked in Handshake and
		// will be flushed by VarDefinitionsComplete's flushPendingHandshakes
		// once it builds schemaBlob.
		return
	}
	p.sendSchemaAndStream(conn)
}

// flushPendingHandshakes sends the schema to any connection that completed
// its handshake before the schema was frozen.
func (p *Peer) flushPendingHandshakes() {
	for _, conn := range p.conns {
		if conn.State == Handshake {
			p.sendSchemaAndStream(conn)
		}
	}
}

func (p *Peer) sendSchemaAndStream(conn *Connection) {
	if err := conn.Conn.Send(p.schemaBlob.Bytes()); err != nil {
		p.logger.Warningf("producer: schema send to connection %d failed: %v", conn.ClientID, err)
		conn.Conn.Close()
		delete(p.conns, conn.Conn.ID)
		return
	}
	conn.State = Streaming
	p.streamingCount++
	if p.Stats != nil {
		p.Stats.ConnectionsTotal.WithLabelValues("producer", p.rankLabel()).Inc()
	}
}
