package consumer

import (
	"github.com/tmarrinan/hpcstream-go/schema"
	"github.com/tmarrinan/hpcstream-go/wire"
	"github.com/tmarrinan/hpcstream-go/xport"
)

// Read implements spec.md §6/§4.3 read(): drains every owned connection
// until each has delivered its end-of-frame sentinel, updating variable
// value_bufs and ArraySize dimension caches as messages arrive. A consumer
// whose partition share is empty (spec.md §9 "C > P") returns immediately —
// it has nothing to drain and must not block.
func (p *Peer) Read() error {
	if len(p.Connections) == 0 {
		return nil
	}
	for _, c := range p.Connections {
		c.doneThisFrame = false
	}
	for !p.allDoneThisFrame() {
		ev := <-p.events
		p.handleFrameEvent(ev)
	}
	return nil
}

func (p *Peer) allDoneThisFrame() bool {
	for _, c := range p.Connections {
		if !c.doneThisFrame {
			return false
		}
	}
	return true
}

func (p *Peer) connectionFor(c *xport.Conn) *Connection {
	for _, conn := range p.Connections {
		if conn.Conn == c {
			return conn
		}
	}
	return nil
}

func (p *Peer) handleFrameEvent(ev xport.Event) {
	conn := p.connectionFor(ev.Conn)
	if conn == nil {
		return // control-plane event (e.g. group.TCPComm traffic sharing no channel here)
	}
	switch ev.Kind {
	case xport.EventData:
		p.handleFrameData(conn, ev.Data)
	case xport.EventClose:
		conn.doneThisFrame = true // don't hang the drain loop on a dead connection
		p.logger.Warningf("consumer: connection to producer %d closed mid-frame: %v", conn.ProducerRank, ev.Err)
	}
}

func (p *Peer) handleFrameData(conn *Connection, data []byte) {
	if schema.IsSentinel(data) {
		conn.doneThisFrame = true
		if p.Stats != nil {
			p.Stats.FramesTotal.WithLabelValues("consumer", p.rankLabel()).Inc()
		}
		return
	}
	if p.Stats != nil {
		p.Stats.BytesTotal.WithLabelValues("consumer", p.rankLabel()).Add(float64(len(data)))
	}
	name, payload, err := schema.DecodeFrameValue(data)
	if err != nil {
		p.logger.Warningf("consumer: %v", err)
		return
	}
	v, ok := conn.Vars[name]
	if !ok {
		p.logger.Warningf("consumer: frame value for undeclared variable %q", name)
		return
	}
	v.ValueBuf = append(v.ValueBuf[:0], payload...)

	if v.IsResolvedArraySizeScalar() && len(v.ValueBuf) >= 4 {
		newVal := wire.NativeUint32(v.ValueBuf)
		for _, other := range conn.Vars {
			if other == v {
				continue
			}
			other.ResolveDimension(name, newVal)
		}
	}
}

// ReleaseTimeStep implements spec.md §6/§4.3 release_time_step(): sends the
// release sentinel on every owned connection.
func (p *Peer) ReleaseTimeStep() error {
	for _, c := range p.Connections {
		if err := c.Conn.Send([]byte{schema.Sentinel}); err != nil {
			p.logger.Warningf("consumer: release send to producer %d failed: %v", c.ProducerRank, err)
			continue
		}
		if p.Stats != nil {
			p.Stats.ReleasesTotal.WithLabelValues("consumer", p.rankLabel()).Inc()
		}
	}
	return nil
}
