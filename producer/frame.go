package producer

import (
	"github.com/tmarrinan/hpcstream-go/cmn"
	"github.com/tmarrinan/hpcstream-go/schema"
)

// Write implements spec.md §6/§4.3 write(): enumerates non-array variables,
// then array variables, sending each one whose Updated flag is set or whose
// connection is new, to every Streaming connection; then sends one
// end-of-frame sentinel per connection. The two passes guarantee that any
// array whose size is governed by a scalar updated this same frame sees the
// new size before its payload is decoded on the other end (spec.md §4.3).
func (p *Peer) Write() error {
	p.drainNonBlocking()

	nonArrays, arrays := p.orderedVars()

	p.pendingRelease = make(map[uint64]bool, len(p.conns))
	for _, conn := range p.conns {
		if conn.State != Streaming {
			continue
		}
		for _, v := range nonArrays {
			if v.Updated || conn.IsNew {
				msg := schema.EncodeFrameValue(v)
				if err := conn.Conn.Send(msg); err != nil {
					p.logger.Warningf("producer: send %q to connection %d failed: %v", v.Name, conn.ClientID, err)
				} else if p.Stats != nil {
					p.Stats.BytesTotal.WithLabelValues("producer", p.rankLabel()).Add(float64(len(msg)))
				}
			}
		}
		for _, v := range arrays {
			if v.Updated || conn.IsNew {
				msg := schema.EncodeFrameValue(v)
				if err := conn.Conn.Send(msg); err != nil {
					p.logger.Warningf("producer: send %q to connection %d failed: %v", v.Name, conn.ClientID, err)
				} else if p.Stats != nil {
					p.Stats.BytesTotal.WithLabelValues("producer", p.rankLabel()).Add(float64(len(msg)))
				}
			}
		}
		if err := conn.Conn.Send([]byte{schema.Sentinel}); err != nil {
			p.logger.Warningf("producer: end-of-frame send to connection %d failed: %v", conn.ClientID, err)
			continue
		}
		p.pendingRelease[conn.Conn.ID] = false
		if p.Stats != nil {
			p.Stats.FramesTotal.WithLabelValues("producer", p.rankLabel()).Inc()
		}
	}

	for _, name := range p.varOrder {
		p.vars[name].Updated = false
	}
	for _, conn := range p.conns {
		conn.IsNew = false
	}
	return nil
}

func (p *Peer) orderedVars() (nonArrays, arrays []*schema.Variable) {
	for _, name := range p.varOrder {
		v := p.vars[name]
		if v.IsArray() {
			arrays = append(arrays, v)
		} else {
			nonArrays = append(nonArrays, v)
		}
	}
	return nonArrays, arrays
}

// AdvanceTimeStep implements spec.md §6/§4.3 advance_time_step(): gates the
// next frame per the configured StreamBehavior, while always accepting new
// Connect events and advancing connections' state machines in the process
// (spec.md §4.3).
func (p *Peer) AdvanceTimeStep() error {
	p.drainNonBlocking()
	if p.behavior == cmn.DropFrames {
		return nil
	}
	return p.drainBlocking(p.allReleased, p.frameDeadline)
}

func (p *Peer) allReleased() bool {
	for _, released := range p.pendingRelease {
		if !released {
			return false
		}
	}
	return true
}
