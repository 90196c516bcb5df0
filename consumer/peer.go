// Package consumer implements spec.md §2's Consumer Peer: contacts the
// master producer to learn the full producer endpoint list, partitions
// producers across consumer ranks, opens its share of connections, performs
// the handshake, and receives/decodes the schema on each. Grounded on
// go-mcast/core.Peer's "dial once, fan out the resulting view" bootstrap
// shape and on aistore's primary-discovery client (learn a cluster map from
// one well-known node, then act on your own slice of it).
package consumer

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tmarrinan/hpcstream-go/cmn"
	"github.com/tmarrinan/hpcstream-go/group"
	"github.com/tmarrinan/hpcstream-go/schema"
	"github.com/tmarrinan/hpcstream-go/stats"
	"github.com/tmarrinan/hpcstream-go/wire"
	"github.com/tmarrinan/hpcstream-go/xport"
)

// Peer is one consumer rank.
type Peer struct {
	comm   group.Comm
	rank   int
	size   int
	logger cmn.Logger

	producerCount  int
	producerIPs    [][4]byte
	producerPorts  []uint16
	producerEndian wire.Endian

	owned       []int // producer indices [start,start+count) this rank owns
	Connections []*Connection

	events chan xport.Event

	// Stats is nil by default; cmd/consumer wires a *stats.Registry in.
	Stats *stats.Registry
}

func (p *Peer) rankLabel() string { return fmt.Sprintf("%d", p.rank) }

// Close disconnects every owned connection. Not part of spec.md's operation
// set (the spec describes no shutdown path), but every real process needs
// one to release its sockets.
func (p *Peer) Close() error {
	for _, conn := range p.Connections {
		conn.Conn.Close()
	}
	return nil
}

// New implements spec.md §6 new(master_host, master_port, comm).
func New(masterHost, masterPort string, comm group.Comm) (*Peer, error) {
	return NewWithLogger(masterHost, masterPort, comm, cmn.NlogLogger{}, nil)
}

func NewWithLogger(masterHost, masterPort string, comm group.Comm, logger cmn.Logger, reg *stats.Registry) (*Peer, error) {
	if logger == nil {
		logger = cmn.DiscardLogger{}
	}
	p := &Peer{
		comm:   comm,
		rank:   comm.Rank(),
		size:   comm.Size(),
		logger: logger,
		events: make(chan xport.Event, 256),
		Stats:  reg,
	}

	var masterConn *xport.Conn
	var broadcastPayload []byte

	if p.rank == 0 {
		addr := fmt.Sprintf("%s:%s", masterHost, masterPort)
		conn, err := xport.Dial(addr, p.events)
		if err != nil {
			return nil, cmn.NewBootstrapError("master-connect", err)
		}
		masterConn = conn

		endiannessByte, err := p.recvOneFrom(conn)
		if err != nil {
			return nil, cmn.NewBootstrapError("master-connect", err)
		}
		if len(endiannessByte) != 1 {
			return nil, cmn.NewBootstrapError("master-connect", fmt.Errorf("expected 1-byte endianness message, got %d bytes", len(endiannessByte)))
		}
		producerEndian := wire.Endian(endiannessByte[0])

		ips, err := p.recvOneFrom(conn)
		if err != nil {
			return nil, cmn.NewBootstrapError("master-connect", err)
		}
		if len(ips)%4 != 0 {
			return nil, cmn.NewBootstrapError("master-connect", fmt.Errorf("ip-list message is %d bytes, not a multiple of 4", len(ips)))
		}
		producerCount := len(ips) / 4

		ports, err := p.recvOneFrom(conn)
		if err != nil {
			return nil, cmn.NewBootstrapError("master-connect", err)
		}
		if len(ports) != producerCount*2 {
			return nil, cmn.NewBootstrapError("master-connect", fmt.Errorf("port-list message is %d bytes, want %d", len(ports), producerCount*2))
		}

		localIP, localPort, err := localAddrOf(conn)
		if err != nil {
			return nil, cmn.NewBootstrapError("master-connect", err)
		}
		clientID := encodeClientID(localIP, localPort)

		broadcastPayload = marshalMasterInfo(producerEndian, uint32(producerCount), ips, ports, clientID)
	}

	data, err := p.comm.Broadcast(0, broadcastPayload)
	if err != nil {
		if masterConn != nil {
			masterConn.Close()
		}
		return nil, cmn.NewBootstrapError("group-broadcast", err)
	}
	producerEndian, producerCount, ips, ports, clientID, err := unmarshalMasterInfo(data)
	if err != nil {
		return nil, cmn.NewBootstrapError("group-broadcast", err)
	}
	p.producerEndian = producerEndian
	p.producerCount = producerCount
	p.producerIPs = ips
	p.producerPorts = ports

	per := producerCount / p.size
	extra := producerCount % p.size
	start := p.rank*per + min(p.rank, extra)
	count := per
	if p.rank < extra {
		count++
	}
	p.owned = make([]int, count)
	for i := range p.owned {
		p.owned[i] = start + i
	}

	hs := schema.Handshake{
		RemoteRanksTotal: uint32(producerCount),
		ClientID:         clientID,
		TotalRanks:       uint32(p.size),
		Rank:             uint32(p.rank),
		Endianness:       wire.DetectEndianness(),
	}

	// Dial and handshake every owned producer concurrently: each connection's
	// handshake is independent, and with a wide partition share the mesh-connect
	// round trip otherwise serializes rank startup producer-by-producer.
	// recvOneFrom already tolerates a shared event channel fed by many
	// connections at once (it requeues events addressed to a different Conn),
	// so this is safe to fan out the same way go-mcast/core fans out its
	// per-peer dial loop with an errgroup.
	conns := make([]*Connection, len(p.owned))
	var eg errgroup.Group
	var connsMu sync.Mutex // guards only p.Stats, which is not otherwise touched concurrently
	for i, producerIdx := range p.owned {
		i, producerIdx := i, producerIdx
		eg.Go(func() error {
			var conn *xport.Conn
			if p.rank == 0 && producerIdx == 0 && masterConn != nil {
				conn = masterConn
			} else {
				addr := fmt.Sprintf("%d.%d.%d.%d:%d", ips[producerIdx][0], ips[producerIdx][1], ips[producerIdx][2], ips[producerIdx][3], ports[producerIdx])
				dialed, err := xport.Dial(addr, p.events)
				if err != nil {
					return cmn.NewBootstrapError("mesh-connect", err)
				}
				conn = dialed
			}
			if err := conn.Send(hs.Encode()); err != nil {
				return cmn.NewBootstrapError("handshake", err)
			}
			schemaBuf, err := p.recvOneFrom(conn)
			if err != nil {
				return cmn.NewBootstrapError("schema-recv", err)
			}
			vars, err := schema.Decode(schemaBuf)
			if err != nil {
				return cmn.NewSchemaError("producer %d: %v", producerIdx, err)
			}
			if err := schema.ResolveAll(vars); err != nil {
				return cmn.NewSchemaError("producer %d: %v", producerIdx, err)
			}
			varMap := make(map[string]*schema.Variable, len(vars))
			for _, v := range vars {
				varMap[v.Name] = v
			}
			conns[i] = &Connection{Conn: conn, ProducerRank: producerIdx, Vars: varMap}
			if p.Stats != nil {
				connsMu.Lock()
				p.Stats.ConnectionsTotal.WithLabelValues("consumer", p.rankLabel()).Inc()
				connsMu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	p.Connections = append(p.Connections, conns...)
	sort.Slice(p.Connections, func(i, j int) bool { return p.Connections[i].ProducerRank < p.Connections[j].ProducerRank })

	if p.producerEndian != wire.DetectEndianness() {
		logger.Warningf("consumer: producer endianness %s differs from ours (%s); payloads are not converted", p.producerEndian, wire.DetectEndianness())
	}

	return p, nil
}
