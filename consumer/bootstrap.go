package consumer

import (
	"fmt"
	"net"

	"github.com/tmarrinan/hpcstream-go/wire"
	"github.com/tmarrinan/hpcstream-go/xport"
)

// recvOneFrom blocks until exactly one message arrives on conn, ignoring
// events belonging to other connections that may share this Peer's combined
// event channel (spec.md §4.1 consumer step 1: "the message count, not
// content, drives progression").
func (p *Peer) recvOneFrom(conn *xport.Conn) ([]byte, error) {
	for {
		ev := <-p.events
		if ev.Conn != conn {
			go func(e xport.Event) { p.events <- e }(ev)
			continue
		}
		switch ev.Kind {
		case xport.EventData:
			return ev.Data, nil
		case xport.EventClose:
			return nil, fmt.Errorf("consumer: connection closed: %v", ev.Err)
		}
	}
}

func localAddrOf(conn *xport.Conn) ([4]byte, uint16, error) {
	var ip [4]byte
	tcpAddr, ok := conn.LocalAddr().(*net.TCPAddr)
	if !ok {
		return ip, 0, fmt.Errorf("consumer: local address is not TCP")
	}
	ip4 := tcpAddr.IP.To4()
	if ip4 == nil {
		return ip, 0, fmt.Errorf("consumer: local address has no IPv4 form")
	}
	copy(ip[:], ip4)
	return ip, uint16(tcpAddr.Port), nil
}

// encodeClientID packs (ip,port) into the u64 spec.md §4.1 step 4 calls
// client_id, encoding rank-0's own local (master-connection) address.
func encodeClientID(ip [4]byte, port uint16) uint64 {
	return uint64(ip[0])<<40 | uint64(ip[1])<<32 | uint64(ip[2])<<24 | uint64(ip[3])<<16 | uint64(port)
}

// marshalMasterInfo/unmarshalMasterInfo carry the master-connection-derived
// bootstrap state (producer endianness, IP/port lists, and rank-0's
// client_id) across the group communicator's Broadcast (spec.md §4.1 step
// 2). This is this package's own control envelope, distinct from the wire
// protocol described in spec.md §4.2/§4.3.
func marshalMasterInfo(endian wire.Endian, count uint32, ips, ports []byte, clientID uint64) []byte {
	w := wire.NewWriter()
	w.PutUint8(uint8(endian))
	w.PutUint32(count)
	w.PutRaw(ips)
	w.PutRaw(ports)
	w.PutUint64(clientID)
	return w.Bytes()
}

func unmarshalMasterInfo(buf []byte) (endian wire.Endian, count int, ips [][4]byte, ports []uint16, clientID uint64, err error) {
	r := wire.NewReader(buf)
	endByte, err := r.Uint8()
	if err != nil {
		return 0, 0, nil, nil, 0, err
	}
	endian = wire.Endian(endByte)
	n32, err := r.Uint32()
	if err != nil {
		return 0, 0, nil, nil, 0, err
	}
	n := int(n32)
	ipBytes, err := r.Bytes(4 * n)
	if err != nil {
		return 0, 0, nil, nil, 0, err
	}
	ips = make([][4]byte, n)
	for i := 0; i < n; i++ {
		copy(ips[i][:], ipBytes[4*i:4*i+4])
	}
	ports = make([]uint16, n)
	for i := 0; i < n; i++ {
		b, err := r.Bytes(2)
		if err != nil {
			return 0, 0, nil, nil, 0, err
		}
		ports[i] = wire.NetworkOrder.Uint16(b)
	}
	clientID, err = r.Uint64()
	if err != nil {
		return 0, 0, nil, nil, 0, err
	}
	return endian, n, ips, ports, clientID, nil
}
