package schema

import (
	"fmt"

	"github.com/tmarrinan/hpcstream-go/wire"
)

// HandshakeSize is the fixed 21-byte record size spec.md §4.1 step 4
// describes: remote_ranks_total:u32 | client_id:u64 | total_ranks:u32 |
// rank:u32 | endianness:u8, all network order.
const HandshakeSize = 4 + 8 + 4 + 4 + 1

// Handshake is the record a consumer rank-0 builds once and every consumer
// rank then customizes (its own rank and endianness) before sending on each
// connection it owns (spec.md §4.1 step 4).
type Handshake struct {
	RemoteRanksTotal uint32
	ClientID         uint64
	TotalRanks       uint32
	Rank             uint32
	Endianness       wire.Endian
}

// Encode serializes the handshake record to its fixed 21-byte wire form.
func (h Handshake) Encode() []byte {
	w := wire.NewWriter()
	w.PutUint32(h.RemoteRanksTotal)
	w.PutUint64(h.ClientID)
	w.PutUint32(h.TotalRanks)
	w.PutUint32(h.Rank)
	w.PutUint8(uint8(h.Endianness))
	return w.Bytes()
}

// DecodeHandshake parses a handshake record, rejecting anything not exactly
// HandshakeSize bytes (spec.md §7: "wrong record size" is a handshake
// mismatch the producer must terminate the connection over).
func DecodeHandshake(buf []byte) (Handshake, error) {
	if len(buf) != HandshakeSize {
		return Handshake{}, fmt.Errorf("schema: handshake record is %d bytes, want %d", len(buf), HandshakeSize)
	}
	r := wire.NewReader(buf)
	var h Handshake
	var err error
	if h.RemoteRanksTotal, err = r.Uint32(); err != nil {
		return Handshake{}, err
	}
	if h.ClientID, err = r.Uint64(); err != nil {
		return Handshake{}, err
	}
	if h.TotalRanks, err = r.Uint32(); err != nil {
		return Handshake{}, err
	}
	if h.Rank, err = r.Uint32(); err != nil {
		return Handshake{}, err
	}
	endByte, err := r.Uint8()
	if err != nil {
		return Handshake{}, err
	}
	h.Endianness = wire.Endian(endByte)
	return h, nil
}
