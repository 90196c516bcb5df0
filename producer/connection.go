package producer

import "github.com/tmarrinan/hpcstream-go/xport"

// State is a producer-side connection's position in spec.md §3's state
// machine: Connecting → Handshake → Streaming → Finished.
type State uint8

const (
	Connecting State = iota
	Handshake
	Streaming
	Finished
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Handshake:
		return "Handshake"
	case Streaming:
		return "Streaming"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Connection is spec.md §3's producer-side Connection record. ClientID is
// the consumer's self-reported (master_ip | master_port) pair carried in the
// handshake record, distinct from xport.Conn.ID (a purely local counter used
// to key the event-driven connection map).
type Connection struct {
	Conn  *xport.Conn
	State State

	ClientID         uint64
	RemoteRank       int32
	RemoteRanksTotal int32

	// IsNew is true for the first frame on a fresh connection, causing Write
	// to resend every variable regardless of its dirty flag (spec.md §4.3
	// "late joiners").
	IsNew bool

	// SameEndianness records whether the handshake's reported endianness
	// matched ours; false triggers a one-time warning (spec.md §7) but never
	// a conversion.
	SameEndianness bool
}
