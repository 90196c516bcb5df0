// Package wire implements the module's length-prefixed binary protocol: the
// network-byte-order framing/schema headers, the producer-native payload
// encoding, and cursor-based reader/writer helpers that never index a raw
// buffer past a length guard (spec.md §9 DESIGN NOTES).
package wire

import "encoding/binary"

// Htonl/Ntohl: 32-bit host<->network conversions. Go's encoding/binary
// already expresses network byte order as binary.BigEndian, so these are
// thin, explicit names matching the original's htonl/ntohl call sites.
func Htonl(v uint32) uint32 { return v }
func Ntohl(v uint32) uint32 { return v }

// Htonll/Ntohll perform an explicit byte-by-byte 64-bit swap, a no-op on a
// big-endian host. spec.md §9 DESIGN NOTES flags that the original's 64-bit
// host-to-network helpers contain arithmetic errors in at least one copy of
// the source file; this is the "corrected byte-swap (explicit per-byte
// emission)" the spec calls authoritative — each of the 8 bytes is moved
// individually, with no shift-and-combine arithmetic to get subtly wrong.
func Htonll(v uint64) uint64 {
	if nativeEndian == Big {
		return v
	}
	return swapBytes64(v)
}

func Ntohll(v uint64) uint64 {
	if nativeEndian == Big {
		return v
	}
	return swapBytes64(v)
}

func swapBytes64(v uint64) uint64 {
	var in, out [8]byte
	binary.BigEndian.PutUint64(in[:], v)
	for i := range in {
		out[i] = in[7-i]
	}
	return binary.BigEndian.Uint64(out[:])
}

var nativeEndian = DetectEndianness()

// NetworkOrder is always big-endian (binary.BigEndian); kept as a named
// value so call sites document *why* a field uses it, per spec.md §4.2's
// endianness rule for framing/schema headers.
var NetworkOrder = binary.BigEndian

// NativeUint32 reads a u32 in this host's native byte order — the
// convention spec.md §4.2 documents for ArraySize scalar payloads ("sent in
// the producer's native byte order"). Shared by both the producer's own
// set_value propagation (producer/peer.go) and the consumer's frame decode
// (consumer/frame.go) so the two sides can't drift onto different byte
// orders for the same field.
func NativeUint32(b []byte) uint32 {
	if nativeEndian == Big {
		return binary.BigEndian.Uint32(b)
	}
	return binary.LittleEndian.Uint32(b)
}
