package wire

import (
	"encoding/binary"
	"fmt"
)

// Reader is a cursor over an in-memory buffer: every read method advances roff
// and fails with an explicit error on short input instead of indexing past a
// length guard. Grounded on aistore/transport's pdu.go roff/woff cursor
// (pdu.read, pdu.rlength) generalized here from a PDU body to the schema
// blob and frame messages this module moves.
type Reader struct {
	buf  []byte
	roff int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) Remaining() int { return len(r.buf) - r.roff }

func (r *Reader) need(n int) error {
	if n < 0 || r.Remaining() < n {
		return fmt.Errorf("wire: short read: need %d bytes, have %d", n, r.Remaining())
	}
	return nil
}

// Uint32 reads a big-endian (network order) u32 and advances the cursor.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := NetworkOrder.Uint32(r.buf[r.roff:])
	r.roff += 4
	return v, nil
}

// Int64 reads a network-order i64 written by PutInt64 and advances the
// cursor. Mirrors the C convention: the wire bytes are a native-order store
// of Htonll's result, so the inverse read is a native-order load followed by
// Ntohll (Htonll's self-inverse) — not a big-endian load, which would
// double-convert (see PutUint64).
func (r *Reader) Int64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := nativeOrder().Uint64(r.buf[r.roff:])
	r.roff += 8
	return int64(Ntohll(v)), nil
}

// Uint64 reads a network-order u64 written by PutUint64 (see PutUint64 for
// why this is a native-order load through Ntohll, not a big-endian load) and
// advances the cursor.
func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := nativeOrder().Uint64(r.buf[r.roff:])
	r.roff += 8
	return Ntohll(v), nil
}

// Uint8 reads a single byte and advances the cursor.
func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.roff]
	r.roff++
	return v, nil
}

// Bytes returns the next n raw bytes (no copy) and advances the cursor.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.roff : r.roff+n]
	r.roff += n
	return b, nil
}

// NativeUint32 reads a u32 length prefix in the host's native byte order —
// the counterpart to PutNativeUint32Len, used only for the per-value frame
// message's name_length field (spec.md §4.2/§9).
func (r *Reader) NativeUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := nativeOrder().Uint32(r.buf[r.roff:])
	r.roff += 4
	return v, nil
}

// LengthPrefixedString reads a u32 length prefix (network order) then that
// many bytes of string, rejecting a length that exceeds the remaining
// buffer — spec.md §4.2's codec requirement.
func (r *Reader) LengthPrefixedString() (string, error) {
	n, err := r.Uint32()
	if err != nil {
		return "", err
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		return "", fmt.Errorf("wire: name_length %d exceeds remaining buffer: %w", n, err)
	}
	return string(b), nil
}

// Writer appends to an in-memory buffer; every Put* call documents which
// byte order it uses so schema-vs-frame asymmetries (spec.md §4.2, §9) stay
// visible at the call site instead of being hidden in a shared helper.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	NetworkOrder.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutInt64(v int64) {
	var b [8]byte
	nativeOrder().PutUint64(b[:], Htonll(uint64(v)))
	w.buf = append(w.buf, b[:]...)
}

// PutUint64 writes a network-order (big-endian) u64 — the handshake
// record's client_id field (spec.md §4.1 step 4). Follows the C convention
// Htonll mirrors: htonll swaps a little-endian host's value into big-endian
// bit order, and a plain native-order store of that swapped value then
// lands the bytes on the wire MSB-first on every host. Storing via
// NetworkOrder (always-big-endian) instead would additionally byte-swap an
// already-swapped value on a little-endian host, emitting the value's
// little-endian layout rather than network order.
func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	nativeOrder().PutUint64(b[:], Htonll(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) PutUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) PutRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// PutLengthPrefixedString writes a u32 length prefix in network order
// followed by the raw string bytes (spec.md §4.2 schema blob layout).
func (w *Writer) PutLengthPrefixedString(s string) {
	w.PutUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// PutNativeUint32Len writes a u32 length prefix in the host's native byte
// order. Used only by the per-value frame message's name_length field,
// which spec.md §4.2/§9 documents as a latent bug in the original: it uses
// native order while every other header uses network order. Kept exactly as
// the spec requires — not "fixed" — with the asymmetry named at every call
// site instead of silently matching PutUint32.
func (w *Writer) PutNativeUint32Len(v uint32) {
	var b [4]byte
	nativeOrder().PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func nativeOrder() binary.ByteOrder {
	if nativeEndian == Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
