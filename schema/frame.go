package schema

import (
	"fmt"

	"github.com/tmarrinan/hpcstream-go/wire"
)

// Sentinel is the single byte 0xFF both the end-of-frame (producer→consumer)
// and release (consumer→producer) messages consist of (spec.md §4.3).
const Sentinel byte = 0xFF

// IsSentinel reports whether a just-received message is a one-byte sentinel
// rather than a per-value frame message (spec.md §4.3 Read(): "payload == 1
// byte with value 0xFF").
func IsSentinel(msg []byte) bool { return len(msg) == 1 && msg[0] == Sentinel }

// EncodeFrameValue builds one per-value frame message for v: a name_length
// prefix in NATIVE byte order (spec.md §4.2's documented latent bug, kept
// intentionally — see schema/blob.go and SPEC_FULL.md §9) followed by the
// name and the raw payload in the producer's native byte order.
func EncodeFrameValue(v *Variable) []byte {
	w := wire.NewWriter()
	w.PutNativeUint32Len(uint32(len(v.Name)))
	w.PutRaw([]byte(v.Name))
	w.PutRaw(v.ValueBuf)
	return w.Bytes()
}

// DecodeFrameValue splits a per-value frame message into its variable name
// and payload bytes. Per spec.md §4.3 Read(): "payload > 4 bytes → parse
// name; copy payload into that variable's value_buf" — messages of 4 bytes
// or fewer are not valid per-value messages and are rejected here rather
// than silently truncated.
func DecodeFrameValue(msg []byte) (name string, payload []byte, err error) {
	if len(msg) <= 4 {
		return "", nil, fmt.Errorf("schema: frame message too short (%d bytes) to carry a name", len(msg))
	}
	r := wire.NewReader(msg)
	nameLen, err := r.NativeUint32()
	if err != nil {
		return "", nil, err
	}
	nameBytes, err := r.Bytes(int(nameLen))
	if err != nil {
		return "", nil, fmt.Errorf("schema: frame name_length %d exceeds remaining buffer: %w", nameLen, err)
	}
	payload, err = r.Bytes(r.Remaining())
	if err != nil {
		return "", nil, err
	}
	return string(nameBytes), payload, nil
}
