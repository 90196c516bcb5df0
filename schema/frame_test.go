package schema

import "testing"

func TestIsSentinel(t *testing.T) {
	if !IsSentinel([]byte{Sentinel}) {
		t.Error("a single 0xFF byte must be recognized as the sentinel")
	}
	if IsSentinel([]byte{Sentinel, Sentinel}) {
		t.Error("two bytes must not be recognized as the sentinel")
	}
	if IsSentinel([]byte{0x00}) {
		t.Error("a zero byte must not be recognized as the sentinel")
	}
}

func TestEncodeDecodeFrameValueRoundTrip(t *testing.T) {
	v, _ := NewScalar("step", Uint32)
	copy(v.ValueBuf, []byte{0x01, 0x02, 0x03, 0x04})

	msg := EncodeFrameValue(v)
	name, payload, err := DecodeFrameValue(msg)
	if err != nil {
		t.Fatalf("DecodeFrameValue: %v", err)
	}
	if name != "step" {
		t.Errorf("name = %q, want step", name)
	}
	if string(payload) != string(v.ValueBuf) {
		t.Errorf("payload = %v, want %v", payload, v.ValueBuf)
	}
}

func TestDecodeFrameValueRejectsTooShort(t *testing.T) {
	if _, _, err := DecodeFrameValue([]byte{1, 2, 3, 4}); err == nil {
		t.Fatal("expected an error decoding a 4-byte message (no room for a name)")
	}
}
