package schema

import "testing"

func TestDataTypeSize(t *testing.T) {
	cases := map[DataType]uint32{
		Uint8: 1, Int8: 1,
		Uint16: 2, Int16: 2,
		Uint32: 4, Int32: 4, Float32: 4, ArraySize: 4,
		Uint64: 8, Int64: 8, Float64: 8,
	}
	for dt, want := range cases {
		if got := dt.Size(); got != want {
			t.Errorf("%s.Size() = %d, want %d", dt, got, want)
		}
	}
}

func TestDataTypeValid(t *testing.T) {
	if !ArraySize.Valid() {
		t.Error("ArraySize should be a valid DataType")
	}
	if DataType(255).Valid() {
		t.Error("DataType(255) should not be valid")
	}
}
