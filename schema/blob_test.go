package schema

import "testing"

// TestEncodeDecodeScalarRoundTrip exercises spec.md §4.2's schema blob codec
// for the simplest case: one scalar variable.
func TestEncodeDecodeScalarRoundTrip(t *testing.T) {
	v, _ := NewScalar("step", Uint32)
	blob := Encode([]*Variable{v})

	decoded, err := Decode(blob.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("decoded %d variables, want 1", len(decoded))
	}
	got := decoded[0]
	if got.Name != "step" || got.BaseType != Uint32 || got.Length != 1 {
		t.Fatalf("decoded variable = %+v, want name=step base_type=Uint32 length=1", got)
	}
}

// TestEncodeDecodeArrayRoundTrip covers an array whose dimension names
// reference a separately-declared ArraySize scalar (spec.md §3 invariant).
func TestEncodeDecodeArrayRoundTrip(t *testing.T) {
	nx, _ := NewScalar("nx", ArraySize)
	grid, _ := NewArray("grid", Float32, []string{"nx"}, []string{"nx"}, []string{"zero"})
	blob := Encode([]*Variable{nx, grid})

	decoded, err := Decode(blob.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d variables, want 2", len(decoded))
	}
	if !decoded[1].IsArray() {
		t.Fatal("second decoded variable should report IsArray")
	}
	if decoded[1].GSNames[0] != "nx" || decoded[1].LSNames[0] != "nx" || decoded[1].LONames[0] != "zero" {
		t.Fatalf("decoded dimension names = gs:%v ls:%v lo:%v", decoded[1].GSNames, decoded[1].LSNames, decoded[1].LONames)
	}

	if err := ResolveAll(decoded); err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
}

// TestResolveAllRejectsDanglingDimensionName covers spec.md §7's "dangling
// dim names" fatal schema error.
func TestResolveAllRejectsDanglingDimensionName(t *testing.T) {
	grid, _ := NewArray("grid", Float32, []string{"missing"}, []string{"missing"}, []string{"missing"})
	if err := ResolveAll([]*Variable{grid}); err == nil {
		t.Fatal("expected ResolveAll to reject a dimension name with no declared ArraySize variable")
	}
}

// TestResolveAllRejectsNonArraySizeDimension covers the invariant that a
// dimension name must refer to a 1-element ArraySize scalar, not any other
// variable.
func TestResolveAllRejectsNonArraySizeDimension(t *testing.T) {
	notArraySize, _ := NewScalar("nx", Uint32)
	grid, _ := NewArray("grid", Float32, []string{"nx"}, []string{"nx"}, []string{"nx"})
	if err := ResolveAll([]*Variable{notArraySize, grid}); err == nil {
		t.Fatal("expected ResolveAll to reject a non-ArraySize dimension variable")
	}
}

// TestDecodeRejectsDimsAboveThree pins the codec-level guard independent of
// NewArray's own constructor-time check.
func TestDecodeRejectsDimsAboveThree(t *testing.T) {
	w := rawVariableRecord(t, "bad", 4, Float32)
	if _, err := Decode(w); err == nil {
		t.Fatal("expected Decode to reject dims=4")
	}
}

// rawVariableRecord hand-builds a schema record with an out-of-range dims
// field, which NewArray's own validation would otherwise prevent us from
// constructing through the normal API.
func rawVariableRecord(t *testing.T, name string, dims uint32, bt DataType) []byte {
	t.Helper()
	v := &Variable{Name: name, Dims: dims, BaseType: bt, ElementSize: bt.Size()}
	v.GSNames = make([]string, dims)
	v.LSNames = make([]string, dims)
	v.LONames = make([]string, dims)
	for i := range v.GSNames {
		v.GSNames[i] = "x"
		v.LSNames[i] = "x"
		v.LONames[i] = "x"
	}
	return Encode([]*Variable{v}).Bytes()
}

func TestBlobSumIsDeterministic(t *testing.T) {
	v, _ := NewScalar("step", Uint32)
	b1 := Encode([]*Variable{v})
	b2 := Encode([]*Variable{v})
	if b1.Sum() != b2.Sum() {
		t.Fatalf("Sum differs across two encodes of the identical variable set: %x != %x", b1.Sum(), b2.Sum())
	}
}
