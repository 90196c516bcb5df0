package schema

import "testing"

func TestNewScalarDefaults(t *testing.T) {
	v, err := NewScalar("step", Uint32)
	if err != nil {
		t.Fatalf("NewScalar: %v", err)
	}
	if v.IsArray() {
		t.Fatal("a scalar must not report IsArray")
	}
	if v.Length != 1 || len(v.ValueBuf) != 4 {
		t.Fatalf("scalar length/buf = %d/%d, want 1/4", v.Length, len(v.ValueBuf))
	}
}

func TestNewArrayRejectsMismatchedNameLists(t *testing.T) {
	_, err := NewArray("grid", Float32, []string{"nx", "ny"}, []string{"lx"}, []string{"ox", "oy"})
	if err == nil {
		t.Fatal("expected an error for mismatched gs/ls/lo name list lengths")
	}
}

func TestNewArrayRejectsDimsAboveThree(t *testing.T) {
	_, err := NewArray("grid", Float32,
		[]string{"a", "b", "c", "d"},
		[]string{"a", "b", "c", "d"},
		[]string{"a", "b", "c", "d"})
	if err == nil {
		t.Fatal("expected an error for dims=4")
	}
}

// TestResolveDimensionAllocatesOnceFullyResolved exercises spec.md §4.2's
// "patch on every ArraySize receipt, allocate once every l_size[k] is
// non-zero" rule, including in whatever order the dimensions arrive.
func TestResolveDimensionAllocatesOnceFullyResolved(t *testing.T) {
	v, err := NewArray("grid", Float32,
		[]string{"nx", "ny"}, []string{"nx", "ny"}, []string{"ox", "oy"})
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	if ready := v.ResolveDimension("nx", 4); ready {
		t.Fatal("should not be ready after only nx resolved")
	}
	if v.ValueBuf != nil {
		t.Fatal("ValueBuf must stay nil until every l_size[k] resolves")
	}
	if ready := v.ResolveDimension("ny", 3); !ready {
		t.Fatal("should become ready once both nx and ny resolve")
	}
	if v.Length != 12 || len(v.ValueBuf) != 4*12 {
		t.Fatalf("Length/ValueBuf = %d/%d, want 12/%d", v.Length, len(v.ValueBuf), 4*12)
	}
	// ox/oy never arrived: l_offset stays zero, but that must not block
	// allocation — only l_size gates readiness (spec.md §3).
	if v.LOffset[0] != 0 || v.LOffset[1] != 0 {
		t.Fatalf("l_offset should remain zero until resolved, got %v", v.LOffset)
	}
}

func TestResolveDimensionReallocatesOnSizeChange(t *testing.T) {
	v, _ := NewArray("grid", Uint8, []string{"nx"}, []string{"nx"}, []string{"ox"})
	v.ResolveDimension("nx", 10)
	first := v.ValueBuf
	if ready := v.ResolveDimension("nx", 20); !ready {
		t.Fatal("a changed resolved size should be reported ready again")
	}
	if len(v.ValueBuf) != 20 {
		t.Fatalf("ValueBuf len = %d, want 20", len(v.ValueBuf))
	}
	if &first[0] == &v.ValueBuf[0] {
		t.Fatal("ValueBuf should have been reallocated, not resized in place")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	v, _ := NewArray("grid", Uint8, []string{"nx"}, []string{"nx"}, []string{"ox"})
	v.ResolveDimension("nx", 4)
	c := v.Clone()
	c.LSize[0] = 99
	c.ValueBuf[0] = 0xAB
	if v.LSize[0] == 99 {
		t.Fatal("mutating the clone's LSize must not affect the original")
	}
	if v.ValueBuf[0] == 0xAB {
		t.Fatal("mutating the clone's ValueBuf must not affect the original")
	}
}

func TestParseNameList(t *testing.T) {
	cases := map[string][]string{
		"":          nil,
		"a":         {"a"},
		"a, b , c":  {"a", "b", "c"},
	}
	for in, want := range cases {
		got := ParseNameList(in)
		if len(got) != len(want) {
			t.Fatalf("ParseNameList(%q) = %v, want %v", in, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ParseNameList(%q)[%d] = %q, want %q", in, i, got[i], want[i])
			}
		}
	}
}
