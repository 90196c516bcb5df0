package producer

import (
	"encoding/binary"
	"testing"

	"github.com/tmarrinan/hpcstream-go/cmn"
	"github.com/tmarrinan/hpcstream-go/group"
	"github.com/tmarrinan/hpcstream-go/schema"
	"github.com/tmarrinan/hpcstream-go/wire"
)

// nativeEncodeUint32 builds the native-byte-order payload a real producer's
// own process would hand to SetValue for an ArraySize scalar (spec.md §4.2).
func nativeEncodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	if wire.DetectEndianness() == wire.Big {
		binary.BigEndian.PutUint32(b, v)
	} else {
		binary.LittleEndian.PutUint32(b, v)
	}
	return b
}

func newTestPeer(t *testing.T) *Peer {
	t.Helper()
	comms := group.NewLocalGroup(1)
	p, err := NewWithConfig(cmn.Config{Iface: "lo", PortMin: 21000, PortMax: 21999}, comms[0], cmn.DiscardLogger{}, nil)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestNewWithConfigBindsAndGathers(t *testing.T) {
	p := newTestPeer(t)
	if p.Rank() != 0 {
		t.Errorf("Rank() = %d, want 0", p.Rank())
	}
	if p.LocalPort() < 21000 || p.LocalPort() > 21999 {
		t.Errorf("LocalPort() = %d, out of configured range", p.LocalPort())
	}
	if len(p.masterIPs) != 4 || len(p.masterPorts) != 2 {
		t.Errorf("rank 0 master endpoint tables have the wrong size: %d ips-bytes, %d ports-bytes", len(p.masterIPs), len(p.masterPorts))
	}
}

func TestDefineVarScalar(t *testing.T) {
	p := newTestPeer(t)
	if err := p.DefineVar("step", schema.Uint32, "", "", ""); err != nil {
		t.Fatalf("DefineVar: %v", err)
	}
	v := p.vars["step"]
	if v.IsArray() {
		t.Error("scalar DefineVar produced an array variable")
	}
	if v.Length != 1 {
		t.Errorf("scalar Length = %d, want 1", v.Length)
	}
}

func TestDefineVarArray(t *testing.T) {
	p := newTestPeer(t)
	if err := p.DefineVar("n", schema.ArraySize, "", "", ""); err != nil {
		t.Fatalf("DefineVar(n): %v", err)
	}
	if err := p.DefineVar("data", schema.Float64, "n", "n", "zero"); err != nil {
		t.Fatalf("DefineVar(data): %v", err)
	}
	v := p.vars["data"]
	if !v.IsArray() {
		t.Error("array DefineVar produced a scalar variable")
	}
	if v.Length != 0 {
		t.Errorf("unresolved array Length = %d, want 0", v.Length)
	}
}

func TestDefineVarRejectsDuplicateName(t *testing.T) {
	p := newTestPeer(t)
	if err := p.DefineVar("x", schema.Uint8, "", "", ""); err != nil {
		t.Fatalf("first DefineVar: %v", err)
	}
	if err := p.DefineVar("x", schema.Uint8, "", "", ""); err == nil {
		t.Fatal("expected an error redefining variable \"x\"")
	}
}

func TestDefineVarRejectsAfterFreeze(t *testing.T) {
	p := newTestPeer(t)
	if err := p.DefineVar("x", schema.Uint8, "", "", ""); err != nil {
		t.Fatalf("DefineVar: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- p.VarDefinitionsComplete(cmn.DropFrames, 0) }()
	if err := <-done; err != nil {
		t.Fatalf("VarDefinitionsComplete: %v", err)
	}
	if err := p.DefineVar("y", schema.Uint8, "", "", ""); err == nil {
		t.Fatal("expected DefineVar to reject a new variable after var_definitions_complete")
	}
}

func TestSetValueScalar(t *testing.T) {
	p := newTestPeer(t)
	if err := p.DefineVar("step", schema.Uint32, "", "", ""); err != nil {
		t.Fatalf("DefineVar: %v", err)
	}
	if err := p.SetValue("step", []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	v := p.vars["step"]
	if !v.Updated {
		t.Error("SetValue did not mark the variable Updated")
	}
	if string(v.ValueBuf) != "\x01\x02\x03\x04" {
		t.Errorf("ValueBuf = %v, want [1 2 3 4]", v.ValueBuf)
	}
}

func TestSetValueRejectsWrongSize(t *testing.T) {
	p := newTestPeer(t)
	if err := p.DefineVar("step", schema.Uint32, "", "", ""); err != nil {
		t.Fatalf("DefineVar: %v", err)
	}
	if err := p.SetValue("step", []byte{1, 2}); err == nil {
		t.Fatal("expected an error setting a 4-byte scalar to 2 bytes")
	}
}

func TestSetValueOnUndeclaredVariable(t *testing.T) {
	p := newTestPeer(t)
	if err := p.SetValue("ghost", []byte{0}); err == nil {
		t.Fatal("expected an error setting an undeclared variable")
	}
}

func TestSetValueArrayBeforeDimensionsResolvedErrors(t *testing.T) {
	p := newTestPeer(t)
	if err := p.DefineVar("n", schema.ArraySize, "", "", ""); err != nil {
		t.Fatalf("DefineVar(n): %v", err)
	}
	if err := p.DefineVar("data", schema.Float64, "n", "n", "zero"); err != nil {
		t.Fatalf("DefineVar(data): %v", err)
	}
	if err := p.SetValue("data", []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != cmn.ErrDimensionNotReady {
		t.Fatalf("SetValue on unresolved array = %v, want ErrDimensionNotReady", err)
	}
}

// TestSetValuePropagatesArraySizeIntoDependents exercises spec.md §4.2's
// propagation rule: setting a resolved ArraySize scalar patches every other
// variable's cached dimensions and, once every LSize[k] is non-zero,
// (re)allocates its ValueBuf.
func TestSetValuePropagatesArraySizeIntoDependents(t *testing.T) {
	p := newTestPeer(t)
	if err := p.DefineVar("n", schema.ArraySize, "", "", ""); err != nil {
		t.Fatalf("DefineVar(n): %v", err)
	}
	if err := p.DefineVar("data", schema.Float64, "n", "n", "zero"); err != nil {
		t.Fatalf("DefineVar(data): %v", err)
	}
	if err := p.DefineVar("zero", schema.ArraySize, "", "", ""); err != nil {
		t.Fatalf("DefineVar(zero): %v", err)
	}
	if err := p.SetValue("zero", []byte{0, 0, 0, 0}); err != nil {
		t.Fatalf("SetValue(zero): %v", err)
	}
	nBuf := nativeEncodeUint32(3) // ArraySize payloads are native-order (spec.md §4.2)
	if err := p.SetValue("n", nBuf); err != nil {
		t.Fatalf("SetValue(n): %v", err)
	}

	data := p.vars["data"]
	if data.Length != 3 {
		t.Fatalf("data.Length = %d, want 3 after n resolved", data.Length)
	}
	if len(data.ValueBuf) != 3*8 {
		t.Errorf("data.ValueBuf len = %d, want 24", len(data.ValueBuf))
	}
}
