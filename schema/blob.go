package schema

import (
	"fmt"

	"github.com/OneOfOne/xxhash"
	"github.com/tmarrinan/hpcstream-go/wire"
)

// Blob is the encoded schema — sent producer→consumer exactly once, right
// after handshake (spec.md §4.1 step 5, §4.2). It is built once on the
// producer and borrowed (zero-copy) by every outgoing send (spec.md §5).
type Blob struct {
	bytes []byte
}

func (b *Blob) Bytes() []byte { return b.bytes }

// Sum hashes the encoded bytes with xxhash, making testable property 6 ("the
// schema blob is byte-identical across producer ranks") observable without
// shipping the whole blob across the group communicator for comparison.
func (b *Blob) Sum() uint64 { return xxhash.Checksum64(b.bytes) }

// Encode concatenates one record per variable, in the order given, per
// spec.md §4.2. Callers MUST order non-array variables before any array
// that references them (spec.md §4.2 "Ordering").
func Encode(vars []*Variable) *Blob {
	w := wire.NewWriter()
	for _, v := range vars {
		encodeVariable(w, v)
	}
	return &Blob{bytes: w.Bytes()}
}

func encodeVariable(w *wire.Writer, v *Variable) {
	w.PutLengthPrefixedString(v.Name)
	w.PutUint32(v.Dims)
	w.PutUint8(uint8(v.BaseType))
	w.PutUint32(v.ElementSize)
	if v.IsArray() {
		w.PutInt64(0) // length==0 ⇒ array, dim-resolvers follow
		for _, n := range v.GSNames {
			w.PutLengthPrefixedString(n)
		}
		for _, n := range v.LSNames {
			w.PutLengthPrefixedString(n)
		}
		for _, n := range v.LONames {
			w.PutLengthPrefixedString(n)
		}
	} else {
		w.PutInt64(v.Length)
	}
}

// Decode parses a schema blob into an ordered slice of Variables. It rejects
// truncated records, a name_length exceeding the remaining buffer, and
// dims>3 (spec.md §4.2's codec requirements); dangling dimension names
// (referring to a variable never declared) are not checked here — they
// can only be detected once the whole blob is parsed, see ResolveAll.
func Decode(buf []byte) ([]*Variable, error) {
	r := wire.NewReader(buf)
	var vars []*Variable
	for r.Remaining() > 0 {
		v, err := decodeVariable(r)
		if err != nil {
			return nil, fmt.Errorf("schema: decode record %d: %w", len(vars), err)
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func decodeVariable(r *wire.Reader) (*Variable, error) {
	name, err := r.LengthPrefixedString()
	if err != nil {
		return nil, err
	}
	dims, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if dims > 3 {
		return nil, fmt.Errorf("dims=%d exceeds the supported 1..3 range", dims)
	}
	baseTypeByte, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	baseType := DataType(baseTypeByte)
	if !baseType.Valid() {
		return nil, fmt.Errorf("invalid base_type %d", baseTypeByte)
	}
	elemSize, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	length, err := r.Int64()
	if err != nil {
		return nil, err
	}
	v := &Variable{Name: name, Dims: dims, BaseType: baseType, ElementSize: elemSize}
	if length != 0 {
		v.Length = length
		v.ValueBuf = make([]byte, uint64(elemSize)*uint64(length))
		return v, nil
	}
	// array: three parallel name lists follow, each of length dims
	gs, err := decodeNameList(r, int(dims))
	if err != nil {
		return nil, fmt.Errorf("gs_names: %w", err)
	}
	ls, err := decodeNameList(r, int(dims))
	if err != nil {
		return nil, fmt.Errorf("ls_names: %w", err)
	}
	lo, err := decodeNameList(r, int(dims))
	if err != nil {
		return nil, fmt.Errorf("lo_names: %w", err)
	}
	v.GSNames, v.LSNames, v.LONames = gs, ls, lo
	v.GSize = make([]uint32, dims)
	v.LSize = make([]uint32, dims)
	v.LOffset = make([]uint32, dims)
	return v, nil
}

func decodeNameList(r *wire.Reader, n int) ([]string, error) {
	names := make([]string, n)
	for k := 0; k < n; k++ {
		s, err := r.LengthPrefixedString()
		if err != nil {
			return nil, err
		}
		names[k] = s
	}
	return names, nil
}

// ResolveAll checks that every name appearing in any variable's
// gs_names/ls_names/lo_names refers to a variable declared elsewhere in the
// same set with base_type=ArraySize, dims<=1, length=1 (spec.md §3
// invariant). It is a fatal schema error if not — spec.md §7 "dangling dim
// names" — and is run once after decode, never during declaration (spec.md
// §9 DESIGN NOTES: "resolve by name lookup only after var_definitions_complete").
func ResolveAll(vars []*Variable) error {
	byName := make(map[string]*Variable, len(vars))
	for _, v := range vars {
		byName[v.Name] = v
	}
	for _, v := range vars {
		if !v.IsArray() {
			continue
		}
		for _, list := range [][]string{v.GSNames, v.LSNames, v.LONames} {
			for _, name := range list {
				dep, ok := byName[name]
				if !ok {
					return fmt.Errorf("schema: %s references undeclared dimension variable %q", v.Name, name)
				}
				if dep.BaseType != ArraySize || dep.Dims > 1 || dep.Length != 1 {
					return fmt.Errorf("schema: dimension variable %q for %s is not a 1-element ArraySize scalar", name, v.Name)
				}
			}
		}
	}
	return nil
}
