package schema

import (
	"fmt"
	"strings"
)

// Variable is spec.md §3's Variable record. A producer holds exactly one
// authoritative copy per name; each consumer connection holds its own copy,
// decoded from that connection's schema blob, because every producer peer
// owns a distinct partition (spec.md: "the variable map is cloned per
// connection").
type Variable struct {
	Name        string
	BaseType    DataType
	ElementSize uint32
	Dims        uint32

	// GSNames/LSNames/LONames name the ArraySize variables supplying,
	// respectively, global extent, local extent, and local offset along
	// each dimension. Empty (all three) means a scalar.
	GSNames []string
	LSNames []string
	LONames []string

	// GSize/LSize/LOffset are resolved from the referenced ArraySize
	// variables at runtime; zero-valued (and Length==0) until every
	// LSize[k] has been observed at least once.
	GSize   []uint32
	LSize   []uint32
	LOffset []uint32

	// Length is the element count: 1 for scalars, 0 until every LSize[k] is
	// non-zero for arrays, then the product.
	Length int64

	// ValueBuf holds ElementSize*Length bytes; replaced wholesale on every
	// update (producer SetValue) or receipt (consumer frame decode).
	ValueBuf []byte

	// Updated is the producer-side dirty flag, meaningless on the consumer
	// side (zero value there).
	Updated bool
}

// IsArray reports whether this is an array variable (dims>=1 with resolver
// names) as opposed to a scalar.
func (v *Variable) IsArray() bool { return len(v.GSNames) > 0 }

// IsResolvedArraySizeScalar reports whether v is itself a 1-element
// ArraySize scalar — the kind of variable whose update must be propagated
// into other variables' dimension caches (spec.md §4.2/§4.3).
func (v *Variable) IsResolvedArraySizeScalar() bool {
	return v.BaseType == ArraySize && v.Dims <= 1 && v.Length == 1
}

// NewScalar declares a scalar variable (spec.md §3: dims=0 or 1, length=1).
func NewScalar(name string, baseType DataType) (*Variable, error) {
	if name == "" {
		return nil, fmt.Errorf("schema: variable name must not be empty")
	}
	if !baseType.Valid() {
		return nil, fmt.Errorf("schema: invalid base_type %d", baseType)
	}
	return &Variable{
		Name:        name,
		BaseType:    baseType,
		ElementSize: baseType.Size(),
		Dims:        1,
		Length:      1,
		ValueBuf:    make([]byte, baseType.Size()),
	}, nil
}

// NewArray declares an array variable named by three equal-length lists of
// ArraySize-variable names (spec.md §3, §6 define_var). Length starts at 0
// and ValueBuf is nil until every resolved LSize[k] is non-zero.
func NewArray(name string, baseType DataType, gsNames, lsNames, loNames []string) (*Variable, error) {
	if name == "" {
		return nil, fmt.Errorf("schema: variable name must not be empty")
	}
	if !baseType.Valid() {
		return nil, fmt.Errorf("schema: invalid base_type %d", baseType)
	}
	dims := len(gsNames)
	if dims == 0 || len(lsNames) != dims || len(loNames) != dims {
		return nil, fmt.Errorf("schema: gs/ls/lo name lists must be equal-length and non-empty for an array")
	}
	if dims > 3 {
		return nil, fmt.Errorf("schema: dims=%d exceeds the supported 1..3 range", dims)
	}
	return &Variable{
		Name:        name,
		BaseType:    baseType,
		ElementSize: baseType.Size(),
		Dims:        uint32(dims),
		GSNames:     gsNames,
		LSNames:     lsNames,
		LONames:     loNames,
		GSize:       make([]uint32, dims),
		LSize:       make([]uint32, dims),
		LOffset:     make([]uint32, dims),
	}, nil
}

// Clone deep-copies v for a fresh consumer connection, so that each
// producer peer's distinct partition metadata (LSize/LOffset) never
// aliases another connection's copy.
func (v *Variable) Clone() *Variable {
	c := *v
	c.GSNames = append([]string(nil), v.GSNames...)
	c.LSNames = append([]string(nil), v.LSNames...)
	c.LONames = append([]string(nil), v.LONames...)
	c.GSize = append([]uint32(nil), v.GSize...)
	c.LSize = append([]uint32(nil), v.LSize...)
	c.LOffset = append([]uint32(nil), v.LOffset...)
	c.ValueBuf = append([]byte(nil), v.ValueBuf...)
	c.Updated = false
	return &c
}

// mentionsName reports whether name appears in names.
func mentionsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// ResolveDimension patches this variable's GSize/LSize/LOffset at index k
// wherever its GSNames/LSNames/LONames mention updated, per spec.md §4.2:
// "Consumer MUST update its resolved g_size/l_size/l_offset caches on every
// ArraySize variable receipt by scanning all variables ... and patching any
// whose gs_names/ls_names/lo_names mention the updated name." Returns true
// if the variable's array buffer should now (re)allocate because every
// LSize[k] became non-zero.
func (v *Variable) ResolveDimension(updated string, value uint32) (becameReady bool) {
	if !v.IsArray() {
		return false
	}
	for k := 0; k < int(v.Dims); k++ {
		if v.GSNames[k] == updated {
			v.GSize[k] = value
		}
		if v.LSNames[k] == updated {
			v.LSize[k] = value
		}
		if v.LONames[k] == updated {
			v.LOffset[k] = value
		}
	}
	allReady := true
	for _, s := range v.LSize {
		if s == 0 {
			allReady = false
			break
		}
	}
	if !allReady {
		return false
	}
	length := int64(1)
	for _, s := range v.LSize {
		length *= int64(s)
	}
	if v.Length == length && v.ValueBuf != nil {
		return false // already allocated at this size
	}
	v.Length = length
	v.ValueBuf = make([]byte, uint64(v.ElementSize)*uint64(length))
	return true
}

// ParseNameList splits a comma-separated list of variable names, trimming
// whitespace, used by define_var's global_size/local_size/local_offset CSV
// arguments (spec.md §6).
func ParseNameList(csv string) []string {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
