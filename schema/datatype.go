// Package schema declares the Variable data model and the self-describing
// schema blob wire format (spec.md §3, §4.2), grounded on the original
// HpcStream::DataType enum (hpcstream.h) and on aistore/transport's
// cursor-based PDU header parsing for the decode path.
package schema

import "fmt"

// DataType mirrors HpcStream::DataType's declaration order exactly: a
// producer and consumer built from different language runtimes still agree
// on the wire value for each base type.
type DataType uint8

const (
	Uint8 DataType = iota
	Uint16
	Uint32
	Uint64
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	ArraySize
)

func (t DataType) String() string {
	switch t {
	case Uint8:
		return "u8"
	case Uint16:
		return "u16"
	case Uint32:
		return "u32"
	case Uint64:
		return "u64"
	case Int8:
		return "i8"
	case Int16:
		return "i16"
	case Int32:
		return "i32"
	case Int64:
		return "i64"
	case Float32:
		return "f32"
	case Float64:
		return "f64"
	case ArraySize:
		return "ArraySize"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(t))
	}
}

// Size returns element_size: the number of bytes a single element of this
// base_type occupies, spec.md §3's "derived from base_type" invariant.
func (t DataType) Size() uint32 {
	switch t {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint32, Int32, Float32, ArraySize:
		return 4
	case Uint64, Int64, Float64:
		return 8
	default:
		return 0
	}
}

func (t DataType) Valid() bool { return t <= ArraySize }
