// Package remap is the module's concrete stand-in for spec.md's "N-to-M
// array redistribution kernel" external collaborator (§4.4, GLOSSARY): given
// per-peer partition offsets/sizes and a desired window, produce a
// per-destination layout, then scatter owned bytes into a caller's buffer
// laid out as that window.
//
// Grounded on aistore/reb's ownership-table idiom: rebalance computes, from a
// table of (node, key-range) pairs, what each node must send/receive without
// ever touching object bytes directly; here the table is (connection index,
// global chunk) instead of (node, object key range), and the payload is raw
// element bytes instead of whole objects. The per-chunk iteration in
// aistore/reb/ec.go (walk a node's owned slices, compute the overlap with
// the desired stripe, copy the intersecting bytes) is generalized from 1D
// erasure-coded stripes to up-to-3D rectangular windows.
package remap

import "fmt"

// Chunk is one producer connection's current partition of a global array, in
// element (not byte) coordinates. Dims is implied by len(Offset)==len(Size).
type Chunk struct {
	Offset []int32
	Size   []int32
}

func (c Chunk) dims() int { return len(c.Size) }

func (c Chunk) elements() int64 {
	n := int64(1)
	for _, s := range c.Size {
		n *= int64(s)
	}
	return n
}

// Window is the consumer's desired rectangular sub-region of the producer's
// global coordinate space (spec.md §4.4: "a desired size[dims] and
// offset[dims] window").
type Window struct {
	Offset []int32
	Size   []int32
}

func (w Window) dims() int { return len(w.Size) }

// overlap is the element-coordinate box shared between window w and a
// producer connection's chunk.
type overlap struct {
	// off/size are in global coordinates, dims entries each
	off, size []int32
}

func intersect(w Window, c Chunk) (overlap, bool) {
	dims := w.dims()
	off := make([]int32, dims)
	size := make([]int32, dims)
	for k := 0; k < dims; k++ {
		lo := max32(w.Offset[k], c.Offset[k])
		hi := min32(w.Offset[k]+w.Size[k], c.Offset[k]+c.Size[k])
		if hi <= lo {
			return overlap{}, false
		}
		off[k] = lo
		size[k] = hi - lo
	}
	return overlap{off: off, size: size}, true
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// ErrInvalidDims reports a dims value outside the 1..3 range spec.md §4.4
// and §7 require (remap errors: "dims outside 1..3 in selection").
var ErrInvalidDims = fmt.Errorf("remap: dims must be 1, 2, or 3")
