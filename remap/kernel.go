package remap

import "fmt"

// Run is one contiguous (last-dimension) span shared between a connection's
// owned chunk and the consumer's window, expressed as element offsets local
// to each side — local to the chunk on the source side, local to the window
// on the destination side.
type Run struct {
	LocalOffsetElems int64
	DstOffsetElems   int64
	LengthElems      int64
}

// ConnPlan is the per-connection slice of a Descriptor: which of the owned
// chunks it refers to, and the runs within that chunk that land inside the
// window.
type ConnPlan struct {
	ChunkIndex int
	Runs       []Run
}

// Descriptor is the redistribution plan produced by Describe: spec.md §4.4
// step 4, "the core only promises to marshal inputs and hold the
// descriptor". Chunks is carried alongside so Fill can reconstruct owned-
// buffer base offsets without the caller re-deriving them.
type Descriptor struct {
	Window Window
	Chunks []Chunk
	Conns  []ConnPlan
}

// Kernel is the redistribution collaborator itself: Describe turns partition
// metadata and a desired window into a Descriptor; Fill drives it to scatter
// concatenated owned bytes into the caller's buffer. The zero value is ready
// to use — there is no per-call state.
type Kernel struct{}

// Describe implements spec.md §4.4 step 4. owned is the consumer's own
// connections' current partitions, in connection order; window is the
// desired sub-region of the producer's global coordinate space. rank/nranks
// are accepted for parity with a distributed kernel implementation (e.g. one
// that partitions the scatter loop itself across consumer ranks) but are
// unused by this in-process kernel.
func (Kernel) Describe(rank, nranks int, owned []Chunk, window Window) (*Descriptor, error) {
	dims := window.dims()
	if dims < 1 || dims > 3 {
		return nil, ErrInvalidDims
	}
	if len(window.Offset) != dims {
		return nil, fmt.Errorf("remap: window offset/size length mismatch")
	}
	desc := &Descriptor{Window: window, Chunks: owned}
	for i, c := range owned {
		if c.dims() != dims {
			return nil, fmt.Errorf("remap: chunk %d has %d dims, window has %d", i, c.dims(), dims)
		}
		ov, ok := intersect(window, c)
		if !ok {
			continue
		}
		runs := buildRuns(ov, c, window)
		if len(runs) > 0 {
			desc.Conns = append(desc.Conns, ConnPlan{ChunkIndex: i, Runs: runs})
		}
	}
	return desc, nil
}

// buildRuns walks the Cartesian product of every dimension but the last
// (which stays contiguous in both the source chunk and the destination
// window, both laid out row-major with the last dimension fastest-varying —
// aistore/reb/ec.go's per-stripe copy loop generalized from 1D to up-to-3D).
func buildRuns(ov overlap, c Chunk, w Window) []Run {
	dims := len(ov.size)
	last := dims - 1
	runLen := int64(ov.size[last])
	if runLen <= 0 {
		return nil
	}

	var runs []Run
	outer := ov.size[:last]
	idx := make([]int32, last)
	for {
		localCoord := make([]int32, dims)
		dstCoord := make([]int32, dims)
		for d := 0; d < last; d++ {
			localCoord[d] = ov.off[d] - c.Offset[d] + idx[d]
			dstCoord[d] = ov.off[d] - w.Offset[d] + idx[d]
		}
		localCoord[last] = ov.off[last] - c.Offset[last]
		dstCoord[last] = ov.off[last] - w.Offset[last]
		runs = append(runs, Run{
			LocalOffsetElems: flatten(localCoord, c.Size),
			DstOffsetElems:   flatten(dstCoord, w.Size),
			LengthElems:      runLen,
		})

		if last == 0 {
			break // no outer dims: exactly one run
		}
		d := last - 1
		for d >= 0 {
			idx[d]++
			if idx[d] < outer[d] {
				break
			}
			idx[d] = 0
			d--
		}
		if d < 0 {
			break
		}
	}
	return runs
}

func flatten(coords, shape []int32) int64 {
	var idx int64
	for d := range shape {
		idx = idx*int64(shape[d]) + int64(coords[d])
	}
	return idx
}

// Fill implements spec.md §4.4's fill_selection: owned is the concatenation,
// in the same connection order as desc.Chunks, of each connection's entire
// partition payload (spec.md §4.4 invariant: "the owned-data buffer size
// equals Σ_c element_size · Π_k l_size_c[k]"). dst must be at least
// window-elements · elemSize bytes, laid out row-major in window coordinates.
func (Kernel) Fill(desc *Descriptor, owned []byte, elemSize int, dst []byte) error {
	bases := make([]int64, len(desc.Chunks))
	var cum int64
	for i, c := range desc.Chunks {
		bases[i] = cum
		cum += c.elements() * int64(elemSize)
	}
	if int64(len(owned)) != cum {
		return fmt.Errorf("remap: owned buffer is %d bytes, want %d", len(owned), cum)
	}
	var winElems int64 = 1
	for _, s := range desc.Window.Size {
		winElems *= int64(s)
	}
	if need := winElems * int64(elemSize); int64(len(dst)) < need {
		return fmt.Errorf("remap: dst buffer is %d bytes, want at least %d", len(dst), need)
	}

	for _, plan := range desc.Conns {
		base := bases[plan.ChunkIndex]
		for _, r := range plan.Runs {
			srcStart := base + r.LocalOffsetElems*int64(elemSize)
			dstStart := r.DstOffsetElems * int64(elemSize)
			length := r.LengthElems * int64(elemSize)
			if srcStart < 0 || srcStart+length > int64(len(owned)) {
				return fmt.Errorf("remap: source run [%d,%d) out of bounds (len=%d)", srcStart, srcStart+length, len(owned))
			}
			if dstStart < 0 || dstStart+length > int64(len(dst)) {
				return fmt.Errorf("remap: dest run [%d,%d) out of bounds (len=%d)", dstStart, dstStart+length, len(dst))
			}
			copy(dst[dstStart:dstStart+length], owned[srcStart:srcStart+length])
		}
	}
	return nil
}
