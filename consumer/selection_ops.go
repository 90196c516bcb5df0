package consumer

import (
	"fmt"

	"github.com/tmarrinan/hpcstream-go/remap"
	"github.com/tmarrinan/hpcstream-go/schema"
)

// GlobalSizeFor implements spec.md §6 global_size_for: copies the resolved
// global extents into outSize, or zeroes it for a scalar. Every owned
// connection's clone carries the same GSize (it's a property of the global
// array, not the partition), so the first connection is representative.
func (p *Peer) GlobalSizeFor(varName string, outSize []uint32) error {
	if len(p.Connections) == 0 {
		for i := range outSize {
			outSize[i] = 0
		}
		return nil
	}
	v, ok := p.Connections[0].Vars[varName]
	if !ok {
		return fmt.Errorf("consumer: global_size_for undeclared variable %q", varName)
	}
	if !v.IsArray() {
		for i := range outSize {
			outSize[i] = 0
		}
		return nil
	}
	n := len(outSize)
	if n > len(v.GSize) {
		n = len(v.GSize)
	}
	copy(outSize[:n], v.GSize[:n])
	for i := n; i < len(outSize); i++ {
		outSize[i] = 0
	}
	return nil
}

// CreateGlobalArraySelection implements spec.md §6/§4.4
// create_global_array_selection: builds an owned-chunks table from every
// owned connection's current partition metadata and asks the remap kernel
// for a redistribution Descriptor.
func (p *Peer) CreateGlobalArraySelection(varName string, size, offset []int32) (*Selection, error) {
	dims := len(size)
	if len(offset) != dims {
		return nil, fmt.Errorf("consumer: size/offset length mismatch (%d vs %d)", dims, len(offset))
	}
	kind, err := kindForDims(dims)
	if err != nil {
		return nil, err
	}

	var elemType = -1
	var elemSize uint32
	chunks := make([]remap.Chunk, 0, len(p.Connections))
	for _, c := range p.Connections {
		v, ok := c.Vars[varName]
		if !ok {
			return nil, fmt.Errorf("consumer: create_global_array_selection on undeclared variable %q", varName)
		}
		if !v.IsArray() {
			return nil, fmt.Errorf("consumer: %q is a scalar, not an array variable", varName)
		}
		if int(v.Dims) != dims {
			return nil, fmt.Errorf("consumer: %q has dims=%d, selection requested dims=%d", varName, v.Dims, dims)
		}
		if elemType == -1 {
			elemType = int(v.BaseType)
			elemSize = v.ElementSize
		}
		chunkOff := make([]int32, dims)
		chunkSize := make([]int32, dims)
		for k := 0; k < dims; k++ {
			chunkOff[k] = int32(v.LOffset[k])
			chunkSize[k] = int32(v.LSize[k])
		}
		chunks = append(chunks, remap.Chunk{Offset: chunkOff, Size: chunkSize})
	}

	window := remap.Window{Offset: offset, Size: size}
	var kernel remap.Kernel
	desc, err := kernel.Describe(p.rank, p.size, chunks, window)
	if err != nil {
		return nil, err
	}

	sel := &Selection{
		VarName:     varName,
		Kind:        kind,
		ElementSize: elemSize,
		Window:      window,
		Descriptor:  desc,
	}
	if elemType >= 0 {
		sel.ElementType = schema.DataType(elemType)
	}
	return sel, nil
}

// FillSelection implements spec.md §6/§4.4 fill_selection: concatenates, in
// connection order, each owned connection's current payload bytes for
// sel.VarName into an owned-data buffer, then drives the remap kernel to
// scatter it into userBuf laid out as sel.Window.
func (p *Peer) FillSelection(sel *Selection, userBuf []byte) error {
	var owned []byte
	for _, c := range p.Connections {
		v, ok := c.Vars[sel.VarName]
		if !ok {
			return fmt.Errorf("consumer: fill_selection on undeclared variable %q", sel.VarName)
		}
		owned = append(owned, v.ValueBuf...)
	}
	var kernel remap.Kernel
	return kernel.Fill(sel.Descriptor, owned, int(sel.ElementSize), userBuf)
}
