package consumer

import (
	"github.com/tmarrinan/hpcstream-go/remap"
	"github.com/tmarrinan/hpcstream-go/schema"
)

// Kind names the problem shape spec.md §4.4 step 1 derives from dims.
type Kind uint8

const (
	Continuous Kind = iota + 1
	Grid2D
	Grid3D
)

func kindForDims(dims int) (Kind, error) {
	switch dims {
	case 1:
		return Continuous, nil
	case 2:
		return Grid2D, nil
	case 3:
		return Grid3D, nil
	default:
		return 0, remap.ErrInvalidDims
	}
}

// Selection is spec.md §3's consumer-side Selection: a desired sub-window of
// a producer-global array, plus the remap Descriptor built from the owning
// connections' current partition metadata at the moment of creation.
// CreateGlobalArraySelection captures a snapshot — it does not track further
// ArraySize updates.
type Selection struct {
	VarName     string
	Kind        Kind
	ElementType schema.DataType
	ElementSize uint32
	Window      remap.Window
	Descriptor  *remap.Descriptor
}
