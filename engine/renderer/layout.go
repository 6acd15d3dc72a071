package renderer

import (
	"github.com/spectraldev/spectral/engine/mathx"
)

// bufferOffsetAlign is the descriptor offset alignment every region start
// honors. 256 satisfies minUniformBufferOffsetAlignment and
// minStorageBufferOffsetAlignment on all hardware worth supporting.
const bufferOffsetAlign = 256

const (
	globalsWireSize     = 320
	instanceWireSize    = 96
	accInstanceWireSize = 64
	pointLightWireSize  = 32
)

// FrameRegion is one kind of per-frame data inside the shared frame
// buffer: an unaligned payload size plus one start offset per frame
// copy.
type FrameRegion struct {
	Offsets []uint64
	Size    uint64
}

// Offset returns the region start for a parity, frame % copies.
func (r FrameRegion) Offset(parity uint64) uint64 {
	return r.Offsets[parity]
}

// FrameLayout is the offset table of the single buffer that carries all
// CPU-written per-frame data. Every region holds `copies` identical
// slots so frame N can be written while frame N-copies is still in
// flight; region starts are 256-byte aligned. The table is computed once
// at construction and never changes.
type FrameLayout struct {
	Globals      FrameRegion
	Instances    FrameRegion
	PointLights  FrameRegion
	AccInstances FrameRegion

	copies uint64
	total  uint64
}

func NewFrameLayout(maxInstances, maxPointLights, framesInFlight uint32) FrameLayout {
	l := FrameLayout{copies: uint64(framesInFlight)}
	cursor := uint64(0)
	place := func(size uint64) FrameRegion {
		r := FrameRegion{Size: size, Offsets: make([]uint64, l.copies)}
		aligned := mathx.AlignUp(size, uint64(bufferOffsetAlign))
		for i := range r.Offsets {
			r.Offsets[i] = cursor
			cursor += aligned
		}
		return r
	}
	l.Globals = place(globalsWireSize)
	l.Instances = place(uint64(maxInstances) * instanceWireSize)
	l.PointLights = place(uint64(maxPointLights) * pointLightWireSize)
	l.AccInstances = place(uint64(maxInstances) * accInstanceWireSize)
	l.total = cursor
	return l
}

// TotalSize is the frame buffer allocation size.
func (l FrameLayout) TotalSize() uint64 { return l.total }

// Copies is how many frame slots each region holds.
func (l FrameLayout) Copies() uint64 { return l.copies }

// Parity maps an absolute frame index to a region slot.
func (l FrameLayout) Parity(frame uint64) uint64 { return frame % l.copies }
