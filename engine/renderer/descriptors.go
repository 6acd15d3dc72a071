package renderer

import (
	"fmt"

	"github.com/spectraldev/spectral/engine/core"
)

// SparseDescriptors hands out stable slots in a fixed-capacity bindless
// descriptor array. A resource keeps its slot for the registry's
// lifetime; the caller issues exactly one descriptor write per new slot.
type SparseDescriptors[K comparable] struct {
	slots    map[K]uint32
	free     []uint32
	next     uint32
	capacity uint32
}

func NewSparseDescriptors[K comparable](capacity uint32) *SparseDescriptors[K] {
	return &SparseDescriptors[K]{
		slots:    make(map[K]uint32),
		capacity: capacity,
	}
}

// Index returns the slot for resource, allocating one when unseen.
// isNew reports that the caller must write the descriptor for this slot.
func (d *SparseDescriptors[K]) Index(resource K) (slot uint32, isNew bool, err error) {
	if slot, ok := d.slots[resource]; ok {
		return slot, false, nil
	}
	if n := len(d.free); n > 0 {
		slot = d.free[n-1]
		d.free = d.free[:n-1]
	} else {
		if d.next == d.capacity {
			return 0, false, fmt.Errorf("%w: %d slots", core.ErrDescriptorCapacity, d.capacity)
		}
		slot = d.next
		d.next++
	}
	d.slots[resource] = slot
	return slot, true, nil
}

// Remove releases a resource's slot for reuse. The render loop never
// calls this; it exists for embedders that stream resources in and out
// between sessions.
func (d *SparseDescriptors[K]) Remove(resource K) (uint32, bool) {
	slot, ok := d.slots[resource]
	if !ok {
		return 0, false
	}
	delete(d.slots, resource)
	if slot == d.next-1 {
		d.next--
	} else {
		d.free = append(d.free, slot)
	}
	return slot, true
}

func (d *SparseDescriptors[K]) Len() int {
	return len(d.slots)
}

func (d *SparseDescriptors[K]) Capacity() uint32 {
	return d.capacity
}
