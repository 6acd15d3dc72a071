// Package gputest provides an in-memory Device implementation that
// records every call it receives. Tests (and the headless testbed) drive
// the renderer against it and assert on the recorded stream: build
// counts, barrier ordering, memory-write offsets, descriptor updates.
package gputest

import (
	"fmt"

	"github.com/spectraldev/spectral/engine/core"
	"github.com/spectraldev/spectral/engine/gpu"
)

type MemoryWrite struct {
	BufferID uint64
	Offset   uint64
	Size     uint64
}

type Submission struct {
	Wait     []gpu.WaitSemaphore
	Signal   []gpu.Semaphore
	Fence    gpu.Fence
	Commands []Command
}

// Device records all capability-interface traffic. Not safe for
// concurrent use; the renderer is single-threaded by contract.
type Device struct {
	nextID uint64

	Writes           []MemoryWrite
	DescriptorWrites []gpu.WriteDescriptorSet
	Submissions      []Submission
	FenceWaits       int
	FenceResets      int
	Presented        int
	IdleWaits        int

	// Lost simulates an unrecoverable device condition: every WaitFences
	// call fails with core.ErrDeviceLost.
	Lost bool

	// FailBufferCreation simulates memory exhaustion at construction.
	FailBufferCreation bool
}

func NewDevice() *Device {
	return &Device{}
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

type bufferHandle struct {
	id   uint64
	info gpu.BufferInfo
	data []byte
}

func (b *bufferHandle) ID() uint64           { return b.id }
func (b *bufferHandle) Info() gpu.BufferInfo { return b.info }

type imageHandle struct {
	id   uint64
	info gpu.ImageInfo
}

func (i *imageHandle) ID() uint64          { return i.id }
func (i *imageHandle) Info() gpu.ImageInfo { return i.info }

type imageViewHandle struct {
	id    uint64
	image gpu.Image
}

func (v *imageViewHandle) ID() uint64        { return v.id }
func (v *imageViewHandle) Target() gpu.Image { return v.image }

type handle struct {
	id uint64
}

func (h *handle) ID() uint64 { return h.id }

type samplerHandle struct{ handle }
type fenceHandle struct{ handle }
type semaphoreHandle struct{ handle }
type setLayoutHandle struct {
	handle
	info gpu.DescriptorSetLayoutInfo
}
type setHandle struct {
	handle
	layout gpu.DescriptorSetLayout
}
type pipelineLayoutHandle struct{ handle }
type rtPipelineHandle struct{ handle }
type computePipelineHandle struct{ handle }
type sbtHandle struct{ handle }

type asHandle struct {
	handle
	level gpu.AccelerationStructureLevel
}

func (a *asHandle) Level() gpu.AccelerationStructureLevel { return a.level }

type commandBufferHandle struct {
	handle
	commands []Command
}

func (d *Device) CreateBuffer(info gpu.BufferInfo) (gpu.Buffer, error) {
	if d.FailBufferCreation {
		return nil, core.ErrOutOfDeviceMemory
	}
	return &bufferHandle{id: d.id(), info: info, data: make([]byte, info.Size)}, nil
}

func (d *Device) CreateBufferStatic(info gpu.BufferInfo, data []byte) (gpu.Buffer, error) {
	if d.FailBufferCreation {
		return nil, core.ErrOutOfDeviceMemory
	}
	if info.Size == 0 {
		info.Size = uint64(len(data))
	}
	b := &bufferHandle{id: d.id(), info: info, data: make([]byte, info.Size)}
	copy(b.data, data)
	return b, nil
}

func (d *Device) CreateImage(info gpu.ImageInfo) (gpu.Image, error) {
	if info.Format == gpu.FormatUndefined {
		return nil, fmt.Errorf("create image %q: %w", info.Name, core.ErrUnsupportedFormat)
	}
	return &imageHandle{id: d.id(), info: info}, nil
}

func (d *Device) CreateImageView(info gpu.ImageViewInfo) (gpu.ImageView, error) {
	return &imageViewHandle{id: d.id(), image: info.Image}, nil
}

func (d *Device) CreateSampler(info gpu.SamplerInfo) (gpu.Sampler, error) {
	return &samplerHandle{handle{d.id()}}, nil
}

func (d *Device) CreateDescriptorSetLayout(info gpu.DescriptorSetLayoutInfo) (gpu.DescriptorSetLayout, error) {
	return &setLayoutHandle{handle: handle{d.id()}, info: info}, nil
}

func (d *Device) CreateDescriptorSet(info gpu.DescriptorSetInfo) (gpu.DescriptorSet, error) {
	return &setHandle{handle: handle{d.id()}, layout: info.Layout}, nil
}

func (d *Device) CreatePipelineLayout(info gpu.PipelineLayoutInfo) (gpu.PipelineLayout, error) {
	return &pipelineLayoutHandle{handle{d.id()}}, nil
}

func (d *Device) CreateRayTracingPipeline(info gpu.RayTracingPipelineInfo) (gpu.RayTracingPipeline, error) {
	return &rtPipelineHandle{handle{d.id()}}, nil
}

func (d *Device) CreateComputePipeline(info gpu.ComputePipelineInfo) (gpu.ComputePipeline, error) {
	return &computePipelineHandle{handle{d.id()}}, nil
}

func (d *Device) CreateShaderBindingTable(pipeline gpu.RayTracingPipeline, info gpu.ShaderBindingTableInfo) (gpu.ShaderBindingTable, error) {
	return &sbtHandle{handle{d.id()}}, nil
}

func (d *Device) CreateAccelerationStructure(info gpu.AccelerationStructureInfo) (gpu.AccelerationStructure, error) {
	return &asHandle{handle: handle{d.id()}, level: info.Level}, nil
}

func (d *Device) AllocateAccelerationStructureScratch(as gpu.AccelerationStructure) (gpu.Buffer, error) {
	return &bufferHandle{id: d.id(), info: gpu.BufferInfo{Size: 1 << 16, Usage: gpu.BufferUsageDeviceAddress}}, nil
}

func (d *Device) WriteMemory(buffer gpu.Buffer, offset uint64, data []byte) error {
	b, ok := buffer.(*bufferHandle)
	if !ok {
		return fmt.Errorf("foreign buffer handle")
	}
	if offset+uint64(len(data)) > b.info.Size {
		return fmt.Errorf("write past end of buffer %d: offset %d size %d cap %d",
			b.id, offset, len(data), b.info.Size)
	}
	copy(b.data[offset:], data)
	d.Writes = append(d.Writes, MemoryWrite{BufferID: b.id, Offset: offset, Size: uint64(len(data))})
	return nil
}

func (d *Device) UpdateDescriptorSets(writes []gpu.WriteDescriptorSet) error {
	d.DescriptorWrites = append(d.DescriptorWrites, writes...)
	return nil
}

func (d *Device) CreateFence() (gpu.Fence, error) {
	return &fenceHandle{handle{d.id()}}, nil
}

func (d *Device) WaitFences(fences []gpu.Fence, all bool) error {
	if d.Lost {
		return core.ErrDeviceLost
	}
	d.FenceWaits++
	return nil
}

func (d *Device) ResetFences(fences []gpu.Fence) error {
	d.FenceResets++
	return nil
}

func (d *Device) BufferDeviceAddress(buffer gpu.Buffer) gpu.DeviceAddress {
	// Fake address space: buffer ID in the high bits keeps addresses of
	// distinct buffers disjoint.
	return gpu.DeviceAddress(buffer.ID() << 32)
}

func (d *Device) AccelerationStructureDeviceAddress(as gpu.AccelerationStructure) gpu.DeviceAddress {
	return gpu.DeviceAddress(as.ID()<<32 | 1)
}

func (d *Device) WaitIdle() error {
	d.IdleWaits++
	return nil
}

// BufferData exposes the shadow copy of a buffer's contents for
// assertions on what the renderer wrote.
func (d *Device) BufferData(buffer gpu.Buffer) []byte {
	if b, ok := buffer.(*bufferHandle); ok {
		return b.data
	}
	return nil
}

// Commands flattens every submission's command stream in submit order.
func (d *Device) Commands() []Command {
	var all []Command
	for _, s := range d.Submissions {
		all = append(all, s.Commands...)
	}
	return all
}

// CountBuilds reports how many acceleration-structure build commands of
// the given level were submitted.
func (d *Device) CountBuilds(level gpu.AccelerationStructureLevel) int {
	n := 0
	for _, cmd := range d.Commands() {
		if cmd.Kind != CmdBuildAccelerationStructure {
			continue
		}
		for _, b := range cmd.Builds {
			if b.Dst.Level() == level {
				n++
			}
		}
	}
	return n
}
