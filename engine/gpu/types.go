// Package gpu declares the capability interface the renderer consumes.
// Backends (Vulkan, Metal, a test recorder) implement Device, Queue,
// Encoder and Swapchain; the renderer core never touches a platform API
// directly.
package gpu

type Extent2D struct {
	Width  uint32
	Height uint32
}

type Extent3D struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

func (e Extent2D) Into3D() Extent3D {
	return Extent3D{Width: e.Width, Height: e.Height, Depth: 1}
}

type Format uint8

const (
	FormatUndefined Format = iota
	FormatRGBA8Unorm
	FormatBGRA8Srgb
	FormatRG32Float
	FormatRGB32Float
	FormatRGBA32Float
)

type IndexType uint8

const (
	IndexTypeU16 IndexType = iota
	IndexTypeU32
)

// Size reports the byte width of one index.
func (t IndexType) Size() uint64 {
	if t == IndexTypeU16 {
		return 2
	}
	return 4
}

type Topology uint8

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyPointList
)

type ImageLayout uint8

const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresent
)

type PipelineStage uint32

const (
	StageTopOfPipe PipelineStage = 1 << iota
	StageTransfer
	StageComputeShader
	StageRayTracingShader
	StageAccelerationStructureBuild
	StageColorAttachmentOutput
	StageBottomOfPipe
)

type ShaderStage uint32

const (
	ShaderStageRaygen ShaderStage = 1 << iota
	ShaderStageMiss
	ShaderStageClosestHit
	ShaderStageAnyHit
	ShaderStageCompute
)

type BufferUsage uint32

const (
	BufferUsageUniform BufferUsage = 1 << iota
	BufferUsageStorage
	BufferUsageIndex
	BufferUsageVertex
	BufferUsageDeviceAddress
	BufferUsageAccelerationStructureInput
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

type ImageUsage uint32

const (
	ImageUsageStorage ImageUsage = 1 << iota
	ImageUsageSampled
	ImageUsageTransferSrc
	ImageUsageTransferDst
)

type MemoryUsage uint32

const (
	MemoryHostAccess MemoryUsage = 1 << iota
	MemoryFastDeviceAccess
)

type DescriptorType uint8

const (
	DescriptorAccelerationStructure DescriptorType = iota
	DescriptorUniformBuffer
	DescriptorStorageBuffer
	DescriptorStorageImage
	DescriptorCombinedImageSampler
)

type DescriptorBindingFlags uint32

const (
	BindingPartiallyBound DescriptorBindingFlags = 1 << iota
	BindingUpdateUnusedWhilePending
)

// DeviceAddress is a GPU-visible pointer into a buffer or acceleration
// structure.
type DeviceAddress uint64

func (a DeviceAddress) Offset(o uint64) DeviceAddress {
	return a + DeviceAddress(o)
}

// Opaque backend handles. Identity (==) on a handle value is the identity
// of the underlying resource; ID is stable for the resource's lifetime and
// unique per device.

type Buffer interface {
	ID() uint64
	Info() BufferInfo
}

type Image interface {
	ID() uint64
	Info() ImageInfo
}

type ImageView interface {
	ID() uint64
	Target() Image
}

type Sampler interface {
	ID() uint64
}

type Fence interface {
	ID() uint64
}

type Semaphore interface {
	ID() uint64
}

type DescriptorSetLayout interface {
	ID() uint64
}

type DescriptorSet interface {
	ID() uint64
}

type PipelineLayout interface {
	ID() uint64
}

type RayTracingPipeline interface {
	ID() uint64
}

type ComputePipeline interface {
	ID() uint64
}

type ShaderBindingTable interface {
	ID() uint64
}

type AccelerationStructure interface {
	ID() uint64
	Level() AccelerationStructureLevel
}

type CommandBuffer interface {
	ID() uint64
}

type BufferInfo struct {
	Size   uint64
	Align  uint64
	Usage  BufferUsage
	Memory MemoryUsage
	Name   string
}

type ImageInfo struct {
	Extent Extent2D
	Format Format
	Levels uint32
	Layers uint32
	Usage  ImageUsage
	Name   string
}

type ImageViewInfo struct {
	Image Image
}

type SamplerAddressMode uint8

const (
	AddressModeClampToEdge SamplerAddressMode = iota
	AddressModeRepeat
	AddressModeMirroredRepeat
)

type SamplerInfo struct {
	AddressMode             SamplerAddressMode
	UnnormalizedCoordinates bool
}

type DescriptorSetLayoutBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStage
	Flags   DescriptorBindingFlags
}

type DescriptorSetLayoutInfo struct {
	UpdateAfterBind bool
	Bindings        []DescriptorSetLayoutBinding
}

type DescriptorSetInfo struct {
	Layout DescriptorSetLayout
}

type PushConstantRange struct {
	Stages ShaderStage
	Offset uint32
	Size   uint32
}

type PipelineLayoutInfo struct {
	Sets          []DescriptorSetLayout
	PushConstants []PushConstantRange
}

// Shaders are referenced by name; compilation and module management live
// behind the device boundary.
type ShaderInfo struct {
	Name  string
	Stage ShaderStage
}

type ShaderGroupKind uint8

const (
	GroupRaygen ShaderGroupKind = iota
	GroupMiss
	GroupTriangles
)

type ShaderGroup struct {
	Kind       ShaderGroupKind
	Raygen     int
	Miss       int
	ClosestHit int
	AnyHit     int
}

type RayTracingPipelineInfo struct {
	Shaders           []ShaderInfo
	Groups            []ShaderGroup
	MaxRecursionDepth uint32
	Layout            PipelineLayout
}

type ComputePipelineInfo struct {
	Shader ShaderInfo
	Layout PipelineLayout
}

type ShaderBindingTableInfo struct {
	Raygen   int
	Miss     []int
	Hit      []int
	Callable []int
}

type AccelerationStructureLevel uint8

const (
	AccelerationStructureBottom AccelerationStructureLevel = iota
	AccelerationStructureTop
)

type AccelerationStructureFlags uint32

const (
	ASPreferFastTrace AccelerationStructureFlags = 1 << iota
	ASPreferFastBuild
)

// AccelerationStructureInfo sizes a structure at creation; the actual
// geometry is supplied at build time.
type AccelerationStructureInfo struct {
	Level AccelerationStructureLevel
	Flags AccelerationStructureFlags

	// Bottom level.
	MaxPrimitiveCount uint32
	MaxVertexCount    uint32
	VertexFormat      Format
	IndexType         *IndexType

	// Top level.
	MaxInstanceCount uint32
}

type GeometryFlags uint32

const (
	GeometryOpaque GeometryFlags = 1 << iota
)

// TrianglesData describes one bottom-level build's source geometry.
type TrianglesData struct {
	Flags          GeometryFlags
	VertexData     DeviceAddress
	VertexStride   uint64
	VertexFormat   Format
	IndexData      *DeviceAddress
	IndexType      IndexType
	PrimitiveCount uint32
}

// InstancesData describes one top-level build's instance array.
type InstancesData struct {
	Flags          GeometryFlags
	Data           DeviceAddress
	PrimitiveCount uint32
}

// AccelerationStructureBuild is a single build command. Exactly one of
// Triangles or Instances is set, matching Dst's level.
type AccelerationStructureBuild struct {
	Dst       AccelerationStructure
	Scratch   DeviceAddress
	Triangles *TrianglesData
	Instances *InstancesData
}

type BufferRange struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
}

type ImageDescriptor struct {
	View    ImageView
	Layout  ImageLayout
	Sampler Sampler
}

// Descriptors carries the payload of one descriptor write; exactly one
// field is non-nil.
type Descriptors struct {
	AccelerationStructures []AccelerationStructure
	UniformBuffers         []BufferRange
	StorageBuffers         []BufferRange
	StorageImages          []ImageDescriptor
	CombinedImageSamplers  []ImageDescriptor
}

type WriteDescriptorSet struct {
	Set         DescriptorSet
	Binding     uint32
	Element     uint32
	Descriptors Descriptors
}

type ImageBarrier struct {
	Image     Image
	OldLayout ImageLayout
	NewLayout ImageLayout
}

// WaitSemaphore pairs a semaphore with the pipeline stage the wait
// applies to.
type WaitSemaphore struct {
	Semaphore Semaphore
	Stage     PipelineStage
}

// SwapchainFrame is one acquired presentable image. Wait must gate the
// first write to Image; Signal must be signalled by the submission that
// produces the final contents.
type SwapchainFrame struct {
	Image  Image
	Wait   Semaphore
	Signal Semaphore
}
