package core

import (
	"errors"
)

// Per-frame failures. Draw reports these and leaves all caches intact;
// the embedding application decides whether to retry on the next frame.
var (
	ErrTooManyInstances   = errors.New("instance count exceeds the configured maximum")
	ErrDescriptorCapacity = errors.New("bindless descriptor capacity exceeded")
)

// Construction-time failures. New aborts entirely, no partially
// initialized renderer is ever returned.
var (
	ErrOutOfDeviceMemory = errors.New("out of device memory")
	ErrUnsupportedFormat = errors.New("requested image or format combination is unsupported")
)

// Unrecoverable. Expected to terminate the render loop.
var ErrDeviceLost = errors.New("device lost")
