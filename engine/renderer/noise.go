package renderer

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"golang.org/x/exp/rand"

	"github.com/spectraldev/spectral/engine/core"
	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/mathx"
)

const (
	blueNoiseSize   = 64
	blueNoiseLayers = 64
	// RGBA32F texels, one 64x64 slice per layer.
	blueNoiseByteSize = blueNoiseSize * blueNoiseSize * blueNoiseLayers * 16
)

// LoadBlueNoise returns the dither buffer the ray-generation shader
// samples. Generation takes a few seconds, so the result is cached at
// path; a cache of the wrong size (stale constants) is regenerated.
func LoadBlueNoise(device gpu.Device, path string) (gpu.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil || len(data) != blueNoiseByteSize {
		if err == nil {
			core.LogWarn("blue noise cache %s has %d bytes, want %d; regenerating", path, len(data), blueNoiseByteSize)
		} else {
			core.LogInfo("generating blue noise (%d layers of %dx%d)", blueNoiseLayers, blueNoiseSize, blueNoiseSize)
		}
		data = generateBlueNoise()
		if werr := os.WriteFile(path, data, 0o644); werr != nil {
			core.LogWarn("cannot cache blue noise at %s: %v", path, werr)
		}
	}

	buffer, err := device.CreateBufferStatic(gpu.BufferInfo{
		Size:   blueNoiseByteSize,
		Align:  bufferOffsetAlign,
		Usage:  gpu.BufferUsageStorage,
		Memory: gpu.MemoryFastDeviceAccess,
		Name:   "blue-noise",
	}, data)
	if err != nil {
		return nil, fmt.Errorf("create blue noise buffer: %w", err)
	}
	return buffer, nil
}

func generateBlueNoise() []byte {
	rng := rand.New(rand.NewSource(0x5eed))
	data := make([]byte, 0, blueNoiseByteSize)
	channels := make([][]float32, 4)
	for layer := 0; layer < blueNoiseLayers; layer++ {
		for c := range channels {
			channels[c] = mathx.BlueNoise(rng, blueNoiseSize)
		}
		for i := 0; i < blueNoiseSize*blueNoiseSize; i++ {
			for c := range channels {
				data = binary.LittleEndian.AppendUint32(data, math.Float32bits(channels[c][i]))
			}
		}
	}
	return data
}
