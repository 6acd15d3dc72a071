/*
Headless demo driving the renderer over the recording test device.
Swap gputest for a real backend implementation of gpu.Device to put
pixels on screen; everything above the interface is identical.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spectraldev/spectral/engine/config"
	"github.com/spectraldev/spectral/engine/core"
	"github.com/spectraldev/spectral/engine/gpu"
	"github.com/spectraldev/spectral/engine/gpu/gputest"
	"github.com/spectraldev/spectral/engine/renderer"
	"github.com/spectraldev/spectral/testbed"
)

func main() {
	configPath := flag.String("config", "spectral.toml", "renderer configuration file")
	frames := flag.Int("frames", 0, "stop after this many frames (0 runs until interrupted)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogWarn("using default config: %s", err.Error())
		cfg = config.Default()
	}

	device := gputest.NewDevice()
	queue := gputest.NewQueue(device)
	extent := gpu.Extent2D{Width: 1280, Height: 720}
	swapchain := gputest.NewSwapchain(device, extent, gpu.FormatBGRA8Srgb)

	r, err := renderer.New(device, queue, swapchain, cfg)
	if err != nil {
		core.LogFatal("renderer: %s", err.Error())
	}
	if _, statErr := os.Stat(*configPath); statErr == nil {
		if err := r.WatchConfig(*configPath, cfg.Capacities); err != nil {
			core.LogWarn("config watching disabled: %s", err.Error())
		}
	}

	tb, err := testbed.New(device, float32(extent.Width)/float32(extent.Height))
	if err != nil {
		core.LogFatal("testbed: %s", err.Error())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	clock := core.NewClock()
	clock.Start()

	running := true
	for running {
		select {
		case <-sigCh:
			running = false
		default:
		}

		tb.Update(clock.DeltaSeconds())
		if err := r.Draw(tb.Scene, clock); err != nil {
			core.LogError("frame %d: %s", r.Frame(), err.Error())
			break
		}

		if *frames > 0 && r.Frame() >= uint64(*frames) {
			running = false
		}
		if r.Frame()%240 == 0 {
			core.LogDebug("fps %.1f, frame time %.2fms", r.Metrics().FPS(), r.Metrics().FrameTime())
		}
	}

	if err := r.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err.Error())
	}
}
