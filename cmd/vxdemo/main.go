// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command vxdemo renders the raytraced scene headlessly on the HAL noop
// device, optionally capturing the last frame to WebP and writing the
// frame graph in Graphviz DOT form.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/HugoSmits86/nativewebp"
	_ "github.com/ftrvxmtrx/tga"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/framegraph/gfx"
	"github.com/gogpu/framegraph/renderer"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		watch      = flag.Bool("watch", false, "reload the configuration file when it changes")
		frames     = flag.Int("frames", 8, "number of frames to render")
		width      = flag.Uint("width", 640, "frame width")
		height     = flag.Uint("height", 480, "frame height")
		ssao       = flag.Bool("ssao", true, "enable ambient occlusion")
		taa        = flag.Bool("taa", true, "enable temporal anti-aliasing")
		gizmos     = flag.Bool("gizmos", true, "draw the ground grid")
		camera     = flag.String("camera", "", "camera image (TGA, PNG or JPEG); enables AR mode")
		output     = flag.String("output", "", "write the last frame to this WebP file")
		dot        = flag.String("dot", "", "write the frame graph to this DOT file")
		verbose    = flag.Bool("v", false, "log the schedule at debug level")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	framegraph.SetLogger(logger)

	cfg := renderer.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = renderer.LoadConfig(*configPath); err != nil {
			log.Fatalf("vxdemo: %v", err)
		}
	}
	// Flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = uint32(*width) //nolint:gosec // frame sizes fit
		case "height":
			cfg.Height = uint32(*height) //nolint:gosec // frame sizes fit
		case "ssao":
			cfg.SSAO = *ssao
		case "taa":
			cfg.TAA = *taa
		case "gizmos":
			cfg.Gizmos = *gizmos
		}
	})
	if *camera != "" {
		cfg.AR = true
	}
	if *output != "" {
		cfg.Capture = true
	}

	if err := run(cfg, *configPath, *watch, *frames, *camera, *output, *dot); err != nil {
		log.Fatalf("vxdemo: %v", err)
	}
}

func run(cfg renderer.Config, configPath string, watch bool, frames int, camera, output, dot string) error {
	ctx, closeDevice, err := openNoop()
	if err != nil {
		return err
	}
	defer closeDevice()

	r, err := renderer.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.Dispose()

	if camera != "" {
		img, err := decodeImage(camera)
		if err != nil {
			return err
		}
		r.SetCameraImage(img)
	}

	if watch && configPath != "" {
		wctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		go func() {
			err := renderer.WatchConfig(wctx, configPath, func(c renderer.Config) {
				c.AR, c.Capture = cfg.AR, cfg.Capture
				if err := r.SetConfig(c); err != nil {
					slog.Warn("vxdemo: rejected configuration", "err", err)
				}
			})
			if err != nil {
				slog.Warn("vxdemo: watch stopped", "err", err)
			}
		}()
	}

	scene := r.Scene()
	for i := range frames {
		scene.Time = float32(i) / 60
		if err := r.Render(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	w, h := r.Size()
	slog.Info("vxdemo: rendered", "frames", frames, "size", fmt.Sprintf("%dx%d", w, h),
		"reduced", r.Reduced(), "stats", r.Stats().String())

	if dot != "" {
		if err := writeDot(r, dot); err != nil {
			return err
		}
	}
	if output != "" {
		img := r.Capture()
		if img == nil {
			return errors.New("no frame was captured")
		}
		if err := writeWebP(img, output); err != nil {
			return err
		}
		slog.Info("vxdemo: saved", "path", output)
	}
	return nil
}

// openNoop opens the first adapter of the HAL noop backend.
func openNoop() (*gfx.Context, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, errors.New("no adapter")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("open device: %w", err)
	}
	closeDevice := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return gfx.NewContext(openDev.Device, openDev.Queue), closeDevice, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	slog.Debug("vxdemo: camera image", "path", path, "format", format, "bounds", img.Bounds())
	return img, nil
}

func writeWebP(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func writeDot(r *renderer.Renderer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteDot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
