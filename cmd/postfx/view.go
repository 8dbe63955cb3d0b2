package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"postfx-gl/atmosphere"
	"postfx-gl/config"
	"postfx-gl/effects"
	"postfx-gl/libgl"
	"postfx-gl/libgpu"
	"postfx-gl/libio"
	"postfx-gl/pipeline"
	"postfx-gl/ssao"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	im "github.com/inkyblackness/imgui-go/v4"
	"github.com/spf13/cobra"
)

type viewArgs struct {
	shaders   string
	source    string
	luts      string
	save      string
	width     int
	height    int
	intensity float32
}

func newViewCmd() *cobra.Command {
	args := viewArgs{
		shaders:   "shaders",
		save:      "postfx-profile.json",
		width:     1600,
		height:    900,
		intensity: 4,
	}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the composited image in a window with a settings panel",
		Long: `Open a window and composite a source image every frame. The shader directory holds
one directory per program library (postfx, ssao and optionally atmosphere) with sources named
NN_name.frag or NN_name.comp.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runView(args)
		},
	}

	cmd.Flags().StringVar(&args.shaders, "shaders", args.shaders, "Directory holding the shader libraries")
	cmd.Flags().StringVar(&args.source, "source", args.source, "Source image (.f32), a gradient is generated when empty")
	cmd.Flags().StringVar(&args.luts, "luts", args.luts, "Directory of baked atmosphere tables, precomputed on the GPU when empty")
	cmd.Flags().StringVar(&args.save, "save", args.save, "Where the panel's save button writes the profile")
	cmd.Flags().IntVar(&args.width, "width", args.width, "Window width")
	cmd.Flags().IntVar(&args.height, "height", args.height, "Window height")
	cmd.Flags().Float32Var(&args.intensity, "intensity", args.intensity, "Peak intensity of the generated gradient")
	return cmd
}

func loadLibraries(dir string) ([]*libgl.Library, error) {
	var libs []*libgl.Library
	for _, name := range []string{effects.Library, ssao.Library, atmosphere.Library} {
		lib, err := libgl.LoadLibrary(dir, name)
		if err != nil {
			if name == atmosphere.Library && errors.Is(err, fs.ErrNotExist) {
				logger.Warn("atmosphere library not found, baked tables are required", "dir", dir)
				continue
			}
			return nil, err
		}
		logger.Debug("loaded library", "name", name, "programs", len(lib.Sources))
		libs = append(libs, lib)
	}
	return libs, nil
}

func loadSource(args viewArgs) (*libio.FloatImage, error) {
	if args.source == "" {
		return libio.Gradient(args.width, args.height, args.intensity), nil
	}
	file, err := os.Open(args.source)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, err := libio.DecodeFloatImage(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", args.source, err)
	}
	return img.ToChannels(4, 0, 0, 0, 1), nil
}

// sourceCache resamples the source image to the working buffer size when it changes.
type sourceCache struct {
	img   *libio.FloatImage
	sized *libio.FloatImage
}

func (c *sourceCache) at(size libgpu.Size) []float32 {
	if c.sized == nil || c.sized.Width != size.Width || c.sized.Height != size.Height {
		c.sized = c.img.Resize(size.Width, size.Height)
	}
	return c.sized.Pix
}

func initAtmosphere(sky *atmosphere.Scattering, settings atmosphere.Settings, luts string, hasLibrary bool) error {
	if err := sky.Setup(settings); err != nil {
		return err
	}
	if luts != "" {
		tables, err := atmosphere.LoadTables(luts)
		if err != nil {
			return err
		}
		return sky.Seed(tables)
	}
	if !hasLibrary {
		logger.Warn("atmosphere disabled, no library and no baked tables")
		return nil
	}
	return sky.PrecomputeAll()
}

func saveProfile(name string, p config.Profile) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := p.Save(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func runView(args viewArgs) (err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 5)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	win, err := glfw.CreateWindow(args.width, args.height, "postfx", nil, nil)
	if err != nil {
		return err
	}
	defer win.Destroy()
	win.MakeContextCurrent()
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		return err
	}
	libgl.InstallDebugLogger(logger)

	libs, err := loadLibraries(args.shaders)
	if err != nil {
		return err
	}
	device, err := libgl.NewDevice(logger, libs...)
	if err != nil {
		return err
	}
	defer device.Close()
	if err := device.Preload(); err != nil {
		return err
	}

	gui, err := NewImGui(win, device.State())
	if err != nil {
		return err
	}
	defer gui.Delete()

	img, err := loadSource(args)
	if err != nil {
		return err
	}
	cache := &sourceCache{img: img}

	pool := libgpu.NewSurfacePool(device)
	renderer := pipeline.NewCameraRenderer(pool, logger)
	sky := atmosphere.New(pool, logger)
	defer func() {
		err = errors.Join(err, sky.Close(), renderer.Close(), pool.Close())
	}()

	hasAtmosphere := len(libs) == 3
	if err := initAtmosphere(sky, profile.Atmosphere, args.luts, hasAtmosphere); err != nil {
		return err
	}

	active := profile
	ui := newPanel(profile)
	source := pool.Intern("view/source")

	for !win.ShouldClose() {
		glfw.PollEvents()
		fbWidth, fbHeight := win.GetFramebufferSize()
		if fbWidth == 0 || fbHeight == 0 {
			glfw.WaitEvents()
			continue
		}
		device.SetDefaultFramebufferSize(fbWidth, fbHeight)

		ui.apply(&active)
		if ui.sunChanged && sky.Ready() {
			forward := sunForward(ui.sunElevation)
			if ui.sun, err = sky.UpdateSunColor(forward); err != nil {
				return err
			}
			if ui.ambient, err = sky.UpdateAmbient(forward); err != nil {
				return err
			}
			ui.sunChanged = false
		}

		camera := effects.Camera{
			Kind:       effects.CameraGame,
			PixelRect:  libgpu.Rect{Width: fbWidth, Height: fbHeight},
			Projection: mgl32.Perspective(mgl32.DegToRad(60), float32(fbWidth)/float32(fbHeight), 0.1, 1000),
		}
		cfg := active.FrameConfig(camera)
		format := libgpu.FormatDefault
		if cfg.UseHDR {
			format = libgpu.FormatDefaultHDR
		}

		if err := pool.Request(source, cfg.BufferSize.Width, cfg.BufferSize.Height, format, libgpu.FilterBilinear); err != nil {
			return err
		}
		err = device.Upload(source, cache.at(cfg.BufferSize))
		if err == nil {
			ui.stats, err = renderer.Render(camera, source, &active)
		}
		if err = errors.Join(err, pool.Release(source)); err != nil {
			return err
		}

		im.NewFrame()
		ui.draw()
		gui.Draw(win)

		if ui.saveRequest {
			ui.saveRequest = false
			if err := saveProfile(args.save, active); err != nil {
				logger.Error("failed to save profile", "path", args.save, "error", err)
			} else {
				logger.Info("saved profile", "path", args.save)
			}
		}

		win.SwapBuffers()
	}
	return nil
}
