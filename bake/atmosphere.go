// Package bake renders the atmosphere lookup tables offline with OpenCL.
//
// The OpenCL program supplied to Atmosphere must define three kernels. Every kernel receives
// the parameter buffer described by the Param constants first and must bounds check its
// global id, the work size is rounded up to the group size.
//
//	precompute_density(global const float* params, write_only image2d_t out)
//	precompute_sun_color(global const float* params, read_only image2d_t density, write_only image2d_t out)
//	precompute_ambient(global const float* params, read_only image2d_t density,
//	                   global const float4* random_vectors, int random_vector_count, write_only image2d_t out)
package bake

import (
	"fmt"
	"unsafe"

	"postfx-gl/atmosphere"
	"postfx-gl/libio"

	"github.com/Qendolin/go-opencl/cl"
	"golang.org/x/exp/slices"
)

type DeviceType = cl.DeviceType

const (
	DeviceTypeCPU         = DeviceType(cl.DeviceTypeCPU)
	DeviceTypeGPU         = DeviceType(cl.DeviceTypeGPU)
	DeviceTypeAccelerator = DeviceType(cl.DeviceTypeAccelerator)
)

const (
	KernelDensity  = "precompute_density"
	KernelSunColor = "precompute_sun_color"
	KernelAmbient  = "precompute_ambient"
)

var localSize2D = []int{8, 8, 1}

type clCore struct {
	context *cl.Context
	queue   *cl.CommandQueue
	program *cl.Program
	device  *cl.Device
}

// newCore picks a device of the preferred type, the most powerful one first, and builds sources.
func newCore(preferred DeviceType, sources ...string) (*clCore, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		return nil, err
	}

	var devices []*cl.Device
	for _, p := range platforms {
		devs, err := p.GetDevices(cl.DeviceTypeAll)
		if err != nil {
			continue
		}
		devices = append(devices, devs...)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no opencl devices found")
	}

	slices.SortFunc(devices, func(a, b *cl.Device) int {
		if a.Type() == preferred && b.Type() != preferred {
			return -1
		}
		if a.Type() != preferred && b.Type() == preferred {
			return 1
		}
		return b.MaxComputeUnits()*b.MaxClockFrequency() - a.MaxComputeUnits()*a.MaxClockFrequency()
	})
	device := devices[0]

	ctx, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, err
	}
	core := &clCore{context: ctx, device: device}

	core.queue, err = ctx.CreateCommandQueue(device, 0)
	if err != nil {
		core.release()
		return nil, err
	}
	core.program, err = ctx.CreateProgramWithSource(sources)
	if err != nil {
		core.release()
		return nil, err
	}
	if err := core.program.BuildProgram(nil, ""); err != nil {
		core.release()
		return nil, fmt.Errorf("build opencl program: %w", err)
	}
	return core, nil
}

func (core *clCore) release() {
	if core.program != nil {
		core.program.Release()
	}
	if core.queue != nil {
		core.queue.Release()
	}
	core.context.Release()
}

func (core *clCore) createImage(order cl.ChannelOrder, access cl.MemFlag, width, height int) (*cl.MemObject, error) {
	channels := 4
	if order == cl.ChannelOrderRG {
		channels = 2
	}
	return core.context.CreateImage(access, cl.ImageFormat{
		ChannelOrder:    order,
		ChannelDataType: cl.ChannelDataTypeFloat,
	}, cl.ImageDescription{
		Type:   cl.MemObjectTypeImage2D,
		Width:  width,
		Height: height,
	}, width*height*channels*4, nil)
}

func setArgs(kernel *cl.Kernel, args ...any) error {
	for i, arg := range args {
		var err error
		switch v := arg.(type) {
		case *cl.MemObject:
			err = kernel.SetArgBuffer(i, v)
		case int32:
			err = kernel.SetArgInt32(i, v)
		case float32:
			err = kernel.SetArgFloat32(i, v)
		default:
			err = fmt.Errorf("unsupported argument type %T", arg)
		}
		if err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}

// run executes kernel over width x height and reads the result image back.
func (core *clCore) run(name string, width, height, channels int, out *cl.MemObject, args ...any) (*libio.FloatImage, error) {
	kernel, err := core.program.CreateKernel(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer kernel.Release()

	if err := setArgs(kernel, append(args, out)...); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	local := localSize2D
	if height == 1 {
		local = []int{64, 1, 1}
	}
	global := []int{globalSize(local[0], width), globalSize(local[1], height), 1}
	if _, err := core.queue.EnqueueNDRangeKernel(kernel, []int{0, 0, 0}, global, local, nil); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	img := libio.NewFloatImage(make([]float32, width*height*channels), channels, width, height)
	_, err = core.queue.EnqueueReadImage(out, true, [3]int{}, [3]int{width, height, 1}, 0, 0, img.Pointer(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: read back: %w", name, err)
	}
	return img, nil
}

// Atmosphere builds source on a device of the preferred type and renders the three lookup
// tables for settings. The tables are ready for atmosphere.Tables.Save or Scattering.Seed.
func Atmosphere(preferred DeviceType, source string, settings atmosphere.Settings) (*atmosphere.Tables, error) {
	if err := checkSizes(settings); err != nil {
		return nil, err
	}

	core, err := newCore(preferred, source)
	if err != nil {
		return nil, fmt.Errorf("bake: %w", err)
	}
	defer core.release()

	params := PackParameters(settings)
	paramBuf, err := core.context.CreateBuffer(cl.MemReadOnly|cl.MemCopyHostPtr, len(params)*4, unsafe.Pointer(&params[0]))
	if err != nil {
		return nil, fmt.Errorf("bake: %w", err)
	}
	defer paramBuf.Release()

	vectors := atmosphere.UnitSphereVectors(settings.RandomVectorCount, settings.Seed)
	vectorBuf, err := core.context.CreateBuffer(cl.MemReadOnly|cl.MemCopyHostPtr, len(vectors)*4, unsafe.Pointer(&vectors[0]))
	if err != nil {
		return nil, fmt.Errorf("bake: %w", err)
	}
	defer vectorBuf.Release()

	n := settings.DensityLUTSize
	density, err := core.createImage(cl.ChannelOrderRG, cl.MemReadWrite, n, n)
	if err != nil {
		return nil, fmt.Errorf("bake: density: %w", err)
	}
	defer density.Release()

	var tables atmosphere.Tables
	tables.Density, err = core.run(KernelDensity, n, n, 2, density, paramBuf)
	if err != nil {
		return nil, fmt.Errorf("bake: %w", err)
	}

	n = settings.SunColorLUTSize
	sunColor, err := core.createImage(cl.ChannelOrderRGBA, cl.MemWriteOnly, n, n)
	if err != nil {
		return nil, fmt.Errorf("bake: sun color: %w", err)
	}
	defer sunColor.Release()
	tables.SunColor, err = core.run(KernelSunColor, n, n, 4, sunColor, paramBuf, density)
	if err != nil {
		return nil, fmt.Errorf("bake: %w", err)
	}

	n = settings.AmbientLUTSize
	ambient, err := core.createImage(cl.ChannelOrderRGBA, cl.MemWriteOnly, n, 1)
	if err != nil {
		return nil, fmt.Errorf("bake: ambient: %w", err)
	}
	defer ambient.Release()
	tables.Ambient, err = core.run(KernelAmbient, n, 1, 4, ambient, paramBuf, density, vectorBuf, int32(settings.RandomVectorCount))
	if err != nil {
		return nil, fmt.Errorf("bake: %w", err)
	}

	return &tables, nil
}

// DeviceName reports the name of the device Atmosphere would pick.
func DeviceName(preferred DeviceType) (string, error) {
	core, err := newCore(preferred, "kernel void noop() {}")
	if err != nil {
		return "", err
	}
	defer core.release()
	return core.device.Name(), nil
}
