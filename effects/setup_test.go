package effects_test

import (
	"testing"

	"postfx-gl/effects"
	"postfx-gl/libgpu"
)

type fixture struct {
	rec    *libgpu.Recorder
	pool   *libgpu.SurfacePool
	stack  *effects.Stack
	source libgpu.SurfaceId
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := libgpu.NewRecorder()
	pool := libgpu.NewSurfacePool(rec)
	f := &fixture{
		rec:    rec,
		pool:   pool,
		stack:  effects.NewStack(pool, nil),
		source: pool.Intern("camera-color"),
	}
	if err := pool.Request(f.source, 4096, 4096, libgpu.FormatDefaultHDR, libgpu.FilterBilinear); err != nil {
		t.Fatal(err)
	}
	return f
}

func gameCamera(width, height int) effects.Camera {
	return effects.Camera{
		Kind:      effects.CameraGame,
		PixelRect: libgpu.Rect{Width: width, Height: height},
	}
}

func frameConfig(width, height int) effects.FrameConfig {
	return effects.FrameConfig{
		BufferSize:    libgpu.Size{Width: width, Height: height},
		UseHDR:        true,
		LUTResolution: 32,
		FinalBlend:    libgpu.BlendOpaque,
	}
}

// render records one frame and returns the error of Render.
func (f *fixture) render(camera effects.Camera, cfg effects.FrameConfig, settings *effects.Settings) error {
	f.rec.Reset()
	f.stack.Setup(camera, cfg, settings)
	return f.stack.Render(f.source)
}

func (f *fixture) draws() []libgpu.Command {
	return f.rec.Filter(libgpu.OpDraw)
}

func (f *fixture) passes() []effects.Pass {
	var res []effects.Pass
	for _, d := range f.draws() {
		res = append(res, effects.Pass(d.Program.Index))
	}
	return res
}

// assertBalanced checks that only the camera source is live and every allocation of the frame was freed.
func (f *fixture) assertBalanced(t *testing.T, label string) {
	t.Helper()
	live := f.pool.Live()
	if len(live) != 1 || live[0] != f.source {
		names := make([]string, len(live))
		for i, id := range live {
			names[i] = f.pool.Name(id)
		}
		t.Fatalf("%s: live surfaces after render: %v", label, names)
	}
	allocs := len(f.rec.Filter(libgpu.OpAllocate))
	frees := len(f.rec.Filter(libgpu.OpFree))
	if allocs != frees {
		t.Fatalf("%s: %d allocations but %d frees", label, allocs, frees)
	}
}

// lastCommand returns the last value or texture set on a uniform before command index end.
func lastCommand(cmds []libgpu.Command, name string, end int) (libgpu.Command, bool) {
	for i := end - 1; i >= 0; i-- {
		if cmds[i].Name == name && (cmds[i].Op == libgpu.OpSetFloat || cmds[i].Op == libgpu.OpSetVector || cmds[i].Op == libgpu.OpSetTexture) {
			return cmds[i], true
		}
	}
	return libgpu.Command{}, false
}

// indexOfDraw returns the command index of the first draw with pass.
func indexOfDraw(cmds []libgpu.Command, pass effects.Pass) int {
	for i, c := range cmds {
		if c.Op == libgpu.OpDraw && c.Program.Library == effects.Library && c.Program.Index == int(pass) {
			return i
		}
	}
	return -1
}

func withoutBloom() *effects.Settings {
	s := effects.DefaultSettings()
	s.Bloom.Intensity = 0
	return &s
}
