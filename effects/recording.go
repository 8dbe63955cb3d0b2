package effects

import (
	"postfx-gl/libgpu"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hashicorp/go-hclog"
)

// recording issues the commands of one frame. The first failure is kept in err and turns every
// later call into a no-op, so stages can be written without checking each step.
type recording struct {
	pool      *libgpu.SurfacePool
	device    libgpu.Device
	u         *uniformTable
	logger    hclog.Logger
	requested []libgpu.SurfaceId
	depth     int
	err       error
}

func (r *recording) request(id libgpu.SurfaceId, size libgpu.Size, format libgpu.Format, filter libgpu.FilterMode) {
	if r.err != nil {
		return
	}
	r.err = r.pool.Request(id, size.Width, size.Height, format, filter)
	if r.err == nil {
		r.requested = append(r.requested, id)
	}
}

func (r *recording) release(id libgpu.SurfaceId) {
	if r.err != nil {
		return
	}
	r.err = r.pool.Release(id)
}

func (r *recording) float(u uniform, v float32) {
	if r.err == nil {
		r.device.SetFloat(r.u[u], v)
	}
}

func (r *recording) flag(u uniform, on bool) {
	if on {
		r.float(u, 1)
	} else {
		r.float(u, 0)
	}
}

func (r *recording) vector(u uniform, v mgl32.Vec4) {
	if r.err == nil {
		r.device.SetVector(r.u[u], v)
	}
}

func (r *recording) texture(u uniform, id libgpu.SurfaceId) {
	if r.err == nil {
		r.device.SetTexture(r.u[u], id)
	}
}

func (r *recording) keyword(name string, on bool) {
	if r.err == nil {
		r.device.SetKeyword(name, on)
	}
}

// draw renders from into an intermediate surface. The previous contents of to are discarded.
func (r *recording) draw(from, to libgpu.SurfaceId, pass Pass) {
	if r.err != nil {
		return
	}
	r.device.SetTexture(r.u[uSource], from)
	r.logger.Trace("draw", "pass", pass, "from", r.pool.Name(from), "to", r.pool.Name(to))
	r.err = r.device.Draw(pass.Program(), libgpu.Target{
		Surface: to,
		Load:    libgpu.LoadDontCare,
		Blend:   libgpu.BlendOpaque,
	})
}

// drawFinal renders from into the output target inside viewport, blended with blend.
func (r *recording) drawFinal(from libgpu.SurfaceId, pass Pass, viewport libgpu.Rect, blend libgpu.BlendMode) {
	r.float(uFinalSrcBlend, float32(blend.Source))
	r.float(uFinalDstBlend, float32(blend.Destination))
	if r.err != nil {
		return
	}

	load := libgpu.LoadLoad
	if blend.Destination == libgpu.BlendZero {
		load = libgpu.LoadDontCare
	}

	r.device.SetTexture(r.u[uSource], from)
	r.logger.Trace("draw final", "pass", pass, "from", r.pool.Name(from), "viewport", viewport, "blend", blend)
	r.err = r.device.Draw(pass.Program(), libgpu.Target{
		Surface:  libgpu.CameraTarget,
		Load:     load,
		Viewport: viewport,
		Blend:    blend,
	})
}

func (r *recording) begin(name string) {
	if r.err == nil {
		r.device.BeginSample(name)
		r.depth++
	}
}

func (r *recording) end() {
	if r.err == nil {
		r.device.EndSample()
		r.depth--
	}
}

// abort closes open samples and releases whatever this frame requested and did not give back.
// Release errors are dropped since the frame already failed.
func (r *recording) abort() {
	for ; r.depth > 0; r.depth-- {
		r.device.EndSample()
	}
	for _, id := range r.requested {
		if r.pool.IsLive(id) {
			_ = r.pool.Release(id)
		}
	}
}
