package effects

import (
	"postfx-gl/libgpu"

	"github.com/go-gl/mathgl/mgl32"
)

// doOutline draws edge outlines over source into the outline surface, which the caller releases.
func (s *Stack) doOutline(r *recording, source libgpu.SurfaceId) libgpu.SurfaceId {
	o := s.settings.Outline

	r.begin("Outline")
	r.vector(uOutlineColor, ColorToLinear(o.Color))
	r.vector(uOutlineParams, mgl32.Vec4{o.Scale, 0, 0, 0})
	r.vector(uOutlineThresholdParams, mgl32.Vec4{o.DepthThreshold, o.NormalThreshold, o.DepthNormalThreshold, o.ColorThreshold})
	r.float(uOutlineDepthNormalThresholdScale, o.DepthNormalThresholdScale)
	r.request(s.ids.outlineResult, s.cfg.BufferSize, s.format(), libgpu.FilterBilinear)
	r.draw(source, s.ids.outlineResult, PassOutline)
	r.end()

	return s.ids.outlineResult
}
