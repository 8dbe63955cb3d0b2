package effects

import (
	"postfx-gl/libgpu"
)

// MaxBloomPyramidLevels bounds BloomSettings.MaxIterations.
const MaxBloomPyramidLevels = 16

// pyramidLevel is one downsampled level. mid holds the horizontal blur and later the
// upsampled result of this level, result holds the full blur.
type pyramidLevel struct {
	mid, result libgpu.SurfaceId
}

// bloomSize is the resolution of the prefilter surface.
func (s *Stack) bloomSize() libgpu.Size {
	if s.settings.Bloom.IgnoreRenderScale {
		return s.camera.PixelRect.Size().Half()
	}
	return s.cfg.BufferSize.Half()
}

// bloomEnabled reports whether the pyramid would have at least one level.
func (s *Stack) bloomEnabled() bool {
	b := s.settings.Bloom
	size := s.bloomSize()
	limit := max(b.DownscaleLimit, 1)
	return b.MaxIterations > 0 && b.Intensity > 0 &&
		size.Width >= 2*limit && size.Height >= 2*limit
}

// doBloom adds bloom from source into the bloom result surface and reports whether it ran.
// The caller owns the returned surface.
func (s *Stack) doBloom(r *recording, source libgpu.SurfaceId) (libgpu.SurfaceId, bool) {
	if !s.bloomEnabled() {
		return 0, false
	}

	b := s.settings.Bloom
	limit := max(b.DownscaleLimit, 1)
	iterations := min(b.MaxIterations, MaxBloomPyramidLevels)
	format := s.format()

	r.begin("Bloom")

	r.vector(uBloomThreshold, ThresholdKnee(b.Threshold, b.ThresholdKnee))

	size := s.bloomSize()
	prefilter := PassBloomPrefilter
	if b.FadeFireflies {
		prefilter = PassBloomPrefilterFireflies
	}
	r.request(s.ids.bloomPrefilter, size, format, libgpu.FilterBilinear)
	r.draw(source, s.ids.bloomPrefilter, prefilter)
	size = size.Half()

	levels := s.levels[:0]
	from := s.ids.bloomPrefilter
	for i := 0; i < iterations; i++ {
		if size.Width < limit || size.Height < limit {
			break
		}
		lvl := pyramidLevel{mid: s.ids.bloomPyramid[2*i], result: s.ids.bloomPyramid[2*i+1]}
		r.request(lvl.mid, size, format, libgpu.FilterBilinear)
		r.request(lvl.result, size, format, libgpu.FilterBilinear)
		r.draw(from, lvl.mid, PassBloomHorizontal)
		r.draw(lvl.mid, lvl.result, PassBloomVertical)
		if i == 0 {
			r.release(s.ids.bloomPrefilter)
		}
		levels = append(levels, lvl)
		from = lvl.result
		size = size.Half()
	}
	s.levels = levels

	r.flag(uBloomBicubicUpsampling, b.BicubicUpsampling)

	var combine, final Pass
	if b.Mode == BloomAdditive {
		combine, final = PassBloomCombineAdditive, PassBloomCombineAdditive
		r.float(uBloomIntensity, 1)
	} else {
		combine = PassBloomCombineScatter
		if b.Mode == BloomSingleScatter {
			final = PassBloomCombineScatter
		} else {
			final = PassBloomScatterFinal
		}
		r.float(uBloomIntensity, b.Scatter)
	}

	// walk back up: the smallest level's result is the running image
	last := levels[len(levels)-1]
	r.release(last.mid)
	current := last.result
	for k := len(levels) - 2; k >= 0; k-- {
		lvl := levels[k]
		r.texture(uSource2, lvl.result)
		r.draw(current, lvl.mid, combine)
		r.release(current)
		r.release(lvl.result)
		current = lvl.mid
	}

	r.texture(uSource2, source)
	r.float(uBloomIntensity, b.Intensity)
	r.request(s.ids.bloomResult, s.cfg.BufferSize, format, libgpu.FilterBilinear)
	r.draw(current, s.ids.bloomResult, final)
	r.release(current)

	r.end()

	s.logger.Trace("bloom", "levels", len(levels), "mode", b.Mode)
	return s.ids.bloomResult, true
}
