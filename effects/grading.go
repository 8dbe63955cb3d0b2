package effects

import (
	"postfx-gl/libgpu"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func (s *Stack) configureColorAdjustment(r *recording) {
	ca := s.settings.ColorAdjustment
	r.vector(uColorAdjustments, mgl32.Vec4{
		math32.Pow(2, ca.PostExposure),
		ca.Contrast*0.01 + 1,
		ca.HueShift / 360,
		ca.Saturation*0.01 + 1,
	})
	r.vector(uColorFilter, ColorToLinear(ca.ColorFilter))
}

func (s *Stack) configureWhiteBalance(r *recording) {
	wb := s.settings.WhiteBalance
	r.vector(uWhiteBalance, ColorBalanceToLMSCoeffs(wb.Temperature, wb.Tint).Vec4(0))
}

func (s *Stack) configureSplitToning(r *recording) {
	st := s.settings.SplitToning
	shadows := st.Shadows
	shadows[3] = st.Balance * 0.01
	r.vector(uSplitToningShadows, ColorToLinear(shadows))
	r.vector(uSplitToningHighlights, ColorToLinear(st.Highlights))
}

func (s *Stack) configureChannelMixer(r *recording) {
	cm := s.settings.ChannelMixer
	r.vector(uChannelMixerRed, cm.Red.Vec4(0))
	r.vector(uChannelMixerGreen, cm.Green.Vec4(0))
	r.vector(uChannelMixerBlue, cm.Blue.Vec4(0))
}

func (s *Stack) configureShadowsMidtonesHighlights(r *recording) {
	smh := s.settings.ShadowsMidtonesHighlights
	r.vector(uSMHShadows, ColorToLinear(smh.Shadows))
	r.vector(uSMHMidtones, smh.Midtones)
	r.vector(uSMHHighlights, smh.Highlights)
	r.vector(uSMHRange, mgl32.Vec4{smh.ShadowsStart, smh.ShadowsEnd, smh.HighlightsStart, smh.HighlightsEnd})
}

func (s *Stack) configureFXAA(r *recording) {
	fxaa := s.cfg.FXAA
	r.keyword(KeywordFXAAQualityLow, fxaa.Quality == FXAAQualityLow)
	r.keyword(KeywordFXAAQualityMedium, fxaa.Quality == FXAAQualityMedium)
	r.vector(uFXAAConfig, mgl32.Vec4{fxaa.FixedThreshold, fxaa.RelativeThreshold, fxaa.SubpixelBlending, 0})
}

// bicubicRescaling reports whether the rescale pass samples bicubically.
func (s *Stack) bicubicRescaling() bool {
	switch s.cfg.Rescaling {
	case RescalingUpAndDown:
		return true
	case RescalingUpOnly:
		return s.cfg.BufferSize.Width < s.camera.PixelRect.Width
	}
	return false
}

// doColorGrading bakes the grading LUT, applies it with optional FXAA and writes the output target.
func (s *Stack) doColorGrading(r *recording, source libgpu.SurfaceId) {
	r.begin("Color Grading")

	s.configureColorAdjustment(r)
	s.configureWhiteBalance(r)
	s.configureSplitToning(r)
	s.configureChannelMixer(r)
	s.configureShadowsMidtonesHighlights(r)

	// the 3D LUT is unrolled into a strip of h slices of h*h texels
	lutHeight := s.cfg.LUTResolution
	lutWidth := lutHeight * lutHeight
	r.request(s.ids.colorGradingLUT, libgpu.Size{Width: lutWidth, Height: lutHeight}, libgpu.FormatDefaultHDR, libgpu.FilterBilinear)
	r.vector(uColorGradingLUTParams, mgl32.Vec4{
		float32(lutHeight),
		0.5 / float32(lutWidth),
		0.5 / float32(lutHeight),
		float32(lutHeight) / (float32(lutHeight) - 1),
	})

	pass := PassForToneMappingMode(s.settings.ToneMapping.Mode)
	r.flag(uColorGradingLUTInLogC, s.cfg.UseHDR && pass != PassColorGradingNone)
	r.draw(source, s.ids.colorGradingLUT, pass)

	r.vector(uColorGradingLUTParams, mgl32.Vec4{
		1 / float32(lutWidth),
		1 / float32(lutHeight),
		float32(lutHeight) - 1,
		0,
	})
	r.texture(uColorGradingLUT, s.ids.colorGradingLUT)

	r.float(uFinalSrcBlend, 1)
	r.float(uFinalDstBlend, 0)

	fxaa := s.cfg.FXAA.Enabled
	if fxaa {
		s.configureFXAA(r)
		r.request(s.ids.colorGradingResult, s.cfg.BufferSize, libgpu.FormatDefault, libgpu.FilterBilinear)
		if s.cfg.KeepAlpha {
			r.draw(source, s.ids.colorGradingResult, PassFinalColorGrading)
		} else {
			r.draw(source, s.ids.colorGradingResult, PassColorGradingWithLuma)
		}
	}

	fxaaPass := PassFXAAWithLuma
	if s.cfg.KeepAlpha {
		fxaaPass = PassFXAA
	}

	if s.cfg.BufferSize == s.camera.PixelRect.Size() {
		if fxaa {
			r.drawFinal(s.ids.colorGradingResult, fxaaPass, s.camera.PixelRect, s.cfg.FinalBlend)
			r.release(s.ids.colorGradingResult)
		} else {
			r.drawFinal(source, PassFinalColorGrading, s.camera.PixelRect, s.cfg.FinalBlend)
		}
	} else {
		r.request(s.ids.finalResult, s.cfg.BufferSize, libgpu.FormatDefault, libgpu.FilterBilinear)
		if fxaa {
			r.draw(s.ids.colorGradingResult, s.ids.finalResult, fxaaPass)
			r.release(s.ids.colorGradingResult)
		} else {
			r.draw(source, s.ids.finalResult, PassFinalColorGrading)
		}
		r.flag(uCopyBicubic, s.bicubicRescaling())
		r.drawFinal(s.ids.finalResult, PassRescale, s.camera.PixelRect, s.cfg.FinalBlend)
		r.release(s.ids.finalResult)
	}

	r.release(s.ids.colorGradingLUT)
	r.end()
}
