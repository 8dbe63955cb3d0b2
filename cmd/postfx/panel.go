package main

import (
	"fmt"

	"postfx-gl/atmosphere"
	"postfx-gl/config"
	"postfx-gl/effects"
	"postfx-gl/pipeline"

	"github.com/go-gl/mathgl/mgl32"
	im "github.com/inkyblackness/imgui-go/v4"
)

type enum interface {
	~uint8
	Valid() bool
	String() string
}

func enumCombo[E enum](label string, v *E) bool {
	changed := false
	if im.BeginCombo(label, (*v).String()) {
		for e := E(0); e.Valid(); e++ {
			if im.SelectableV(e.String(), e == *v, 0, im.Vec2{}) {
				*v = e
				changed = true
			}
		}
		im.EndCombo()
	}
	return changed
}

func sliderInt(label string, v *int, lo, hi int32) bool {
	i := int32(*v)
	if im.SliderInt(label, &i, lo, hi) {
		*v = int(i)
		return true
	}
	return false
}

// panel edits a copy of the profile. Edits that fail validation are shown but not applied.
type panel struct {
	edited       config.Profile
	invalid      error
	sunElevation float32
	sun          atmosphere.Light
	ambient      mgl32.Vec4
	stats        pipeline.FrameStats
	saveRequest  bool
	sunChanged   bool
}

func newPanel(p config.Profile) *panel {
	return &panel{edited: p, sunElevation: 45, sunChanged: true}
}

// apply copies the edited profile into active if it is valid.
func (p *panel) apply(active *config.Profile) {
	p.invalid = p.edited.Validate()
	if p.invalid == nil {
		*active = p.edited
	}
}

func (p *panel) draw() {
	im.Begin("postfx")
	defer im.End()

	im.Text(p.stats.String())
	if p.invalid != nil {
		im.Text("invalid: " + p.invalid.Error())
	}
	if im.Button("Save profile") {
		p.saveRequest = true
	}

	buf := &p.edited.Buffer
	if im.CollapsingHeader("Buffer") {
		im.Checkbox("HDR", &buf.AllowHDR)
		im.SliderFloat("Render scale", &buf.RenderScale, config.MinRenderScale, config.MaxRenderScale)
		sliderInt("LUT resolution", &buf.LUTResolution, config.MinLUTResolution, config.MaxLUTResolution)
		enumCombo("Rescaling", &buf.Rescaling)
		im.Checkbox("Keep alpha", &buf.KeepAlpha)
		im.Checkbox("FXAA", &buf.FXAA.Enabled)
		enumCombo("FXAA quality", &buf.FXAA.Quality)
		im.SliderFloat("FXAA fixed threshold", &buf.FXAA.FixedThreshold, 0.0312, 0.0833)
		im.SliderFloat("FXAA relative threshold", &buf.FXAA.RelativeThreshold, 0.063, 0.333)
		im.SliderFloat("FXAA subpixel blending", &buf.FXAA.SubpixelBlending, 0, 1)
	}

	fx := &p.edited.PostFX
	if im.CollapsingHeader("Bloom") {
		b := &fx.Bloom
		enumCombo("Mode", &b.Mode)
		sliderInt("Max iterations", &b.MaxIterations, 0, effects.MaxBloomPyramidLevels)
		sliderInt("Downscale limit", &b.DownscaleLimit, 1, 16)
		im.SliderFloat("Threshold", &b.Threshold, 0, 4)
		im.SliderFloat("Threshold knee", &b.ThresholdKnee, 0, 1)
		im.SliderFloat("Intensity", &b.Intensity, 0, 10)
		im.SliderFloat("Scatter", &b.Scatter, 0.05, 0.95)
		im.Checkbox("Bicubic upsampling", &b.BicubicUpsampling)
		im.Checkbox("Fade fireflies", &b.FadeFireflies)
		im.Checkbox("Ignore render scale", &b.IgnoreRenderScale)
	}

	if im.CollapsingHeader("Color") {
		c := &fx.ColorAdjustment
		im.SliderFloat("Post exposure", &c.PostExposure, -5, 5)
		im.SliderFloat("Contrast", &c.Contrast, -100, 100)
		im.SliderFloat("Hue shift", &c.HueShift, -180, 180)
		im.SliderFloat("Saturation", &c.Saturation, -100, 100)
		im.ColorEdit4("Color filter", (*[4]float32)(&c.ColorFilter))
		im.SliderFloat("Temperature", &fx.WhiteBalance.Temperature, -100, 100)
		im.SliderFloat("Tint", &fx.WhiteBalance.Tint, -100, 100)
		im.ColorEdit4("Split shadows", (*[4]float32)(&fx.SplitToning.Shadows))
		im.ColorEdit4("Split highlights", (*[4]float32)(&fx.SplitToning.Highlights))
		im.SliderFloat("Split balance", &fx.SplitToning.Balance, -100, 100)
		enumCombo("Tone mapping", &fx.ToneMapping.Mode)
	}

	if im.CollapsingHeader("Outline") {
		o := &fx.Outline
		im.Checkbox("Enabled##outline", &o.Enabled)
		im.ColorEdit4("Color##outline", (*[4]float32)(&o.Color))
		im.SliderFloat("Scale", &o.Scale, 0, 4)
		im.SliderFloat("Depth threshold", &o.DepthThreshold, 0, 1)
		im.SliderFloat("Normal threshold", &o.NormalThreshold, 0, 1)
		im.SliderFloat("Color threshold", &o.ColorThreshold, 0, 1)
	}

	if im.CollapsingHeader("SSAO") {
		s := &p.edited.SSAO
		im.Checkbox("Enabled##ssao", &s.Enabled)
		sliderInt("Samples", &s.SampleCount, 1, 256)
		im.SliderFloat("Radius", &s.Radius, 0.01, 4)
		im.SliderFloat("Bias", &s.Bias, 0, 0.2)
		im.SliderFloat("Magnitude", &s.Magnitude, 0, 4)
		im.SliderFloat("Contrast##ssao", &s.Contrast, 0, 4)
	}

	if im.CollapsingHeader("Atmosphere") {
		if im.SliderFloat("Sun elevation", &p.sunElevation, -10, 90) {
			p.sunChanged = true
		}
		color := [3]float32(p.sun.Color)
		im.ColorEdit3V("Sun color", &color, im.ColorEditFlagsNoInputs|im.ColorEditFlagsNoPicker)
		im.Text(fmt.Sprintf("Sun intensity %.3f", p.sun.Intensity))
		ambient := [4]float32(p.ambient)
		im.ColorEdit4V("Ambient", &ambient, im.ColorEditFlagsNoInputs|im.ColorEditFlagsNoPicker)
	}
}
