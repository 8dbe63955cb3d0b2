// Package config loads and validates the settings profile of the compositor.
package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"postfx-gl/atmosphere"
	"postfx-gl/effects"
	"postfx-gl/libgpu"
	"postfx-gl/ssao"
)

var ErrInvalid = errors.New("config: invalid profile")

// ValidationError is one rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// BufferSettings configures the camera buffers the compositor works on.
type BufferSettings struct {
	AllowHDR bool `json:"allowHdr"`
	// RenderScale scales the working buffer relative to the camera, in 0.1..2.
	RenderScale   float32                      `json:"renderScale"`
	LUTResolution int                          `json:"lutResolution"`
	Rescaling     effects.BicubicRescalingMode `json:"rescaling"`
	FXAA          effects.FXAA                 `json:"fxaa"`
	KeepAlpha     bool                         `json:"keepAlpha"`
	FinalBlend    libgpu.BlendMode             `json:"finalBlend"`
}

type Profile struct {
	PostFX     effects.Settings    `json:"postfx"`
	Buffer     BufferSettings      `json:"buffer"`
	SSAO       ssao.Settings       `json:"ssao"`
	Atmosphere atmosphere.Settings `json:"atmosphere"`
}

const (
	MinLUTResolution = 16
	MaxLUTResolution = 64
	MinRenderScale   = 0.1
	MaxRenderScale   = 2
)

func Default() Profile {
	return Profile{
		PostFX: effects.DefaultSettings(),
		Buffer: BufferSettings{
			AllowHDR:      true,
			RenderScale:   1,
			LUTResolution: 32,
			Rescaling:     effects.RescalingUpOnly,
			FXAA: effects.FXAA{
				FixedThreshold:    0.0833,
				RelativeThreshold: 0.166,
				SubpixelBlending:  0.75,
				Quality:           effects.FXAAQualityHigh,
			},
			FinalBlend: libgpu.BlendOpaque,
		},
		SSAO:       ssao.DefaultSettings(),
		Atmosphere: atmosphere.DefaultSettings(),
	}
}

// Load decodes a JSON profile over the defaults. Unknown fields are rejected.
func Load(r io.Reader) (Profile, error) {
	p := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func LoadFile(name string) (Profile, error) {
	file, err := os.Open(name)
	if err != nil {
		return Profile{}, err
	}
	defer file.Close()

	p, err := Load(bufio.NewReader(file))
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

// Save writes the profile as indented JSON.
func (p Profile) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

type validator struct {
	errs []error
}

func (v *validator) check(ok bool, field, reason string, args ...any) {
	if !ok {
		v.errs = append(v.errs, &ValidationError{Field: field, Reason: fmt.Sprintf(reason, args...)})
	}
}

// Validate reports every violation at once.
func (p Profile) Validate() error {
	v := &validator{}
	fx := p.PostFX

	v.check(fx.Bloom.MaxIterations >= 0 && fx.Bloom.MaxIterations <= effects.MaxBloomPyramidLevels,
		"postfx.bloom.maxIterations", "must be in 0..%d", effects.MaxBloomPyramidLevels)
	v.check(fx.Bloom.DownscaleLimit >= 0, "postfx.bloom.downscaleLimit", "must not be negative")
	v.check(fx.Bloom.Intensity >= 0, "postfx.bloom.intensity", "must not be negative")
	v.check(fx.Bloom.Threshold >= 0, "postfx.bloom.threshold", "must not be negative")
	v.check(fx.Bloom.ThresholdKnee >= 0 && fx.Bloom.ThresholdKnee <= 1, "postfx.bloom.thresholdKnee", "must be in 0..1")
	v.check(fx.Bloom.Scatter >= 0 && fx.Bloom.Scatter <= 1, "postfx.bloom.scatter", "must be in 0..1")
	v.check(fx.Bloom.Mode.Valid(), "postfx.bloom.mode", "unknown value %d", fx.Bloom.Mode)
	v.check(fx.ToneMapping.Mode.Valid(), "postfx.toneMapping.mode", "unknown value %d", fx.ToneMapping.Mode)
	v.check(fx.Outline.Scale >= 0, "postfx.outline.scale", "must not be negative")

	b := p.Buffer
	v.check(b.LUTResolution >= MinLUTResolution && b.LUTResolution <= MaxLUTResolution,
		"buffer.lutResolution", "must be in %d..%d", MinLUTResolution, MaxLUTResolution)
	v.check(b.RenderScale >= MinRenderScale && b.RenderScale <= MaxRenderScale,
		"buffer.renderScale", "must be in %v..%v", MinRenderScale, MaxRenderScale)
	v.check(b.Rescaling.Valid(), "buffer.rescaling", "unknown value %d", b.Rescaling)
	v.check(b.FXAA.Quality.Valid(), "buffer.fxaa.quality", "unknown value %d", b.FXAA.Quality)

	v.check(p.SSAO.SampleCount > 0, "ssao.sampleCount", "must be positive")
	v.check(p.SSAO.Radius >= 0, "ssao.radius", "must not be negative")

	a := p.Atmosphere
	v.check(a.DensityLUTSize > 0, "atmosphere.densityLutSize", "must be positive")
	v.check(a.SunColorLUTSize > 0, "atmosphere.sunColorLutSize", "must be positive")
	v.check(a.AmbientLUTSize > 0, "atmosphere.ambientLutSize", "must be positive")
	v.check(a.RandomVectorCount > 0, "atmosphere.randomVectorCount", "must be positive")
	v.check(a.AtmosphereHeight > 0, "atmosphere.atmosphereHeight", "must be positive")
	v.check(a.LightSamples > 0, "atmosphere.lightSamples", "must be positive")

	return errors.Join(v.errs...)
}

// BufferSize scales a camera size by the render scale, keeping at least one pixel.
func (b BufferSettings) BufferSize(camera libgpu.Size) libgpu.Size {
	scale := func(v int) int {
		return max(int(float32(v)*b.RenderScale), 1)
	}
	return libgpu.Size{Width: scale(camera.Width), Height: scale(camera.Height)}
}

// FrameConfig derives the per frame buffer configuration for camera.
func (p Profile) FrameConfig(camera effects.Camera) effects.FrameConfig {
	b := p.Buffer
	return effects.FrameConfig{
		BufferSize:    b.BufferSize(camera.PixelRect.Size()),
		UseHDR:        b.AllowHDR,
		LUTResolution: b.LUTResolution,
		FinalBlend:    b.FinalBlend,
		Rescaling:     b.Rescaling,
		FXAA:          b.FXAA,
		KeepAlpha:     b.KeepAlpha,
	}
}
