package config_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"postfx-gl/config"
	"postfx-gl/effects"
	"postfx-gl/libgpu"
)

func TestDefaultIsValid(t *testing.T) {
	if err := config.Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadOverDefaults(t *testing.T) {
	input := `{
		"postfx": {
			"bloom": {"mode": "additive", "intensity": 2},
			"toneMapping": {"mode": "neutral"}
		},
		"buffer": {
			"renderScale": 0.5,
			"fxaa": {"enabled": true, "quality": "low"},
			"finalBlend": {"source": "one", "destination": "one-minus-src-alpha"}
		},
		"ssao": {"enabled": true, "sampleCount": 16}
	}`

	p, err := config.Load(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}

	defaults := config.Default()
	if p.PostFX.Bloom.Mode != effects.BloomAdditive || p.PostFX.Bloom.Intensity != 2 {
		t.Fatalf("unexpected bloom %+v", p.PostFX.Bloom)
	}
	if p.PostFX.Bloom.MaxIterations != defaults.PostFX.Bloom.MaxIterations {
		t.Fatal("fields missing from the input must keep their defaults")
	}
	if p.PostFX.ToneMapping.Mode != effects.ToneMappingNeutral {
		t.Fatalf("unexpected tone mapping %v", p.PostFX.ToneMapping.Mode)
	}
	if !p.Buffer.FXAA.Enabled || p.Buffer.FXAA.Quality != effects.FXAAQualityLow || p.Buffer.FXAA.SubpixelBlending != defaults.Buffer.FXAA.SubpixelBlending {
		t.Fatalf("unexpected fxaa %+v", p.Buffer.FXAA)
	}
	expectedBlend := libgpu.BlendMode{Source: libgpu.BlendOne, Destination: libgpu.BlendOneMinusSrcAlpha}
	if p.Buffer.FinalBlend != expectedBlend {
		t.Fatalf("unexpected final blend %v", p.Buffer.FinalBlend)
	}
	if !p.SSAO.Enabled || p.SSAO.SampleCount != 16 || p.SSAO.Radius != defaults.SSAO.Radius {
		t.Fatalf("unexpected ssao %+v", p.SSAO)
	}
}

func TestLoadRejects(t *testing.T) {
	type spec struct {
		name  string
		input string
	}

	specs := []spec{
		{"unknown field", `{"postfx": {"vignette": {}}}`},
		{"unknown enum", `{"postfx": {"toneMapping": {"mode": "filmic"}}}`},
		{"unknown blend", `{"buffer": {"finalBlend": {"source": "half"}}}`},
		{"syntax", `{"buffer": `},
		{"lut resolution", `{"buffer": {"lutResolution": 8}}`},
		{"render scale", `{"buffer": {"renderScale": 0}}`},
		{"sample count", `{"ssao": {"sampleCount": 0}}`},
		{"iterations", `{"postfx": {"bloom": {"maxIterations": 17}}}`},
		{"intensity", `{"postfx": {"bloom": {"intensity": -1}}}`},
		{"atmosphere lut", `{"atmosphere": {"sunColorLutSize": 0}}`},
	}

	for specIndex, s := range specs {
		if _, err := config.Load(strings.NewReader(s.input)); err == nil {
			t.Fatalf("[spec %d %s] expected an error", specIndex, s.name)
		}
	}
}

func TestValidateJoinsViolations(t *testing.T) {
	p := config.Default()
	p.Buffer.LUTResolution = 0
	p.SSAO.SampleCount = 0
	p.PostFX.Bloom.Intensity = -1

	err := p.Validate()
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	fields := map[string]bool{}
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var verr *config.ValidationError
		if !errors.As(e, &verr) {
			t.Fatalf("unexpected error type %T", e)
		}
		fields[verr.Field] = true
	}
	for _, f := range []string{"buffer.lutResolution", "ssao.sampleCount", "postfx.bloom.intensity"} {
		if !fields[f] {
			t.Fatalf("expected a violation for %s, got %v", f, fields)
		}
	}
}

func TestFrameConfig(t *testing.T) {
	type spec struct {
		scale    float32
		camera   libgpu.Rect
		expected libgpu.Size
	}

	specs := []spec{
		{1, libgpu.Rect{Width: 1920, Height: 1080}, libgpu.Size{Width: 1920, Height: 1080}},
		{0.5, libgpu.Rect{Width: 1920, Height: 1080}, libgpu.Size{Width: 960, Height: 540}},
		{2, libgpu.Rect{X: 10, Y: 10, Width: 100, Height: 50}, libgpu.Size{Width: 200, Height: 100}},
		{0.1, libgpu.Rect{Width: 5, Height: 5}, libgpu.Size{Width: 1, Height: 1}},
	}

	for specIndex, s := range specs {
		p := config.Default()
		p.Buffer.RenderScale = s.scale
		p.Buffer.KeepAlpha = true
		cfg := p.FrameConfig(effects.Camera{Kind: effects.CameraGame, PixelRect: s.camera})
		if cfg.BufferSize != s.expected {
			t.Fatalf("[spec %d] expected %v, got %v", specIndex, s.expected, cfg.BufferSize)
		}
		if !cfg.KeepAlpha || cfg.LUTResolution != p.Buffer.LUTResolution || cfg.UseHDR != p.Buffer.AllowHDR {
			t.Fatalf("[spec %d] buffer settings not carried over: %+v", specIndex, cfg)
		}
	}
}

func TestSaveLoadFile(t *testing.T) {
	p := config.Default()
	p.PostFX.Bloom.Mode = effects.BloomSingleScatter
	p.Buffer.Rescaling = effects.RescalingUpAndDown
	p.SSAO.Enabled = true

	var buf bytes.Buffer
	if err := p.Save(&buf); err != nil {
		t.Fatal(err)
	}
	name := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded, err := config.LoadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != p {
		t.Fatalf("loaded profile differs:\n%+v\n%+v", loaded, p)
	}

	if _, err := config.LoadFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not exist error, got %v", err)
	}
}
