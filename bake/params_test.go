package bake_test

import (
	"errors"
	"testing"

	"postfx-gl/atmosphere"
	"postfx-gl/bake"
)

func TestPackParameters(t *testing.T) {
	s := atmosphere.DefaultSettings()
	buf := bake.PackParameters(s)
	if len(buf) != bake.ParamCount {
		t.Fatalf("len = %d, want %d", len(buf), bake.ParamCount)
	}
	if bake.ParamCount != 28 {
		t.Errorf("ParamCount = %d, want 28", bake.ParamCount)
	}

	p := s.Parameters()
	tests := []struct {
		index int
		want  float32
	}{
		{bake.ParamPlanetRadius, s.PlanetRadius},
		{bake.ParamAtmosphereHeight, s.AtmosphereHeight},
		{bake.ParamDensityScaleHeightR, 7994},
		{bake.ParamDensityScaleHeightM, 1200},
		{bake.ParamLightSamples, 8},
		{bake.ParamMieG, 0.76},
		{bake.ParamIncomingLight + 3, 4},
		{bake.ParamExtinctionR + 2, p.ExtinctionR[2]},
		{bake.ParamExtinctionR + 3, 0},
		{bake.ParamScatteringM, p.ScatteringM[0]},
		{bake.ParamScatteringM + 3, 0},
	}
	for i, test := range tests {
		if buf[test.index] != test.want {
			t.Errorf("[spec %d] param %d = %v, want %v", i, test.index, buf[test.index], test.want)
		}
	}
}

func TestAtmosphereRejectsSizes(t *testing.T) {
	for i, mutate := range []func(*atmosphere.Settings){
		func(s *atmosphere.Settings) { s.DensityLUTSize = 0 },
		func(s *atmosphere.Settings) { s.SunColorLUTSize = -1 },
		func(s *atmosphere.Settings) { s.AmbientLUTSize = 0 },
		func(s *atmosphere.Settings) { s.RandomVectorCount = 0 },
	} {
		s := atmosphere.DefaultSettings()
		mutate(&s)
		if _, err := bake.Atmosphere(bake.DeviceTypeCPU, "", s); !errors.Is(err, bake.ErrInvalidSize) {
			t.Errorf("[spec %d] got %v, want ErrInvalidSize", i, err)
		}
	}
}

func TestGlobalSize(t *testing.T) {
	tests := []struct{ group, size, want int }{
		{8, 256, 256},
		{8, 30, 32},
		{64, 1, 64},
		{64, 65, 128},
	}
	for i, test := range tests {
		if got := bake.GlobalSize(test.group, test.size); got != test.want {
			t.Errorf("[spec %d] GlobalSize(%d, %d) = %d, want %d", i, test.group, test.size, got, test.want)
		}
	}
}
