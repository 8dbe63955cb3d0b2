package bake

import (
	"errors"
	"fmt"

	"postfx-gl/atmosphere"
)

var ErrInvalidSize = errors.New("bake: invalid table size")

// Parameter layout of the float buffer passed as the first argument to every kernel.
// Three component vectors are padded to four floats.
const (
	ParamPlanetRadius = iota
	ParamAtmosphereHeight
	ParamDensityScaleHeightR
	ParamDensityScaleHeightM
	ParamLightSamples
	ParamDistanceScale
	ParamSunIntensity
	ParamMieG
	ParamIncomingLight
	ParamExtinctionR = ParamIncomingLight + 4
	ParamExtinctionM = ParamExtinctionR + 4
	ParamScatteringR = ParamExtinctionM + 4
	ParamScatteringM = ParamScatteringR + 4
	ParamCount       = ParamScatteringM + 4
)

// PackParameters lays settings out as described by the Param constants.
func PackParameters(s atmosphere.Settings) []float32 {
	p := s.Parameters()
	buf := make([]float32, ParamCount)
	buf[ParamPlanetRadius] = s.PlanetRadius
	buf[ParamAtmosphereHeight] = s.AtmosphereHeight
	buf[ParamDensityScaleHeightR] = s.DensityScaleHeight[0]
	buf[ParamDensityScaleHeightM] = s.DensityScaleHeight[1]
	buf[ParamLightSamples] = float32(s.LightSamples)
	buf[ParamDistanceScale] = s.DistanceScale
	buf[ParamSunIntensity] = s.SunIntensity
	buf[ParamMieG] = s.MieG
	copy(buf[ParamIncomingLight:], s.IncomingLight[:])
	copy(buf[ParamExtinctionR:], p.ExtinctionR[:])
	copy(buf[ParamExtinctionM:], p.ExtinctionM[:])
	copy(buf[ParamScatteringR:], p.ScatteringR[:])
	copy(buf[ParamScatteringM:], p.ScatteringM[:])
	return buf
}

func checkSizes(s atmosphere.Settings) error {
	sizes := []struct {
		name string
		v    int
	}{
		{"density", s.DensityLUTSize},
		{"sun color", s.SunColorLUTSize},
		{"ambient", s.AmbientLUTSize},
		{"random vectors", s.RandomVectorCount},
	}
	for _, size := range sizes {
		if size.v <= 0 {
			return fmt.Errorf("%w: %s is %d", ErrInvalidSize, size.name, size.v)
		}
	}
	return nil
}

// globalSize rounds size up to a multiple of the work group size.
func globalSize(group, size int) int {
	r := size % group
	if r == 0 {
		return size
	}
	return size + group - r
}
