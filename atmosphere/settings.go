package atmosphere

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Settings struct {
	PlanetRadius     float32 `json:"planetRadius"`
	AtmosphereHeight float32 `json:"atmosphereHeight"`
	// GroundHeight is the observer height used to sample the sun color.
	GroundHeight       float32    `json:"groundHeight"`
	DensityScaleHeight mgl32.Vec2 `json:"densityScaleHeight"`
	LightSamples       int        `json:"lightSamples"`
	DistanceScale      float32    `json:"distanceScale"`
	IncomingLight      mgl32.Vec4 `json:"incomingLight"`
	SunIntensity       float32    `json:"sunIntensity"`

	RayleighCoefficients    mgl32.Vec3 `json:"rayleighCoefficients"`
	RayleighExtinctionScale float32    `json:"rayleighExtinctionScale"`
	RayleighInscatterScale  float32    `json:"rayleighInscatterScale"`
	MieCoefficients         mgl32.Vec3 `json:"mieCoefficients"`
	MieExtinctionScale      float32    `json:"mieExtinctionScale"`
	MieInscatterScale       float32    `json:"mieInscatterScale"`
	MieG                    float32    `json:"mieG"`

	DensityLUTSize    int   `json:"densityLutSize"`
	SunColorLUTSize   int   `json:"sunColorLutSize"`
	AmbientLUTSize    int   `json:"ambientLutSize"`
	RandomVectorCount int   `json:"randomVectorCount"`
	Seed              int64 `json:"seed"`
}

func DefaultSettings() Settings {
	return Settings{
		PlanetRadius:       6357000,
		AtmosphereHeight:   12000,
		GroundHeight:       0,
		DensityScaleHeight: mgl32.Vec2{7994, 1200},
		LightSamples:       8,
		DistanceScale:      1,
		IncomingLight:      mgl32.Vec4{4, 4, 4, 4},
		SunIntensity:       1,

		RayleighCoefficients:    mgl32.Vec3{5.8, 13.5, 33.1},
		RayleighExtinctionScale: 1,
		RayleighInscatterScale:  1,
		MieCoefficients:         mgl32.Vec3{2, 2, 2},
		MieExtinctionScale:      1,
		MieInscatterScale:       1,
		MieG:                    0.76,

		DensityLUTSize:    256,
		SunColorLUTSize:   32,
		AmbientLUTSize:    32,
		RandomVectorCount: 256,
	}
}

// Parameters are the scattering coefficients in inverse meters.
type Parameters struct {
	ExtinctionR mgl32.Vec3
	ExtinctionM mgl32.Vec3
	ScatteringR mgl32.Vec3
	ScatteringM mgl32.Vec3
}

// Parameters converts the coefficients, given in 1e-6 per meter, and applies the scales.
func (s Settings) Parameters() Parameters {
	const micro = 0.000001
	return Parameters{
		ExtinctionR: s.RayleighCoefficients.Mul(micro * s.RayleighExtinctionScale),
		ExtinctionM: s.MieCoefficients.Mul(micro * s.MieExtinctionScale),
		ScatteringR: s.RayleighCoefficients.Mul(micro * s.RayleighInscatterScale),
		ScatteringM: s.MieCoefficients.Mul(micro * s.MieInscatterScale),
	}
}
