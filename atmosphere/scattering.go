// Package atmosphere precomputes the atmospheric scattering lookup tables and derives the sun
// and ambient light from them.
package atmosphere

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"postfx-gl/effects"
	"postfx-gl/libgpu"
	"postfx-gl/libio"
	"postfx-gl/libutil"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hashicorp/go-hclog"
)

const Library = "atmosphere"

var (
	PassPrecomputeDensity  = libgpu.Program{Library: Library, Index: 0, Name: "PrecomputeDensity"}
	PassPrecomputeSunColor = libgpu.Program{Library: Library, Index: 1, Name: "PrecomputeSunColor"}
	PassPrecomputeAmbient  = libgpu.Program{Library: Library, Index: 2, Name: "PrecomputeAmbient"}
)

var (
	ErrNotSetup       = errors.New("atmosphere: not set up")
	ErrNotPrecomputed = errors.New("atmosphere: lookup tables not precomputed")
	ErrTableMismatch  = errors.New("atmosphere: table does not match settings")
)

// Light is a directional light color, normalized, with its intensity.
type Light struct {
	Color     mgl32.Vec3
	Intensity float32
}

type bindings struct {
	planetRadius, atmosphereHeight, densityScaleHeight   libgpu.Binding
	lightSamples, distanceScale, sunIntensity            libgpu.Binding
	incomingLight, extinctionR, extinctionM, scatteringR libgpu.Binding
	scatteringM, mieG                                    libgpu.Binding
	densityLUT, randomVectors                            libgpu.Binding
}

// Scattering owns the persistent lookup tables of one atmosphere. All methods are safe for
// concurrent use, they serialize on the device the Scattering was created with.
type Scattering struct {
	mu       sync.Mutex
	pool     *libgpu.SurfacePool
	device   libgpu.Device
	logger   hclog.Logger
	b        bindings
	settings Settings
	hasSetup bool

	density       libgpu.SurfaceId
	sunColor      libgpu.SurfaceId
	ambient       libgpu.SurfaceId
	randomVectors libgpu.SurfaceId
}

func New(pool *libgpu.SurfacePool, logger hclog.Logger) *Scattering {
	dev := pool.Device()
	return &Scattering{
		pool:   pool,
		device: dev,
		logger: libutil.OrNull(logger).Named("atmosphere"),
		b: bindings{
			planetRadius:       dev.Declare("u_planet_radius"),
			atmosphereHeight:   dev.Declare("u_atmosphere_height"),
			densityScaleHeight: dev.Declare("u_density_scale_height"),
			lightSamples:       dev.Declare("u_light_samples"),
			distanceScale:      dev.Declare("u_distance_scale"),
			sunIntensity:       dev.Declare("u_sun_intensity"),
			incomingLight:      dev.Declare("u_incoming_light"),
			extinctionR:        dev.Declare("u_extinction_r"),
			extinctionM:        dev.Declare("u_extinction_m"),
			scatteringR:        dev.Declare("u_scattering_r"),
			scatteringM:        dev.Declare("u_scattering_m"),
			mieG:               dev.Declare("u_mie_g"),
			densityLUT:         dev.Declare("u_particle_density_lut"),
			randomVectors:      dev.Declare("u_random_vectors"),
		},
		density:       pool.Intern("atmosphere/particle-density"),
		sunColor:      pool.Intern("atmosphere/sun-color"),
		ambient:       pool.Intern("atmosphere/ambient"),
		randomVectors: pool.Intern("atmosphere/random-vectors"),
	}
}

// Setup replaces the settings. Every table depends on every setting, so any change
// invalidates the tables.
func (s *Scattering) Setup(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.hasSetup && s.settings != settings
	s.settings = settings
	s.hasSetup = true
	if changed {
		s.logger.Debug("settings changed, invalidating lookup tables")
		return s.invalidate()
	}
	return nil
}

func (s *Scattering) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Scattering) densityDesc() libgpu.SurfaceDesc {
	return libgpu.SurfaceDesc{
		Width:  s.settings.DensityLUTSize,
		Height: s.settings.DensityLUTSize,
		Format: libgpu.FormatRGFloat,
		Filter: libgpu.FilterBilinear,
	}
}

func (s *Scattering) sunColorDesc() libgpu.SurfaceDesc {
	return libgpu.SurfaceDesc{
		Width:  s.settings.SunColorLUTSize,
		Height: s.settings.SunColorLUTSize,
		Format: libgpu.FormatRGBAHalf,
		Filter: libgpu.FilterBilinear,
	}
}

func (s *Scattering) ambientDesc() libgpu.SurfaceDesc {
	return libgpu.SurfaceDesc{
		Width:  s.settings.AmbientLUTSize,
		Height: 1,
		Format: libgpu.FormatRGBAHalf,
		Filter: libgpu.FilterBilinear,
	}
}

func (s *Scattering) setUniforms() {
	st := s.settings
	p := st.Parameters()
	d := s.device
	d.SetFloat(s.b.planetRadius, st.PlanetRadius)
	d.SetFloat(s.b.atmosphereHeight, st.AtmosphereHeight)
	d.SetFloat(s.b.lightSamples, float32(st.LightSamples))
	d.SetFloat(s.b.distanceScale, st.DistanceScale)
	d.SetVector(s.b.densityScaleHeight, st.DensityScaleHeight.Vec4(0, 0))
	d.SetVector(s.b.incomingLight, st.IncomingLight)
	d.SetFloat(s.b.sunIntensity, st.SunIntensity)
	d.SetVector(s.b.extinctionR, p.ExtinctionR.Vec4(0))
	d.SetVector(s.b.extinctionM, p.ExtinctionM.Vec4(0))
	d.SetVector(s.b.scatteringR, p.ScatteringR.Vec4(0))
	d.SetVector(s.b.scatteringM, p.ScatteringM.Vec4(0))
	d.SetFloat(s.b.mieG, st.MieG)
}

// PrecomputeAll creates and draws every table that does not exist yet. Tables that exist,
// drawn earlier or seeded, are kept.
func (s *Scattering) PrecomputeAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasSetup {
		return fmt.Errorf("precompute: %w", ErrNotSetup)
	}

	s.device.BeginSample("Atmosphere Precompute")
	err := s.precompute()
	s.device.EndSample()
	if err != nil {
		// a table created by the failed attempt holds undefined contents
		return fmt.Errorf("precompute: %w", errors.Join(err, s.invalidate()))
	}
	if err := s.device.Submit(); err != nil {
		return fmt.Errorf("precompute: %w", err)
	}
	return nil
}

func (s *Scattering) precompute() error {
	s.setUniforms()

	created, err := s.pool.Persistent(s.density, s.densityDesc())
	if err != nil {
		return err
	}
	if created {
		if err := s.device.Draw(PassPrecomputeDensity, libgpu.Target{Surface: s.density, Blend: libgpu.BlendOpaque}); err != nil {
			return err
		}
		s.logger.Debug("drew particle density", "size", s.settings.DensityLUTSize)
	}
	s.device.SetTexture(s.b.densityLUT, s.density)

	created, err = s.pool.Persistent(s.sunColor, s.sunColorDesc())
	if err != nil {
		return err
	}
	if created {
		if err := s.device.Draw(PassPrecomputeSunColor, libgpu.Target{Surface: s.sunColor, Blend: libgpu.BlendOpaque}); err != nil {
			return err
		}
		s.logger.Debug("drew sun color", "size", s.settings.SunColorLUTSize)
	}

	created, err = s.pool.Persistent(s.ambient, s.ambientDesc())
	if err != nil {
		return err
	}
	if created {
		if err := s.initRandomVectors(); err != nil {
			return err
		}
		s.device.SetTexture(s.b.randomVectors, s.randomVectors)
		if err := s.device.Draw(PassPrecomputeAmbient, libgpu.Target{Surface: s.ambient, Blend: libgpu.BlendOpaque}); err != nil {
			return err
		}
		s.logger.Debug("drew ambient", "size", s.settings.AmbientLUTSize)
	}
	return nil
}

func (s *Scattering) initRandomVectors() error {
	desc := libgpu.SurfaceDesc{
		Width:  s.settings.RandomVectorCount,
		Height: 1,
		Format: libgpu.FormatRGBAHalf,
		Filter: libgpu.FilterPoint,
	}
	created, err := s.pool.Persistent(s.randomVectors, desc)
	if err != nil || !created {
		return err
	}
	return s.device.Upload(s.randomVectors, UnitSphereVectors(desc.Width, s.settings.Seed))
}

// UnitSphereVectors generates count directions on the unit sphere, stored as RGBA with alpha 1.
func UnitSphereVectors(count int, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	pix := make([]float32, 0, count*4)
	for len(pix) < count*4 {
		v := mgl32.Vec3{float32(rng.NormFloat64()), float32(rng.NormFloat64()), float32(rng.NormFloat64())}
		l := v.Len()
		if l < 1e-6 {
			continue
		}
		v = v.Mul(1 / l)
		pix = append(pix, v[0], v[1], v[2], 1)
	}
	return pix
}

// Invalidate frees every table, PrecomputeAll draws them again.
func (s *Scattering) Invalidate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidate()
}

func (s *Scattering) invalidate() error {
	return errors.Join(
		s.pool.Invalidate(s.density),
		s.pool.Invalidate(s.sunColor),
		s.pool.Invalidate(s.ambient),
		s.pool.Invalidate(s.randomVectors),
	)
}

// Ready reports whether all tables exist.
func (s *Scattering) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready()
}

func (s *Scattering) ready() bool {
	return s.pool.IsPersistent(s.density) && s.pool.IsPersistent(s.sunColor) && s.pool.IsPersistent(s.ambient)
}

func (s *Scattering) readBack(id libgpu.SurfaceId) (*libio.FloatImage, error) {
	desc, ok := s.pool.Desc(id)
	if !ok || !s.pool.IsPersistent(id) {
		return nil, fmt.Errorf("read %s: %w", s.pool.Name(id), ErrNotPrecomputed)
	}
	img := libio.NewFloatImage(nil, desc.Format.Channels(), desc.Width, desc.Height)
	if err := s.device.ReadPixels(id, img.Pix); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.pool.Name(id), err)
	}
	return img, nil
}

// sunCoordinate maps the sun elevation to [0, 1], 1 at zenith.
func sunCoordinate(sunForward mgl32.Vec3) float32 {
	up := mgl32.Vec3{0, 1, 0}
	cosAngle := up.Dot(sunForward.Mul(-1))
	return cosAngle*0.5 + 0.5
}

// UpdateSunColor reads back the sun color table and samples it for a sun travelling along
// sunForward as seen from the ground height.
func (s *Scattering) UpdateSunColor(sunForward mgl32.Vec3) (Light, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := s.readBack(s.sunColor)
	if err != nil {
		return Light{}, err
	}
	height01 := s.settings.GroundHeight / s.settings.AtmosphereHeight
	px := img.At(int(sunCoordinate(sunForward)*float32(img.Width)), int(height01*float32(img.Height)))
	c := mgl32.Vec3{effects.LinearToGamma(px[0]), effects.LinearToGamma(px[1]), effects.LinearToGamma(px[2])}

	length := c.Len()
	if length > 0 {
		c = c.Mul(1 / length)
	}
	return Light{
		Color:     mgl32.Vec3{math32.Max(c[0], 0.01), math32.Max(c[1], 0.01), math32.Max(c[2], 0.01)},
		Intensity: math32.Max(length, 0.01),
	}, nil
}

// UpdateAmbient reads back the ambient table and returns the gamma encoded ambient color for
// a sun travelling along sunForward.
func (s *Scattering) UpdateAmbient(sunForward mgl32.Vec3) (mgl32.Vec4, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := s.readBack(s.ambient)
	if err != nil {
		return mgl32.Vec4{}, err
	}
	px := img.At(int(sunCoordinate(sunForward)*float32(img.Width)), 0)
	return effects.ColorToGamma(mgl32.Vec4(px)), nil
}

// Seed uploads baked tables in place of drawing them. PrecomputeAll keeps seeded tables.
func (s *Scattering) Seed(t *Tables) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasSetup {
		return fmt.Errorf("seed: %w", ErrNotSetup)
	}
	entries := []struct {
		id   libgpu.SurfaceId
		desc libgpu.SurfaceDesc
		img  *libio.FloatImage
	}{
		{s.density, s.densityDesc(), t.Density},
		{s.sunColor, s.sunColorDesc(), t.SunColor},
		{s.ambient, s.ambientDesc(), t.Ambient},
	}
	for _, e := range entries {
		if e.img == nil || e.img.Width != e.desc.Width || e.img.Height != e.desc.Height {
			return fmt.Errorf("seed %s: %w", s.pool.Name(e.id), ErrTableMismatch)
		}
	}

	for _, e := range entries {
		if err := s.pool.Invalidate(e.id); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		if _, err := s.pool.Persistent(e.id, e.desc); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		img := e.img.ToChannels(e.desc.Format.Channels(), 0, 0, 0, 1)
		if err := s.device.Upload(e.id, img.Pix); err != nil {
			return fmt.Errorf("seed %s: %w", s.pool.Name(e.id), err)
		}
	}
	s.logger.Info("seeded lookup tables", "density", t.Density.Width, "sun", t.SunColor.Width, "ambient", t.Ambient.Width)
	return nil
}

// Export reads every table back to the CPU.
func (s *Scattering) Export() (*Tables, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t Tables
	var err error
	if t.Density, err = s.readBack(s.density); err != nil {
		return nil, err
	}
	if t.SunColor, err = s.readBack(s.sunColor); err != nil {
		return nil, err
	}
	if t.Ambient, err = s.readBack(s.ambient); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Scattering) Close() error {
	return s.Invalidate()
}
