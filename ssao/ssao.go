// Package ssao dispatches the screen space ambient occlusion kernel and owns its random vector table.
package ssao

import (
	"fmt"
	"math/rand"

	"postfx-gl/libgpu"
	"postfx-gl/libutil"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hashicorp/go-hclog"
)

// Library is the program library of the occlusion programs.
const Library = "ssao"

var (
	KernelResolve = libgpu.Program{Library: Library, Index: 0, Name: "SSAOResolve"}
	PassBlit      = libgpu.Program{Library: Library, Index: 1, Name: "Blit"}
)

// ThreadGroupSize is the kernel's local size in x and y.
const ThreadGroupSize = 8

type Settings struct {
	Enabled     bool    `json:"enabled"`
	SampleCount int     `json:"sampleCount"`
	Radius      float32 `json:"radius"`
	Bias        float32 `json:"bias"`
	Magnitude   float32 `json:"magnitude"`
	Contrast    float32 `json:"contrast"`
	// Seed drives the random vector table.
	Seed int64 `json:"seed"`
}

func DefaultSettings() Settings {
	return Settings{
		SampleCount: 64,
		Radius:      0.5,
		Bias:        0.025,
		Magnitude:   1.1,
		Contrast:    1.5,
	}
}

type bindings struct {
	source, result, randomVectors                  libgpu.Binding
	sampleCount, radius, bias, magnitude, contrast libgpu.Binding
	projection, inverseProjection                  libgpu.Binding
}

// tableKey identifies the contents of the random vector table.
type tableKey struct {
	sampleCount int
	seed        int64
}

// AmbientOcclusion resolves occlusion into a working surface and writes it over the camera source.
type AmbientOcclusion struct {
	pool   *libgpu.SurfacePool
	device libgpu.Device
	logger hclog.Logger
	b      bindings

	result        libgpu.SurfaceId
	randomVectors libgpu.SurfaceId
	// the table is present when tablePresent is set and holds tableKey's vectors
	tablePresent bool
	table        tableKey

	bufferSize libgpu.Size
	projection mgl32.Mat4
	settings   Settings
}

func New(pool *libgpu.SurfacePool, logger hclog.Logger) *AmbientOcclusion {
	dev := pool.Device()
	return &AmbientOcclusion{
		pool:   pool,
		device: dev,
		logger: libutil.OrNull(logger).Named("ssao"),
		b: bindings{
			source:            dev.Declare("u_ssao_source"),
			result:            dev.Declare("u_ambient_occlusion"),
			randomVectors:     dev.Declare("u_random_vectors"),
			sampleCount:       dev.Declare("u_sample_count"),
			radius:            dev.Declare("u_radius"),
			bias:              dev.Declare("u_bias"),
			magnitude:         dev.Declare("u_magnitude"),
			contrast:          dev.Declare("u_contrast"),
			projection:        dev.Declare("u_camera_projection"),
			inverseProjection: dev.Declare("u_camera_inverse_projection"),
		},
		result:        pool.Intern("ssao/ambient-occlusion"),
		randomVectors: pool.Intern("ssao/random-vectors"),
	}
}

// Setup configures the next Render. A change of sample count or seed invalidates the
// random vector table.
func (ao *AmbientOcclusion) Setup(projection mgl32.Mat4, bufferSize libgpu.Size, settings Settings) error {
	ao.projection = projection
	ao.bufferSize = bufferSize
	ao.settings = settings

	if ao.tablePresent && ao.table != (tableKey{settings.SampleCount, settings.Seed}) {
		ao.logger.Debug("settings changed, invalidating random vectors", "samples", settings.SampleCount, "seed", settings.Seed)
		return ao.Invalidate()
	}
	return nil
}

// Invalidate drops the random vector table, it is rebuilt by the next enabled Render.
func (ao *AmbientOcclusion) Invalidate() error {
	ao.tablePresent = false
	return ao.pool.Invalidate(ao.randomVectors)
}

// RandomVectors generates count vectors inside the unit sphere, stored as RGBA with alpha 1.
func RandomVectors(count int, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	pix := make([]float32, 0, count*4)
	for len(pix) < count*4 {
		v := mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
		if v.LenSqr() > 1 {
			continue
		}
		pix = append(pix, v[0], v[1], v[2], 1)
	}
	return pix
}

func (ao *AmbientOcclusion) ensureRandomVectors() error {
	key := tableKey{ao.settings.SampleCount, ao.settings.Seed}
	if ao.tablePresent && ao.table == key {
		return nil
	}

	desc := libgpu.SurfaceDesc{
		Width:  ao.settings.SampleCount,
		Height: 1,
		Format: libgpu.FormatRGBAHalf,
		Filter: libgpu.FilterPoint,
	}
	if _, err := ao.pool.Persistent(ao.randomVectors, desc); err != nil {
		return err
	}
	if err := ao.device.Upload(ao.randomVectors, RandomVectors(key.sampleCount, key.seed)); err != nil {
		return fmt.Errorf("upload random vectors: %w", err)
	}
	ao.table = key
	ao.tablePresent = true
	ao.logger.Debug("created random vectors", "samples", key.sampleCount)
	return nil
}

// Render resolves occlusion for source and writes the result over it. It does nothing when disabled.
func (ao *AmbientOcclusion) Render(source libgpu.SurfaceId) (err error) {
	if !ao.settings.Enabled {
		return nil
	}
	if ao.settings.SampleCount <= 0 {
		return fmt.Errorf("ssao: sample count %d", ao.settings.SampleCount)
	}
	if ao.bufferSize.Width <= 0 || ao.bufferSize.Height <= 0 {
		return fmt.Errorf("ssao: buffer size %v", ao.bufferSize)
	}

	if err := ao.ensureRandomVectors(); err != nil {
		return fmt.Errorf("ssao: %w", err)
	}

	ao.device.BeginSample("SSAO Resolve")
	defer ao.device.EndSample()

	err = ao.pool.RequestDesc(ao.result, libgpu.SurfaceDesc{
		Width:       ao.bufferSize.Width,
		Height:      ao.bufferSize.Height,
		Format:      libgpu.FormatDefault,
		Filter:      libgpu.FilterPoint,
		RandomWrite: true,
	})
	if err != nil {
		return fmt.Errorf("ssao: %w", err)
	}
	defer func() {
		if rerr := ao.pool.Release(ao.result); rerr != nil && err == nil {
			err = fmt.Errorf("ssao: %w", rerr)
		}
	}()

	s := ao.settings
	ao.device.SetInt(ao.b.sampleCount, int32(s.SampleCount))
	ao.device.SetFloat(ao.b.radius, s.Radius)
	ao.device.SetFloat(ao.b.bias, s.Bias)
	ao.device.SetFloat(ao.b.magnitude, s.Magnitude)
	ao.device.SetFloat(ao.b.contrast, s.Contrast)
	ao.device.SetMatrix(ao.b.projection, ao.projection)
	ao.device.SetMatrix(ao.b.inverseProjection, ao.projection.Inv())
	ao.device.SetTexture(ao.b.source, source)
	ao.device.SetTexture(ao.b.randomVectors, ao.randomVectors)
	ao.device.SetTexture(ao.b.result, ao.result)

	groups := [3]int{ao.bufferSize.Width / ThreadGroupSize, ao.bufferSize.Height / ThreadGroupSize, 1}
	if err := ao.device.Dispatch(KernelResolve, groups); err != nil {
		return fmt.Errorf("ssao dispatch: %w", err)
	}

	ao.device.SetTexture(ao.b.source, ao.result)
	if err := ao.device.Draw(PassBlit, libgpu.Target{Surface: source, Load: libgpu.LoadDontCare, Blend: libgpu.BlendOpaque}); err != nil {
		return fmt.Errorf("ssao blit: %w", err)
	}
	return nil
}

// Close frees the random vector table.
func (ao *AmbientOcclusion) Close() error {
	return ao.Invalidate()
}
