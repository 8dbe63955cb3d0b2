package effects

import (
	"errors"
	"fmt"

	"postfx-gl/libgpu"
	"postfx-gl/libutil"

	"github.com/hashicorp/go-hclog"
)

var (
	ErrNotSetup      = errors.New("effects: render called before setup")
	ErrInvalidConfig = errors.New("effects: invalid frame config")
)

type surfaceIds struct {
	bloomPrefilter     libgpu.SurfaceId
	bloomResult        libgpu.SurfaceId
	bloomPyramid       [2 * MaxBloomPyramidLevels]libgpu.SurfaceId
	colorGradingLUT    libgpu.SurfaceId
	colorGradingResult libgpu.SurfaceId
	finalResult        libgpu.SurfaceId
	outlineResult      libgpu.SurfaceId
}

func internSurfaces(pool *libgpu.SurfacePool) surfaceIds {
	ids := surfaceIds{
		bloomPrefilter:     pool.Intern("postfx/bloom-prefilter"),
		bloomResult:        pool.Intern("postfx/bloom-result"),
		colorGradingLUT:    pool.Intern("postfx/color-grading-lut"),
		colorGradingResult: pool.Intern("postfx/color-grading-result"),
		finalResult:        pool.Intern("postfx/final-result"),
		outlineResult:      pool.Intern("postfx/outline-result"),
	}
	for i := 0; i < MaxBloomPyramidLevels; i++ {
		ids.bloomPyramid[2*i] = pool.Intern(fmt.Sprintf("postfx/bloom-pyramid-%d-mid", i))
		ids.bloomPyramid[2*i+1] = pool.Intern(fmt.Sprintf("postfx/bloom-pyramid-%d", i))
	}
	return ids
}

// Stack composites a camera's frame: outline, bloom, color grading and tone mapping, FXAA and
// rescaling into the output target. A Stack records into the device of its pool and is not safe
// for concurrent use.
type Stack struct {
	pool   *libgpu.SurfacePool
	device libgpu.Device
	logger hclog.Logger
	u      *uniformTable
	ids    surfaceIds
	levels []pyramidLevel

	ready    bool
	camera   Camera
	cfg      FrameConfig
	settings *Settings
}

func NewStack(pool *libgpu.SurfacePool, logger hclog.Logger) *Stack {
	return &Stack{
		pool:   pool,
		device: pool.Device(),
		logger: libutil.OrNull(logger).Named("postfx"),
		u:      declareUniforms(pool.Device()),
		ids:    internSurfaces(pool),
		levels: make([]pyramidLevel, 0, MaxBloomPyramidLevels),
	}
}

// Setup prepares the next Render. Only game and scene view cameras are post processed,
// for other cameras and for nil settings the stack is inactive.
func (s *Stack) Setup(camera Camera, cfg FrameConfig, settings *Settings) {
	s.ready = true
	s.camera = camera
	s.cfg = cfg
	if camera.Kind == CameraGame || camera.Kind == CameraSceneView {
		s.settings = settings
	} else {
		s.settings = nil
	}
}

func (s *Stack) IsActive() bool {
	return s.settings != nil
}

func (s *Stack) format() libgpu.Format {
	if s.cfg.UseHDR {
		return libgpu.FormatDefaultHDR
	}
	return libgpu.FormatDefault
}

func (s *Stack) checkConfig() error {
	if s.camera.PixelRect.Empty() {
		return fmt.Errorf("%w: empty camera rect %+v", ErrInvalidConfig, s.camera.PixelRect)
	}
	if !s.IsActive() {
		return nil
	}
	if s.cfg.BufferSize.Width <= 0 || s.cfg.BufferSize.Height <= 0 {
		return fmt.Errorf("%w: buffer size %v", ErrInvalidConfig, s.cfg.BufferSize)
	}
	if s.cfg.LUTResolution < 2 {
		return fmt.Errorf("%w: lut resolution %d", ErrInvalidConfig, s.cfg.LUTResolution)
	}
	if !s.settings.ToneMapping.Mode.Valid() {
		return fmt.Errorf("%w: tone mapping mode %v", ErrInvalidConfig, s.settings.ToneMapping.Mode)
	}
	return nil
}

// Render produces the final image of source in the output target and submits the work.
// Every surface requested during the call is released before it returns, also on failure.
func (s *Stack) Render(source libgpu.SurfaceId) (err error) {
	if !s.ready {
		return ErrNotSetup
	}
	if err := s.checkConfig(); err != nil {
		return err
	}

	r := &recording{
		pool:   s.pool,
		device: s.device,
		u:      s.u,
		logger: s.logger,
	}
	defer func() {
		if err != nil {
			r.abort()
		}
	}()

	if !s.IsActive() {
		r.drawFinal(source, PassCopy, s.camera.PixelRect, s.cfg.FinalBlend)
	} else {
		working := source
		outline := s.settings.Outline.Enabled
		if outline {
			working = s.doOutline(r, source)
		}

		if result, ok := s.doBloom(r, working); ok {
			s.doColorGrading(r, result)
			r.release(result)
		} else {
			s.doColorGrading(r, working)
		}

		if outline {
			r.release(s.ids.outlineResult)
		}
	}

	if r.err != nil {
		return fmt.Errorf("post fx: %w", r.err)
	}
	if err := s.checkReleased(r); err != nil {
		return err
	}
	if err := s.device.Submit(); err != nil {
		return fmt.Errorf("post fx submit: %w", err)
	}
	return nil
}

// checkReleased reports the surfaces this recording requested that are still live.
func (s *Stack) checkReleased(r *recording) error {
	var leaked []string
	for _, id := range r.requested {
		if s.pool.IsLive(id) {
			leaked = append(leaked, s.pool.Name(id))
		}
	}
	if len(leaked) > 0 {
		return &libgpu.LeakError{Surfaces: leaked}
	}
	return nil
}
