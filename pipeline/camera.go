// Package pipeline composes the per camera frame: ambient occlusion, then post processing into
// the output target.
package pipeline

import (
	"fmt"
	"time"

	"postfx-gl/config"
	"postfx-gl/effects"
	"postfx-gl/libgpu"
	"postfx-gl/libutil"
	"postfx-gl/ssao"

	"github.com/hashicorp/go-hclog"
)

// FrameStats describes the pool traffic of one frame.
type FrameStats struct {
	Requests   int
	Releases   int
	Live       int
	Persistent int
	Elapsed    time.Duration
}

func (s FrameStats) String() string {
	return fmt.Sprintf("%d requests, %d releases, %d live, %d persistent in %v",
		s.Requests, s.Releases, s.Live, s.Persistent, s.Elapsed)
}

// CameraRenderer renders the frames of one camera. It owns the stages, the pool and its device
// may be shared with other renderers on the same thread.
type CameraRenderer struct {
	pool   *libgpu.SurfacePool
	stack  *effects.Stack
	ao     *ssao.AmbientOcclusion
	logger hclog.Logger
	frame  int
}

func NewCameraRenderer(pool *libgpu.SurfacePool, logger hclog.Logger) *CameraRenderer {
	logger = libutil.OrNull(logger)
	return &CameraRenderer{
		pool:   pool,
		stack:  effects.NewStack(pool, logger),
		ao:     ssao.New(pool, logger),
		logger: logger.Named("camera"),
	}
}

// Render draws source, a live surface at the working buffer size, into the output target.
// Apart from source, no frame surface may be live once it returns.
func (c *CameraRenderer) Render(camera effects.Camera, source libgpu.SurfaceId, profile *config.Profile) (FrameStats, error) {
	start := time.Now()
	before := c.pool.Stats()
	c.frame++

	cfg := profile.FrameConfig(camera)
	err := c.render(camera, cfg, source, profile)
	if err == nil {
		err = c.checkLeaks(source)
	}

	after := c.pool.Stats()
	stats := FrameStats{
		Requests:   after.Requests - before.Requests,
		Releases:   after.Releases - before.Releases,
		Live:       after.Live,
		Persistent: after.Persistent,
		Elapsed:    time.Since(start),
	}
	if err != nil {
		c.logger.Error("frame failed", "frame", c.frame, "camera", camera.Kind, "error", err)
		return stats, err
	}
	c.logger.Trace("frame", "frame", c.frame, "camera", camera.Kind, "stats", stats)
	return stats, nil
}

func (c *CameraRenderer) render(camera effects.Camera, cfg effects.FrameConfig, source libgpu.SurfaceId, profile *config.Profile) error {
	if err := c.ao.Setup(camera.Projection, cfg.BufferSize, profile.SSAO); err != nil {
		return err
	}
	if err := c.ao.Render(source); err != nil {
		return err
	}

	c.stack.Setup(camera, cfg, &profile.PostFX)
	return c.stack.Render(source)
}

func (c *CameraRenderer) checkLeaks(source libgpu.SurfaceId) error {
	var leaked []string
	for _, id := range c.pool.Live() {
		if id != source {
			leaked = append(leaked, c.pool.Name(id))
		}
	}
	if len(leaked) > 0 {
		return &libgpu.LeakError{Surfaces: leaked}
	}
	return nil
}

// Close frees the persistent surfaces of the camera's stages.
func (c *CameraRenderer) Close() error {
	return c.ao.Close()
}
