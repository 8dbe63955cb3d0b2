package libgpu

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrSurfaceAliased    = errors.New("libgpu: surface requested while still live")
	ErrSurfaceNotLive    = errors.New("libgpu: surface is not live")
	ErrSurfacePersistent = errors.New("libgpu: surface is persistent")
	ErrSurfaceLeak       = errors.New("libgpu: surfaces were not released")
)

// LeakError lists the frame surfaces that were still live at a release check.
type LeakError struct {
	Surfaces []string
}

func (e *LeakError) Error() string {
	return fmt.Sprintf("%v: %s", ErrSurfaceLeak, strings.Join(e.Surfaces, ", "))
}

func (e *LeakError) Unwrap() error {
	return ErrSurfaceLeak
}

type PoolStats struct {
	Requests   int
	Releases   int
	Live       int
	Persistent int
}

// SurfacePool hands out surfaces by stable id on top of a Device.
//
// Frame surfaces are created by Request and must be given back with Release before the frame
// ends. Persistent surfaces outlive frames and are only freed by Invalidate or Close.
type SurfacePool struct {
	device     Device
	names      []string
	ids        map[string]SurfaceId
	live       map[SurfaceId]SurfaceDesc
	persistent map[SurfaceId]SurfaceDesc
	requests   int
	releases   int
}

func NewSurfacePool(device Device) *SurfacePool {
	return &SurfacePool{
		device:     device,
		ids:        map[string]SurfaceId{},
		live:       map[SurfaceId]SurfaceDesc{},
		persistent: map[SurfaceId]SurfaceDesc{},
	}
}

func (p *SurfacePool) Device() Device {
	return p.device
}

// Intern returns the id for a logical surface name, assigning one on first use.
func (p *SurfacePool) Intern(name string) SurfaceId {
	if id, ok := p.ids[name]; ok {
		return id
	}
	id := SurfaceId(len(p.names))
	p.names = append(p.names, name)
	p.ids[name] = id
	return id
}

func (p *SurfacePool) Name(id SurfaceId) string {
	if id == CameraTarget {
		return "camera-target"
	}
	if id >= 0 && int(id) < len(p.names) {
		return p.names[id]
	}
	return fmt.Sprintf("surface#%d", id)
}

func (p *SurfacePool) Request(id SurfaceId, width, height int, format Format, filter FilterMode) error {
	return p.RequestDesc(id, SurfaceDesc{Width: width, Height: height, Format: format, Filter: filter})
}

func (p *SurfacePool) RequestDesc(id SurfaceId, desc SurfaceDesc) error {
	if id == CameraTarget {
		return fmt.Errorf("request camera target: %w", ErrSurfaceAliased)
	}
	if _, ok := p.live[id]; ok {
		return fmt.Errorf("request %s: %w", p.Name(id), ErrSurfaceAliased)
	}
	if _, ok := p.persistent[id]; ok {
		return fmt.Errorf("request %s: %w", p.Name(id), ErrSurfacePersistent)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return fmt.Errorf("request %s with size %dx%d", p.Name(id), desc.Width, desc.Height)
	}
	if desc.Label == "" {
		desc.Label = p.Name(id)
	}

	if err := p.device.Allocate(id, desc); err != nil {
		return fmt.Errorf("request %s: %w", p.Name(id), err)
	}
	p.live[id] = desc
	p.requests++
	return nil
}

func (p *SurfacePool) Release(id SurfaceId) error {
	if _, ok := p.persistent[id]; ok {
		return fmt.Errorf("release %s: %w", p.Name(id), ErrSurfacePersistent)
	}
	if _, ok := p.live[id]; !ok {
		return fmt.Errorf("release %s: %w", p.Name(id), ErrSurfaceNotLive)
	}

	delete(p.live, id)
	p.releases++
	if err := p.device.Free(id); err != nil {
		return fmt.Errorf("release %s: %w", p.Name(id), err)
	}
	return nil
}

// IsLive reports whether id is a live frame surface.
func (p *SurfacePool) IsLive(id SurfaceId) bool {
	_, ok := p.live[id]
	return ok
}

// Live returns the live frame surfaces in id order.
func (p *SurfacePool) Live() []SurfaceId {
	ids := maps.Keys(p.live)
	slices.Sort(ids)
	return ids
}

// CheckReleased fails with a *LeakError if any frame surface is still live.
func (p *SurfacePool) CheckReleased() error {
	if len(p.live) == 0 {
		return nil
	}
	live := p.Live()
	names := make([]string, len(live))
	for i, id := range live {
		names[i] = p.Name(id)
	}
	return &LeakError{Surfaces: names}
}

// Persistent makes sure a persistent surface with desc exists. It reports whether the
// surface was created by this call, in which case its contents are undefined.
// A surface that exists with a different descriptor must be invalidated first.
func (p *SurfacePool) Persistent(id SurfaceId, desc SurfaceDesc) (created bool, err error) {
	if _, ok := p.live[id]; ok {
		return false, fmt.Errorf("persistent %s: %w", p.Name(id), ErrSurfaceAliased)
	}
	if desc.Label == "" {
		desc.Label = p.Name(id)
	}
	if existing, ok := p.persistent[id]; ok {
		if existing != desc {
			return false, fmt.Errorf("persistent %s is %v, requested %v: %w", p.Name(id), existing, desc, ErrSurfaceAliased)
		}
		return false, nil
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return false, fmt.Errorf("persistent %s with size %dx%d", p.Name(id), desc.Width, desc.Height)
	}

	if err := p.device.Allocate(id, desc); err != nil {
		return false, fmt.Errorf("persistent %s: %w", p.Name(id), err)
	}
	p.persistent[id] = desc
	return true, nil
}

func (p *SurfacePool) IsPersistent(id SurfaceId) bool {
	_, ok := p.persistent[id]
	return ok
}

// Invalidate frees a persistent surface. Invalidating an absent entry does nothing.
func (p *SurfacePool) Invalidate(id SurfaceId) error {
	if _, ok := p.persistent[id]; !ok {
		return nil
	}
	delete(p.persistent, id)
	if err := p.device.Free(id); err != nil {
		return fmt.Errorf("invalidate %s: %w", p.Name(id), err)
	}
	return nil
}

// Desc returns the descriptor of a live or persistent surface.
func (p *SurfacePool) Desc(id SurfaceId) (SurfaceDesc, bool) {
	if d, ok := p.live[id]; ok {
		return d, true
	}
	d, ok := p.persistent[id]
	return d, ok
}

func (p *SurfacePool) Stats() PoolStats {
	return PoolStats{
		Requests:   p.requests,
		Releases:   p.releases,
		Live:       len(p.live),
		Persistent: len(p.persistent),
	}
}

// Close frees every persistent surface. Frame surfaces still live are reported as a leak.
func (p *SurfacePool) Close() error {
	var errs []error
	ids := maps.Keys(p.persistent)
	slices.Sort(ids)
	for _, id := range ids {
		errs = append(errs, p.Invalidate(id))
	}
	errs = append(errs, p.CheckReleased())
	return errors.Join(errs...)
}
