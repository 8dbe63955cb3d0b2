package libgpu_test

import (
	"errors"
	"testing"

	"postfx-gl/libgpu"
)

func TestPoolRequestRelease(t *testing.T) {
	rec := libgpu.NewRecorder()
	pool := libgpu.NewSurfacePool(rec)

	a := pool.Intern("a")
	b := pool.Intern("b")
	if pool.Intern("a") != a {
		t.Fatal("interning the same name twice returned a different id")
	}
	if a == b {
		t.Fatal("distinct names share an id")
	}

	if err := pool.Request(a, 64, 32, libgpu.FormatDefaultHDR, libgpu.FilterBilinear); err != nil {
		t.Fatal(err)
	}
	if err := pool.Request(b, 32, 16, libgpu.FormatDefault, libgpu.FilterPoint); err != nil {
		t.Fatal(err)
	}

	if live := pool.Live(); len(live) != 2 {
		t.Fatalf("expected 2 live surfaces, got %v", live)
	}
	if err := pool.CheckReleased(); !errors.Is(err, libgpu.ErrSurfaceLeak) {
		t.Fatalf("expected a leak error, got %v", err)
	}

	if err := pool.Release(a); err != nil {
		t.Fatal(err)
	}
	if err := pool.Release(b); err != nil {
		t.Fatal(err)
	}
	if err := pool.CheckReleased(); err != nil {
		t.Fatal(err)
	}

	stats := pool.Stats()
	if stats.Requests != 2 || stats.Releases != 2 || stats.Live != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := len(rec.Allocated()); got != 0 {
		t.Fatalf("device still holds %d surfaces", got)
	}
}

func TestPoolAliasing(t *testing.T) {
	pool := libgpu.NewSurfacePool(libgpu.NewRecorder())
	id := pool.Intern("aliased")

	if err := pool.Request(id, 8, 8, libgpu.FormatDefault, libgpu.FilterPoint); err != nil {
		t.Fatal(err)
	}
	err := pool.Request(id, 8, 8, libgpu.FormatDefault, libgpu.FilterPoint)
	if !errors.Is(err, libgpu.ErrSurfaceAliased) {
		t.Fatalf("expected ErrSurfaceAliased, got %v", err)
	}
}

func TestPoolDoubleRelease(t *testing.T) {
	pool := libgpu.NewSurfacePool(libgpu.NewRecorder())
	id := pool.Intern("twice")

	if err := pool.Release(id); !errors.Is(err, libgpu.ErrSurfaceNotLive) {
		t.Fatalf("expected ErrSurfaceNotLive for a never requested surface, got %v", err)
	}

	if err := pool.Request(id, 8, 8, libgpu.FormatDefault, libgpu.FilterPoint); err != nil {
		t.Fatal(err)
	}
	if err := pool.Release(id); err != nil {
		t.Fatal(err)
	}
	if err := pool.Release(id); !errors.Is(err, libgpu.ErrSurfaceNotLive) {
		t.Fatalf("expected ErrSurfaceNotLive, got %v", err)
	}
}

func TestPoolRejectsInvalid(t *testing.T) {
	pool := libgpu.NewSurfacePool(libgpu.NewRecorder())

	type spec struct {
		id            libgpu.SurfaceId
		width, height int
	}
	specs := []spec{
		{libgpu.CameraTarget, 8, 8},
		{pool.Intern("zero"), 0, 8},
		{pool.Intern("negative"), 8, -1},
	}

	for specIndex, s := range specs {
		if err := pool.Request(s.id, s.width, s.height, libgpu.FormatDefault, libgpu.FilterPoint); err == nil {
			t.Fatalf("[spec %d] expected an error", specIndex)
		}
	}
	if err := pool.CheckReleased(); err != nil {
		t.Fatal(err)
	}
}

func TestPoolPersistent(t *testing.T) {
	rec := libgpu.NewRecorder()
	pool := libgpu.NewSurfacePool(rec)
	id := pool.Intern("lut")
	desc := libgpu.SurfaceDesc{Width: 32, Height: 32, Format: libgpu.FormatRGFloat, Filter: libgpu.FilterBilinear}

	created, err := pool.Persistent(id, desc)
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}
	created, err = pool.Persistent(id, desc)
	if err != nil || created {
		t.Fatalf("second call: created=%v err=%v", created, err)
	}
	if got := len(rec.Filter(libgpu.OpAllocate)); got != 1 {
		t.Fatalf("expected 1 allocation, got %d", got)
	}

	// persistent surfaces do not count as frame leaks
	if err := pool.CheckReleased(); err != nil {
		t.Fatal(err)
	}
	if err := pool.Release(id); !errors.Is(err, libgpu.ErrSurfacePersistent) {
		t.Fatalf("expected ErrSurfacePersistent, got %v", err)
	}

	bigger := desc
	bigger.Width = 64
	if _, err := pool.Persistent(id, bigger); !errors.Is(err, libgpu.ErrSurfaceAliased) {
		t.Fatalf("expected a changed descriptor to require invalidation, got %v", err)
	}

	if err := pool.Invalidate(id); err != nil {
		t.Fatal(err)
	}
	if err := pool.Invalidate(id); err != nil {
		t.Fatalf("invalidating an absent entry should do nothing, got %v", err)
	}
	created, err = pool.Persistent(id, bigger)
	if err != nil || !created {
		t.Fatalf("after invalidation: created=%v err=%v", created, err)
	}

	if err := pool.Close(); err != nil {
		t.Fatal(err)
	}
	if got := len(rec.Allocated()); got != 0 {
		t.Fatalf("device still holds %d surfaces after Close", got)
	}
}

func TestPoolDeviceFailure(t *testing.T) {
	rec := libgpu.NewRecorder()
	failure := errors.New("out of memory")
	rec.FailOn = func(c libgpu.Command) error {
		if c.Op == libgpu.OpAllocate {
			return failure
		}
		return nil
	}
	pool := libgpu.NewSurfacePool(rec)
	id := pool.Intern("oom")

	if err := pool.Request(id, 8, 8, libgpu.FormatDefault, libgpu.FilterPoint); !errors.Is(err, failure) {
		t.Fatalf("expected the device error, got %v", err)
	}
	if pool.IsLive(id) {
		t.Fatal("failed request left the surface live")
	}
}
