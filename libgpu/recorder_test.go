package libgpu_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"postfx-gl/libgpu"

	"github.com/go-gl/mathgl/mgl32"
)

func TestRecorderDeclare(t *testing.T) {
	rec := libgpu.NewRecorder()
	a := rec.Declare("u_a")
	b := rec.Declare("u_b")
	if rec.Declare("u_a") != a || a == b {
		t.Fatalf("unexpected bindings a=%d b=%d", a, b)
	}
	if rec.BindingName(b) != "u_b" {
		t.Fatalf("expected u_b, got %s", rec.BindingName(b))
	}
}

func TestRecorderValidatesSurfaces(t *testing.T) {
	rec := libgpu.NewRecorder()
	desc := libgpu.SurfaceDesc{Width: 2, Height: 1, Format: libgpu.FormatRGBAHalf}

	if err := rec.Draw(libgpu.Program{Library: "test"}, libgpu.Target{Surface: 3}); !errors.Is(err, libgpu.ErrNotAllocated) {
		t.Fatalf("expected ErrNotAllocated, got %v", err)
	}
	if err := rec.Draw(libgpu.Program{Library: "test"}, libgpu.Target{Surface: libgpu.CameraTarget}); err != nil {
		t.Fatalf("drawing into the camera target should succeed, got %v", err)
	}

	if err := rec.Allocate(3, desc); err != nil {
		t.Fatal(err)
	}
	if err := rec.Allocate(3, desc); !errors.Is(err, libgpu.ErrAllocated) {
		t.Fatalf("expected ErrAllocated, got %v", err)
	}

	if err := rec.Upload(3, make([]float32, 4)); !errors.Is(err, libgpu.ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
	pix := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	if err := rec.Upload(3, pix); err != nil {
		t.Fatal(err)
	}
	dst := make([]float32, 8)
	if err := rec.ReadPixels(3, dst); err != nil {
		t.Fatal(err)
	}
	for i := range pix {
		if dst[i] != pix[i] {
			t.Fatalf("read back %v, expected %v", dst, pix)
		}
	}

	if err := rec.Free(3); err != nil {
		t.Fatal(err)
	}
	if err := rec.Free(3); !errors.Is(err, libgpu.ErrNotAllocated) {
		t.Fatalf("expected ErrNotAllocated, got %v", err)
	}
}

func TestRecorderSamples(t *testing.T) {
	rec := libgpu.NewRecorder()
	rec.BeginSample("outer")
	if err := rec.Submit(); !errors.Is(err, libgpu.ErrUnbalancedSample) {
		t.Fatalf("expected ErrUnbalancedSample, got %v", err)
	}
	rec.EndSample()
	if err := rec.Submit(); err != nil {
		t.Fatal(err)
	}
}

func TestRecorderTable(t *testing.T) {
	rec := libgpu.NewRecorder()
	pool := libgpu.NewSurfacePool(rec)
	id := pool.Intern("bloom-prefilter")
	b := rec.Declare("u_bloom_threshold")

	if err := pool.Request(id, 4, 4, libgpu.FormatDefaultHDR, libgpu.FilterBilinear); err != nil {
		t.Fatal(err)
	}
	rec.SetVector(b, mgl32.Vec4{1, 0, 0.5, 0.25})
	if err := rec.Draw(libgpu.Program{Library: "postfx", Index: 6, Name: "BloomPrefilter"}, libgpu.Target{Surface: id}); err != nil {
		t.Fatal(err)
	}

	buf := new(bytes.Buffer)
	rec.WriteTable(buf, pool.Name)
	out := buf.String()
	for _, want := range []string{"bloom-prefilter", "postfx/BloomPrefilter", "u_bloom_threshold", "allocate", "draw"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table is missing %q:\n%s", want, out)
		}
	}
}
