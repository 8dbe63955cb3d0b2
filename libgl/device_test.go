package libgl_test

import (
	"testing"

	"postfx-gl/libgl"
	"postfx-gl/libgpu"
)

func TestLoadRegion(t *testing.T) {
	size := libgpu.Size{Width: 1920, Height: 1080}
	specs := []struct {
		viewport libgpu.Rect
		expected libgpu.Rect
	}{
		{libgpu.Rect{}, libgpu.Rect{Width: 1920, Height: 1080}},
		// left half of a split screen must not touch the right half
		{libgpu.Rect{Width: 960, Height: 1080}, libgpu.Rect{Width: 960, Height: 1080}},
		{libgpu.Rect{X: 960, Width: 960, Height: 1080}, libgpu.Rect{X: 960, Width: 960, Height: 1080}},
		{libgpu.Rect{X: 1800, Y: -20, Width: 400, Height: 100}, libgpu.Rect{X: 1800, Width: 120, Height: 80}},
		{libgpu.Rect{X: 2000, Y: 0, Width: 100, Height: 100}, libgpu.Rect{}},
	}

	for specIndex, s := range specs {
		if got := libgl.LoadRegion(s.viewport, size); got != s.expected {
			t.Fatalf("[spec %d] expected %+v, got %+v", specIndex, s.expected, got)
		}
	}
}
