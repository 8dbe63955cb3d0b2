package libgpu_test

import (
	"testing"

	"postfx-gl/libgpu"
)

func TestRectEmpty(t *testing.T) {
	specs := []struct {
		rect     libgpu.Rect
		expected bool
	}{
		{libgpu.Rect{}, true},
		{libgpu.Rect{X: 10, Y: 10}, true},
		{libgpu.Rect{Width: 100, Height: 0}, true},
		{libgpu.Rect{Width: -1, Height: 100}, true},
		{libgpu.Rect{Width: 1, Height: 1}, false},
		{libgpu.Rect{X: -5, Y: -5, Width: 10, Height: 10}, false},
	}

	for specIndex, s := range specs {
		if got := s.rect.Empty(); got != s.expected {
			t.Fatalf("[spec %d] %+v: expected %v, got %v", specIndex, s.rect, s.expected, got)
		}
	}
}
