package effects_test

import (
	"fmt"
	"testing"

	"postfx-gl/effects"
	"postfx-gl/libgpu"

	"github.com/chewxy/math32"
)

func TestBloomPyramidLevels(t *testing.T) {
	// a 1<<18 buffer halves to a 1<<17 prefilter, which fits every level down to 2x2.
	// The recorder never allocates, so the size costs nothing.
	const dim = 1 << 18
	type spec struct {
		iterations int
		levels     int
	}
	var specs []spec
	for n := 1; n <= effects.MaxBloomPyramidLevels; n++ {
		specs = append(specs, spec{n, n})
	}
	specs = append(specs, spec{effects.MaxBloomPyramidLevels + 4, effects.MaxBloomPyramidLevels})

	for _, s := range specs {
		levels := s.levels
		t.Run(fmt.Sprintf("iterations=%d", s.iterations), func(t *testing.T) {
			f := newFixture(t)
			settings := effects.DefaultSettings()
			settings.Bloom.MaxIterations = s.iterations
			settings.Bloom.DownscaleLimit = 1

			if err := f.render(gameCamera(dim, dim), frameConfig(dim, dim), &settings); err != nil {
				t.Fatal(err)
			}
			f.assertBalanced(t, "bloom")

			// prefilter, two per level, bloom result and the grading lut
			allocs := f.rec.Filter(libgpu.OpAllocate)
			if expected := 2*levels + 2 + 1; len(allocs) != expected {
				t.Fatalf("expected %d allocations, got %d", expected, len(allocs))
			}
			for i := 0; i < levels; i++ {
				size := (dim / 2) >> (i + 1)
				for _, a := range allocs[1+2*i : 3+2*i] {
					if a.Desc.Width != size || a.Desc.Height != size {
						t.Fatalf("level %d: expected %dx%d, got %v", i, size, size, a.Desc)
					}
				}
			}

			expected := []effects.Pass{effects.PassBloomPrefilter}
			for i := 0; i < levels; i++ {
				expected = append(expected, effects.PassBloomHorizontal, effects.PassBloomVertical)
			}
			for i := 1; i < levels; i++ {
				expected = append(expected, effects.PassBloomCombineScatter)
			}
			expected = append(expected, effects.PassBloomScatterFinal, effects.PassColorGradingACES, effects.PassFinalColorGrading)

			passes := f.passes()
			if len(passes) != len(expected) {
				t.Fatalf("expected passes %v, got %v", expected, passes)
			}
			for i := range expected {
				if passes[i] != expected[i] {
					t.Fatalf("pass %d: expected %v, got %v (all %v)", i, expected[i], passes[i], passes)
				}
			}
		})
	}
}

func TestBloomCombineReadsLargerLevel(t *testing.T) {
	f := newFixture(t)
	settings := effects.DefaultSettings()
	settings.Bloom.MaxIterations = 3
	settings.Bloom.DownscaleLimit = 1

	if err := f.render(gameCamera(256, 256), frameConfig(256, 256), &settings); err != nil {
		t.Fatal(err)
	}

	cmds := f.rec.Commands()
	var combines []int
	for i, c := range cmds {
		if c.Op == libgpu.OpDraw && c.Program.Index == int(effects.PassBloomCombineScatter) {
			combines = append(combines, i)
		}
	}
	if len(combines) != 2 {
		t.Fatalf("expected 2 combine draws, got %d", len(combines))
	}

	type spec struct {
		from, second, to string
	}
	specs := []spec{
		{"postfx/bloom-pyramid-2", "postfx/bloom-pyramid-1", "postfx/bloom-pyramid-1-mid"},
		{"postfx/bloom-pyramid-1-mid", "postfx/bloom-pyramid-0", "postfx/bloom-pyramid-0-mid"},
	}
	for specIndex, s := range specs {
		at := combines[specIndex]
		from, _ := lastCommand(cmds, "u_postfx_source", at)
		second, _ := lastCommand(cmds, "u_postfx_source2", at)
		if got := f.pool.Name(from.Surface); got != s.from {
			t.Fatalf("[spec %d] source: expected %s, got %s", specIndex, s.from, got)
		}
		if got := f.pool.Name(second.Surface); got != s.second {
			t.Fatalf("[spec %d] second source: expected %s, got %s", specIndex, s.second, got)
		}
		if got := f.pool.Name(cmds[at].Target.Surface); got != s.to {
			t.Fatalf("[spec %d] target: expected %s, got %s", specIndex, s.to, got)
		}
	}

	final := indexOfDraw(cmds, effects.PassBloomScatterFinal)
	second, _ := lastCommand(cmds, "u_postfx_source2", final)
	if second.Surface != f.source {
		t.Fatalf("final bloom step must blend over the unfiltered source, got %s", f.pool.Name(second.Surface))
	}
}

func TestBloomSingleLevel(t *testing.T) {
	// 3 iterations requested but an 8x8 buffer with limit 2 only fits one level
	f := newFixture(t)
	settings := effects.DefaultSettings()
	settings.Bloom.MaxIterations = 3
	settings.Bloom.DownscaleLimit = 2

	if err := f.render(gameCamera(8, 8), frameConfig(8, 8), &settings); err != nil {
		t.Fatal(err)
	}
	f.assertBalanced(t, "single level")

	expected := []effects.Pass{
		effects.PassBloomPrefilter,
		effects.PassBloomHorizontal,
		effects.PassBloomVertical,
		effects.PassBloomScatterFinal,
		effects.PassColorGradingACES,
		effects.PassFinalColorGrading,
	}
	passes := f.passes()
	if fmt.Sprint(passes) != fmt.Sprint(expected) {
		t.Fatalf("expected passes %v, got %v", expected, passes)
	}

	// the running image of the final step is the only level's result
	cmds := f.rec.Commands()
	final := indexOfDraw(cmds, effects.PassBloomScatterFinal)
	from, _ := lastCommand(cmds, "u_postfx_source", final)
	if got := f.pool.Name(from.Surface); got != "postfx/bloom-pyramid-0" {
		t.Fatalf("expected the final step to read postfx/bloom-pyramid-0, got %s", got)
	}
}

func TestBloomGate(t *testing.T) {
	type spec struct {
		name     string
		mutate   func(s *effects.Settings)
		camera   effects.Camera
		cfg      effects.FrameConfig
		expected bool
	}

	specs := []spec{
		{"enabled", func(s *effects.Settings) {}, gameCamera(64, 64), frameConfig(64, 64), true},
		{"no iterations", func(s *effects.Settings) { s.Bloom.MaxIterations = 0 }, gameCamera(64, 64), frameConfig(64, 64), false},
		{"no intensity", func(s *effects.Settings) { s.Bloom.Intensity = 0 }, gameCamera(64, 64), frameConfig(64, 64), false},
		{"negative intensity", func(s *effects.Settings) { s.Bloom.Intensity = -1 }, gameCamera(64, 64), frameConfig(64, 64), false},
		{"too narrow", func(s *effects.Settings) {}, gameCamera(7, 64), frameConfig(7, 64), false},
		{"too flat", func(s *effects.Settings) {}, gameCamera(64, 7), frameConfig(64, 7), false},
		{"smallest", func(s *effects.Settings) {}, gameCamera(8, 8), frameConfig(8, 8), true},
		{"render scale ignored", func(s *effects.Settings) { s.Bloom.IgnoreRenderScale = true }, gameCamera(64, 64), frameConfig(4, 4), true},
		{"render scale applied", func(s *effects.Settings) {}, gameCamera(64, 64), frameConfig(4, 4), false},
	}

	for specIndex, s := range specs {
		f := newFixture(t)
		settings := effects.DefaultSettings()
		settings.Bloom.DownscaleLimit = 2
		s.mutate(&settings)

		if err := f.render(s.camera, s.cfg, &settings); err != nil {
			t.Fatalf("[spec %d %s] %v", specIndex, s.name, err)
		}
		f.assertBalanced(t, s.name)

		ran := indexOfDraw(f.rec.Commands(), effects.PassBloomPrefilter) >= 0
		if ran != s.expected {
			t.Fatalf("[spec %d %s] expected bloom=%v, got %v", specIndex, s.name, s.expected, ran)
		}
	}
}

func TestBloomIgnoreRenderScaleSize(t *testing.T) {
	f := newFixture(t)
	settings := effects.DefaultSettings()
	settings.Bloom.IgnoreRenderScale = true

	if err := f.render(gameCamera(1920, 1080), frameConfig(960, 540), &settings); err != nil {
		t.Fatal(err)
	}

	prefilter := f.rec.Filter(libgpu.OpAllocate)[0]
	if prefilter.Desc.Width != 960 || prefilter.Desc.Height != 540 {
		t.Fatalf("expected a 960x540 prefilter from the camera size, got %v", prefilter.Desc)
	}
}

func TestBloomModes(t *testing.T) {
	type spec struct {
		mode             effects.BloomMode
		combine, final   effects.Pass
		combineIntensity float32
	}

	specs := []spec{
		{effects.BloomAdditive, effects.PassBloomCombineAdditive, effects.PassBloomCombineAdditive, 1},
		{effects.BloomScattering, effects.PassBloomCombineScatter, effects.PassBloomScatterFinal, 0.7},
		{effects.BloomSingleScatter, effects.PassBloomCombineScatter, effects.PassBloomCombineScatter, 0.7},
	}

	for specIndex, s := range specs {
		f := newFixture(t)
		settings := effects.DefaultSettings()
		settings.Bloom.Mode = s.mode
		settings.Bloom.Scatter = 0.7
		settings.Bloom.Intensity = 2
		settings.Bloom.MaxIterations = 2
		settings.Bloom.DownscaleLimit = 1

		if err := f.render(gameCamera(64, 64), frameConfig(64, 64), &settings); err != nil {
			t.Fatal(err)
		}

		cmds := f.rec.Commands()
		draws := f.passes()
		// prefilter, 2 levels, 1 combine, final
		if draws[5] != s.combine || draws[6] != s.final {
			t.Fatalf("[spec %d] expected combine %v and final %v, got %v", specIndex, s.combine, s.final, draws)
		}

		combineAt := indexOfDraw(cmds, s.combine)
		intensity, _ := lastCommand(cmds, "u_bloom_intensity", combineAt)
		if intensity.Float != s.combineIntensity {
			t.Fatalf("[spec %d] expected combine intensity %v, got %v", specIndex, s.combineIntensity, intensity.Float)
		}

		var finalAt int
		for i, c := range cmds {
			if c.Op == libgpu.OpDraw && c.Program.Index == int(s.final) {
				finalAt = i
			}
		}
		intensity, _ = lastCommand(cmds, "u_bloom_intensity", finalAt)
		if intensity.Float != 2 {
			t.Fatalf("[spec %d] expected final intensity 2, got %v", specIndex, intensity.Float)
		}
	}
}

func TestBloomThresholdBeforePrefilter(t *testing.T) {
	f := newFixture(t)
	settings := effects.DefaultSettings()
	settings.Bloom.Threshold = 1
	settings.Bloom.ThresholdKnee = 0.5
	settings.Bloom.FadeFireflies = true

	if err := f.render(gameCamera(64, 64), frameConfig(64, 64), &settings); err != nil {
		t.Fatal(err)
	}

	cmds := f.rec.Commands()
	at := indexOfDraw(cmds, effects.PassBloomPrefilterFireflies)
	if at < 0 {
		t.Fatal("expected the fireflies prefilter")
	}
	threshold, ok := lastCommand(cmds, "u_bloom_threshold", at)
	if !ok {
		t.Fatal("threshold must be set before the prefilter draw")
	}
	expected := effects.ThresholdKnee(1, 0.5)
	if threshold.Vector != expected {
		t.Fatalf("expected threshold %v, got %v", expected, threshold.Vector)
	}
}

func TestThresholdKnee(t *testing.T) {
	v := effects.ThresholdKnee(1, 0.5)
	expected := [4]float32{1, -0.5, 1, 0.25 / (0.5 + 0.00001)}
	for i := range expected {
		if math32.Abs(v[i]-expected[i]) > 1e-6 {
			t.Fatalf("component %d: expected %v, got %v", i, expected[i], v[i])
		}
	}

	for _, threshold := range []float32{0, 1e-6, 1e-3} {
		for _, knee := range []float32{0, 0.5, 1} {
			v := effects.ThresholdKnee(threshold, knee)
			for i := range v {
				if math32.IsNaN(v[i]) || math32.IsInf(v[i], 0) {
					t.Fatalf("threshold %v knee %v: component %d is %v", threshold, knee, i, v[i])
				}
			}
		}
	}
}
